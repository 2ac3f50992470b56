// Package config decodes the ProjectConfig record consumed once at
// root-environment construction (spec.md §6). Decoding uses
// gopkg.in/yaml.v3, the same library adest-aes-scripts/go-tools and
// Aureuma-si/tools/si use for their own startup configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResolverPrefix is one entry of ProjectConfig.ResolverPrefixes: a
// user-configured prefix binding a resolver to a base directory or module
// reference (spec.md §4.D "prefix configurations").
type ResolverPrefix struct {
	Prefix   string `yaml:"prefix"`
	Resolver string `yaml:"resolver"`
	BaseDir  string `yaml:"baseDir,omitempty"`
	Config   map[string]interface{} `yaml:"config,omitempty"`
}

// ProjectConfig is read once at root-environment construction time.
type ProjectConfig struct {
	ProjectRoot      string            `yaml:"-"` // set by the caller, not decoded
	AllowAbsolutePaths bool            `yaml:"allowAbsolutePaths"`
	LocalModulesPath string            `yaml:"localModulesPath"`
	AllowedEnvVars   []string          `yaml:"allowedEnvVars"`
	ResolverPrefixes []ResolverPrefix  `yaml:"resolverPrefixes"`
}

// DefaultLocalModulesPath matches spec.md §6's documented default.
const DefaultLocalModulesPath = "llm/modules"

// Default returns a ProjectConfig with spec.md's documented defaults.
func Default(projectRoot string) ProjectConfig {
	return ProjectConfig{
		ProjectRoot:      projectRoot,
		LocalModulesPath: DefaultLocalModulesPath,
	}
}

// Load decodes a ProjectConfig from a YAML file, filling in defaults for
// any field the file omits.
func Load(path, projectRoot string) (ProjectConfig, error) {
	cfg := Default(projectRoot)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading project config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding project config %q: %w", path, err)
	}
	cfg.ProjectRoot = projectRoot
	if cfg.LocalModulesPath == "" {
		cfg.LocalModulesPath = DefaultLocalModulesPath
	}
	return cfg, nil
}

// EnvVarAllowed reports whether name is listed in AllowedEnvVars.
func (c ProjectConfig) EnvVarAllowed(name string) bool {
	for _, n := range c.AllowedEnvVars {
		if n == name {
			return true
		}
	}
	return false
}
