package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// ProjectPathResolver resolves project-relative file references, priority 1.
type ProjectPathResolver struct {
	FS          fsiface.FS
	ProjectRoot string
}

func (r *ProjectPathResolver) Name() string        { return "project-path" }
func (r *ProjectPathResolver) Kind() Type          { return TypePath }
func (r *ProjectPathResolver) Contexts() []Context { return []Context{ContextPath, ContextImport} }
func (r *ProjectPathResolver) Priority() int        { return 1 }
func (r *ProjectPathResolver) CanResolve(ref string) bool {
	return !strings.HasPrefix(ref, "@") && !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://")
}

func (r *ProjectPathResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	full := ref
	if !filepath.IsAbs(full) {
		full = filepath.Join(r.ProjectRoot, ref)
	}
	vp := pathtypes.ValidatedResourcePath(full)
	data, err := r.FS.ReadFile(ctx, vp)
	if err != nil {
		return Content{}, fmt.Errorf("project-path resolver: %w", err)
	}
	return Content{
		Content:     string(data),
		ContentType: ContentText,
		Metadata:    Metadata{Source: full, Timestamp: time.Now().Unix()},
	}, nil
}

// LocalResolver resolves references against the configured local modules
// directory (default llm/modules, spec.md §4.config), priority 20.
type LocalResolver struct {
	FS              fsiface.FS
	LocalModulesDir string
}

func (r *LocalResolver) Name() string        { return "local" }
func (r *LocalResolver) Kind() Type          { return TypeFile }
func (r *LocalResolver) Contexts() []Context { return []Context{ContextImport} }
func (r *LocalResolver) Priority() int        { return 20 }
func (r *LocalResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../")
}

func (r *LocalResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	full := filepath.Join(r.LocalModulesDir, ref)
	vp := pathtypes.ValidatedResourcePath(full)
	data, err := r.FS.ReadFile(ctx, vp)
	if err != nil {
		return Content{}, fmt.Errorf("local resolver: %w", err)
	}
	return Content{
		Content:     string(data),
		ContentType: ContentModule,
		Metadata:    Metadata{Source: full, Timestamp: time.Now().Unix()},
	}, nil
}

// RegistryResolver resolves `@scope/module` references against a
// registry-configured prefix, priority 10.
type RegistryResolver struct {
	FS        fsiface.FS
	RootDir   string
	prefixes  []string
}

func NewRegistryResolver(fs fsiface.FS, rootDir string, prefixes []string) *RegistryResolver {
	return &RegistryResolver{FS: fs, RootDir: rootDir, prefixes: prefixes}
}

func (r *RegistryResolver) Name() string        { return "registry" }
func (r *RegistryResolver) Kind() Type          { return TypeModule }
func (r *RegistryResolver) Contexts() []Context { return []Context{ContextImport} }
func (r *RegistryResolver) Priority() int        { return 10 }
func (r *RegistryResolver) Prefixes() []string   { return r.prefixes }
func (r *RegistryResolver) CanResolve(ref string) bool {
	for _, p := range r.prefixes {
		if strings.HasPrefix(ref, p) {
			return true
		}
	}
	return false
}

func (r *RegistryResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	rel := ref
	for _, p := range r.prefixes {
		if strings.HasPrefix(ref, p) {
			rel = strings.TrimPrefix(ref, p)
			break
		}
	}
	full := filepath.Join(r.RootDir, rel)
	vp := pathtypes.ValidatedResourcePath(full)
	data, err := r.FS.ReadFile(ctx, vp)
	if err != nil {
		return Content{}, fmt.Errorf("registry resolver: %w", err)
	}
	return Content{
		Content:     string(data),
		ContentType: ContentModule,
		Metadata:    Metadata{Source: full, Timestamp: time.Now().Unix()},
	}, nil
}

// GitHubResolver resolves `github:owner/repo/path` references via a
// raw-content URL base, priority 20. The fetch function is injected so callers can
// swap in a real HTTP client or a fake in tests.
type GitHubResolver struct {
	Fetch func(ctx context.Context, url string) (body string, status int, headers map[string]string, err error)
}

func (r *GitHubResolver) Name() string        { return "github" }
func (r *GitHubResolver) Kind() Type          { return TypeModule }
func (r *GitHubResolver) Contexts() []Context { return []Context{ContextImport} }
func (r *GitHubResolver) Priority() int        { return 20 }
func (r *GitHubResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, "github:")
}

func (r *GitHubResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	path := strings.TrimPrefix(ref, "github:")
	url := "https://raw.githubusercontent.com/" + path
	body, status, headers, err := r.Fetch(ctx, url)
	if err != nil {
		return Content{}, fmt.Errorf("github resolver: %w", err)
	}
	return Content{
		Content:     body,
		ContentType: ContentModule,
		Metadata:    Metadata{Source: url, Timestamp: time.Now().Unix(), Status: status, Headers: headers},
	}, nil
}

// HTTPResolver resolves bare http(s) URLs, priority 20.
type HTTPResolver struct {
	Fetch func(ctx context.Context, url string) (body string, status int, headers map[string]string, err error)
}

func (r *HTTPResolver) Name() string        { return "http" }
func (r *HTTPResolver) Kind() Type          { return TypeIO }
func (r *HTTPResolver) Contexts() []Context { return []Context{ContextImport, ContextPath} }
func (r *HTTPResolver) Priority() int        { return 20 }
func (r *HTTPResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (r *HTTPResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	body, status, headers, err := r.Fetch(ctx, ref)
	if err != nil {
		return Content{}, fmt.Errorf("http resolver: %w", err)
	}
	return Content{
		Content:     body,
		ContentType: ContentText,
		Metadata:    Metadata{Source: ref, Timestamp: time.Now().Unix(), Status: status, Headers: headers},
	}, nil
}

// Function-type reserved resolvers: now, debug, input, base. These never
// read from disk; they synthesise a value on demand, priority 1.

type NowResolver struct{ Clock func() time.Time }

func (r *NowResolver) Name() string                        { return "now" }
func (r *NowResolver) Kind() Type                           { return TypeFunction }
func (r *NowResolver) Contexts() []Context                  { return []Context{ContextVariable} }
func (r *NowResolver) Priority() int                        { return 1 }
func (r *NowResolver) CanResolve(ref string) bool           { return ref == "now" }
func (r *NowResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	return Content{Content: clock().Format(time.RFC3339), ContentType: ContentText}, nil
}

type DebugResolver struct{ Snapshot func() string }

func (r *DebugResolver) Name() string                      { return "debug" }
func (r *DebugResolver) Kind() Type                        { return TypeFunction }
func (r *DebugResolver) Contexts() []Context                { return []Context{ContextVariable} }
func (r *DebugResolver) Priority() int                      { return 1 }
func (r *DebugResolver) CanResolve(ref string) bool         { return ref == "debug" }
func (r *DebugResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	if r.Snapshot == nil {
		return Content{Content: "{}", ContentType: ContentData}, nil
	}
	return Content{Content: r.Snapshot(), ContentType: ContentData}, nil
}

type InputResolver struct{ Stdin string }

func (r *InputResolver) Name() string                      { return "input" }
func (r *InputResolver) Kind() Type                        { return TypeFunction }
func (r *InputResolver) Contexts() []Context                { return []Context{ContextVariable} }
func (r *InputResolver) Priority() int                      { return 1 }
func (r *InputResolver) CanResolve(ref string) bool         { return ref == "input" }
func (r *InputResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	return Content{Content: r.Stdin, ContentType: ContentText}, nil
}

type BaseResolver struct{ ProjectRoot string }

func (r *BaseResolver) Name() string                      { return "base" }
func (r *BaseResolver) Kind() Type                        { return TypeFunction }
func (r *BaseResolver) Contexts() []Context                { return []Context{ContextVariable, ContextPath} }
func (r *BaseResolver) Priority() int                      { return 1 }
func (r *BaseResolver) CanResolve(ref string) bool         { return ref == "base" }
func (r *BaseResolver) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	root := r.ProjectRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Content{}, err
		}
		root = wd
	}
	return Content{Content: root, ContentType: ContentText}, nil
}
