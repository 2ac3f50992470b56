// Package shadow implements shadow function environments for embedded
// languages (spec.md §4.A "executable... may capture a shadow
// environment", §7 ShadowEnvironmentError). Each shadow environment is a
// named table of callables captured at `/exe` definition time and
// invoked later against fresh arguments.
//
// The interpreter backing each environment is yaegi (traefik/yaegi),
// grounded on the sandboxed-code-execution pattern in
// theRebelliousNerd-codenerd's internal/autopoiesis/yaegi_executor.go:
// a whitelisted-import, context-timeout-bounded interpreter invoked per
// call rather than a compiled binary. yaegi interprets Go, not
// JavaScript; no JS/ECMAScript VM appears anywhere in the example pack,
// so `js`/`node` exec bodies are accepted as Go source under this
// package (documented as an Open-Question resolution in DESIGN.md)
// rather than inventing an unverified interpreter dependency.
package shadow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Language names a shadow environment's embedded-language tag.
type Language string

const (
	LanguageJS   Language = "js"
	LanguageNode Language = "node"
)

// ShadowEnvironmentError reports a VM construction or invocation
// failure (spec.md §7).
type ShadowEnvironmentError struct {
	Language Language
	Name     string
	Cause    error
}

func (e *ShadowEnvironmentError) Error() string {
	return fmt.Sprintf("shadow environment error (%s/%s): %v", e.Language, e.Name, e.Cause)
}

func (e *ShadowEnvironmentError) Unwrap() error { return e.Cause }

// Env is one language's shadow-function table. An executable's body is
// captured here under the executable's name at definition time and
// consulted at invocation time.
type Env struct {
	Language    Language
	functions   map[string]string // name -> source body
	allowedPkgs map[string]bool
	timeout     time.Duration
}

// defaultAllowedPackages mirrors the teacher's whitelist: safe,
// side-effect-free stdlib only.
func defaultAllowedPackages() map[string]bool {
	return map[string]bool{
		"strings":         true,
		"strconv":         true,
		"fmt":             true,
		"math":            true,
		"regexp":          true,
		"encoding/json":   true,
		"encoding/base64": true,
		"time":            true,
		"sort":            true,
		"bytes":           true,
		"path":            true,
		"path/filepath":   true,
	}
}

// New creates an empty shadow environment for the given language.
func New(lang Language) *Env {
	return &Env{
		Language:    lang,
		functions:   make(map[string]string),
		allowedPkgs: defaultAllowedPackages(),
		timeout:     5 * time.Second,
	}
}

// WithTimeout returns a copy of e with a different invocation timeout,
// the same immutable-copy idiom used throughout this codebase for
// context configuration.
func (e *Env) WithTimeout(d time.Duration) *Env {
	clone := *e
	clone.timeout = d
	clone.functions = make(map[string]string, len(e.functions))
	for k, v := range e.functions {
		clone.functions[k] = v
	}
	return &clone
}

// Capture registers a named function body in the shadow environment.
// body must define `func Run(args ...interface{}) (interface{}, error)`.
func (e *Env) Capture(name, body string) {
	e.functions[name] = body
}

// Has reports whether name is registered.
func (e *Env) Has(name string) bool {
	_, ok := e.functions[name]
	return ok
}

// Clear drops every captured function body. Each Invoke builds and
// discards its own yaegi interpreter rather than holding one open, so
// clearing the capture table is what tearing down this Env means.
func (e *Env) Clear() {
	e.functions = make(map[string]string)
}

// Names returns every captured function name, for namespace-object
// display (spec.md §4.J: executables shown as `<function(p1, p2)>`).
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.functions))
	for n := range e.functions {
		names = append(names, n)
	}
	return names
}

// Child returns a new Env capturing the same functions, the way a
// `/exe` body inherits the shadow environment it was declared under
// (spec.md §4.H createChild "inherits shadow envs").
func (e *Env) Child() *Env {
	clone := New(e.Language)
	clone.timeout = e.timeout
	for k, v := range e.functions {
		clone.functions[k] = v
	}
	return clone
}

// Invoke runs the named captured function against args, bounded by
// ctx and the environment's timeout.
func (e *Env) Invoke(ctx context.Context, name string, args []interface{}) (interface{}, error) {
	body, ok := e.functions[name]
	if !ok {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: fmt.Errorf("no captured function %q", name)}
	}

	if err := e.validateImports(body); err != nil {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: err}
	}

	if _, err := i.Eval(wrapSource(body)); err != nil {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: err}
	}

	runFn, err := i.Eval("main.Run")
	if err != nil {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: err}
	}

	fn, ok := runFn.Interface().(func(...interface{}) (interface{}, error))
	if !ok {
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: fmt.Errorf("Run has wrong signature, expected func(...interface{}) (interface{}, error)")}
	}

	type result struct {
		val interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(args...)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-runCtx.Done():
		return nil, &ShadowEnvironmentError{Language: e.Language, Name: name, Cause: runCtx.Err()}
	}
}

func wrapSource(body string) string {
	if strings.Contains(body, "package main") {
		return body
	}
	return "package main\n\n" + body
}

func (e *Env) validateImports(body string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			pkg := strings.Trim(trimmed, `"`)
			if pkg != "" && !e.allowedPkgs[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			pkg := strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`)
			if !e.allowedPkgs[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}
