package environment

import (
	"context"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/resolver"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// reservedResolverNames are the reserved resolver-backed identifiers
// spec.md §4.H names: "now, debug (lazy), input, base, plus built-in
// transformers".
var reservedResolverNames = map[string]bool{
	"now": true, "debug": true, "input": true, "base": true,
}

// transformerNames are the built-in data transformers and their dotted
// variants (spec.md §4.H: "JSON/json/XML/xml/CSV/csv/MD/md and their
// dotted variants like json.indent, csv.header", plus keep/keepStructured).
var transformerNames = map[string]bool{
	"JSON": true, "json": true, "json.indent": true,
	"XML": true, "xml": true,
	"CSV": true, "csv": true, "csv.header": true,
	"MD": true, "md": true,
	"keep": true, "keepStructured": true,
}

var reservedNames = func() map[string]bool {
	m := make(map[string]bool)
	for n := range reservedResolverNames {
		m[n] = true
	}
	for n := range transformerNames {
		m[n] = true
	}
	return m
}()

// bindReservedVariables marks the root environment's reserved names as
// immutable. Resolver names get their values lazily from
// GetResolverVariable, since `now`/`debug` depend on call-time state;
// transformer names are bound by bindTransformerVariables. Configured
// resolver prefixes are recorded
// on e's own root rather than the shared package-level reservedNames
// set, so a second root with a different ResolverPrefixes configuration
// doesn't inherit another root's reservations.
func bindReservedVariables(e *Environment) {
	for name := range reservedNames {
		e.immutable[name] = true
	}
	for _, p := range e.root.config.ResolverPrefixes {
		e.immutable[p.Prefix] = true
		e.root.reservedPrefixes[p.Prefix] = true
	}
}

// GetResolverVariable implements spec.md §4.H getResolverVariable:
// lazily computes and memoises a Variable for reserved resolver names
// (now, debug, input, base, and any configured prefix). Transformer
// names (json, csv, ...) are not resolver-backed; bindTransformerVariables
// binds them as root variables instead.
func (e *Environment) GetResolverVariable(ctx context.Context, name string) (*variable.Variable, error) {
	e.root.resolverVarMu.Lock()
	if v, ok := e.root.resolverVarCache[name]; ok {
		e.root.resolverVarMu.Unlock()
		return v, nil
	}
	e.root.resolverVarMu.Unlock()

	content, err := e.root.resolverManager.Resolve(ctx, name, resolver.ResolveOpts{Context: resolver.ContextVariable})
	if err != nil {
		return nil, err
	}

	v := variable.CreateComputedVariable(name, content.Content, variable.Source{}, astnode.Location{})

	// `debug` is explicitly lazy per spec.md §4.H and must not be cached
	// across calls, since its snapshot changes every invocation.
	if name == "debug" {
		return v, nil
	}

	e.root.resolverVarMu.Lock()
	e.root.resolverVarCache[name] = v
	e.root.resolverVarMu.Unlock()
	return v, nil
}
