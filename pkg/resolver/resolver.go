// Package resolver implements the resolver chain (spec.md §4.D): an
// ordered set of resolvers that turn a reference into cacheable content.
// Registration and role inference is grounded on the teacher's
// database/sql-style decorator registry in core/decorator/registry.go.
package resolver

import "context"

// Type is the resolver kind named in spec.md §4.D.
type Type string

const (
	TypeFunction Type = "function"
	TypeModule   Type = "module"
	TypeFile     Type = "file"
	TypePath     Type = "path"
	TypeIO       Type = "io"
)

// ContentKind labels the three shapes ResolverContent can take.
type ContentKind string

const (
	ContentModule ContentKind = "module"
	ContentData   ContentKind = "data"
	ContentText   ContentKind = "text"
)

// Context is a usage context a resolver may be invoked from.
type Context string

const (
	ContextImport   Context = "import"
	ContextPath     Context = "path"
	ContextOutput   Context = "output"
	ContextVariable Context = "variable"
)

// Metadata accompanies resolved content (spec.md §4.D / §4.E).
type Metadata struct {
	Source    string
	Timestamp int64
	Hash      string
	Headers   map[string]string
	Status    int
}

// Content is the resolver content contract from spec.md: function
// resolvers omit Hash.
type Content struct {
	Content     string
	ContentType ContentKind
	Metadata    Metadata
}

// ResolveOpts carries call-site options into Resolve.
type ResolveOpts struct {
	Context Context
}

// Resolver is the interface every resolver implementation satisfies.
// Roles (Prefixed, Priority) are inferred by the registry from which of
// the optional interfaces below a Resolver additionally implements,
// mirroring the teacher's inferRoles in core/decorator/registry.go.
type Resolver interface {
	Name() string
	Kind() Type
	Contexts() []Context
	CanResolve(ref string) bool
	Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error)
}

// PriorityResolver lets a resolver declare a tie-break priority; lower
// wins. Resolvers that don't implement this default to priority 100.
type PriorityResolver interface {
	Priority() int
}

// PrefixResolver is implemented by resolvers bound to one or more
// `@prefix/...` configurations instead of (or in addition to) a general
// CanResolve predicate.
type PrefixResolver interface {
	Prefixes() []string
}

func priorityOf(r Resolver) int {
	if p, ok := r.(PriorityResolver); ok {
		return p.Priority()
	}
	return 100
}

func prefixesOf(r Resolver) []string {
	if p, ok := r.(PrefixResolver); ok {
		return p.Prefixes()
	}
	return nil
}
