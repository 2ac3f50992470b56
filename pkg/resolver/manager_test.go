package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/resolver"
)

type fakeResolver struct {
	name     string
	priority int
	prefixes []string
	can      func(string) bool
	content  string
	err      error
}

func (f *fakeResolver) Name() string                 { return f.name }
func (f *fakeResolver) Kind() resolver.Type           { return resolver.TypeFile }
func (f *fakeResolver) Contexts() []resolver.Context  { return []resolver.Context{resolver.ContextImport} }
func (f *fakeResolver) Priority() int                 { return f.priority }
func (f *fakeResolver) Prefixes() []string            { return f.prefixes }
func (f *fakeResolver) CanResolve(ref string) bool    { return f.can(ref) }
func (f *fakeResolver) Resolve(ctx context.Context, ref string, opts resolver.ResolveOpts) (resolver.Content, error) {
	if f.err != nil {
		return resolver.Content{}, f.err
	}
	return resolver.Content{Content: f.content, ContentType: resolver.ContentText}, nil
}

func TestManagerTriesResolversInPriorityOrder(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&fakeResolver{name: "low-priority", priority: 50, can: func(string) bool { return true }, content: "slow"})
	m.Register(&fakeResolver{name: "high-priority", priority: 1, can: func(string) bool { return true }, content: "fast"})

	content, err := m.Resolve(context.Background(), "anything", resolver.ResolveOpts{})
	require.NoError(t, err)
	require.Equal(t, "fast", content.Content)
}

func TestManagerPrefixMatchTakesPrecedence(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&fakeResolver{name: "general", priority: 1, can: func(string) bool { return true }, content: "general"})
	m.Register(&fakeResolver{name: "scoped", priority: 100, prefixes: []string{"@scope/"}, can: func(ref string) bool { return true }, content: "scoped"})

	content, err := m.Resolve(context.Background(), "@scope/mod", resolver.ResolveOpts{})
	require.NoError(t, err)
	require.Equal(t, "scoped", content.Content)
}

func TestManagerFallsThroughOnNoAccept(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&fakeResolver{name: "picky", priority: 1, can: func(ref string) bool { return false }})

	_, err := m.Resolve(context.Background(), "nope", resolver.ResolveOpts{})
	require.Error(t, err)
}

func TestPrefixNamesAreReservedIdentifiers(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&fakeResolver{name: "scoped", priority: 20, prefixes: []string{"@scope/"}, can: func(string) bool { return true }})
	require.Contains(t, m.PrefixNames(), "@scope/")
}
