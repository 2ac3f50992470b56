package importresolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/cache"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/importresolver"
	"github.com/mlld-lang/mlld-core/pkg/resolver"
)

func TestImportStackDetectsCircularImport(t *testing.T) {
	s := importresolver.NewStack()
	require.NoError(t, s.BeginImport("/a.mld"))
	err := s.BeginImport("/a.mld")
	require.Error(t, err)
	var circ *importresolver.CircularImportError
	require.ErrorAs(t, err, &circ)
	require.Contains(t, circ.Error(), "/a.mld")
}

func TestImportStackAllowsReimportAfterEnd(t *testing.T) {
	s := importresolver.NewStack()
	require.NoError(t, s.BeginImport("/a.mld"))
	s.EndImport("/a.mld")
	require.NoError(t, s.BeginImport("/a.mld"))
}

func TestGateSkipsPromptWhenApproveAllSet(t *testing.T) {
	g := importresolver.NewGate(true, func(source, hash string) (bool, error) {
		t.Fatal("ask should not be called when approveAll is set")
		return false, nil
	})
	require.NoError(t, g.Approve("http://example.com/mod.mld", "deadbeef"))
}

func TestGateCachesApprovalByHash(t *testing.T) {
	calls := 0
	g := importresolver.NewGate(false, func(source, hash string) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, g.Approve("src", "hash1"))
	require.NoError(t, g.Approve("src", "hash1"))
	require.Equal(t, 1, calls)
}

func TestFuzzyMatchPicksUnambiguousClosest(t *testing.T) {
	match, err := importresolver.FuzzyMatch("helper.mld", []string{"helper2.mld", "unrelated.mld"})
	require.NoError(t, err)
	require.Equal(t, "helper2.mld", match)
}

func TestFuzzyMatchFailsOnTie(t *testing.T) {
	_, err := importresolver.FuzzyMatch("helpe.mld", []string{"helper.mld", "helped.mld"})
	require.Error(t, err)
}

func TestImporterCachesByContentHash(t *testing.T) {
	fs := fsiface.NewMemFilesystem()
	mgr := resolver.NewManager()
	calls := 0
	mgr.Register(&countingResolver{calls: &calls})

	im := importresolver.New(mgr, fs, "/project", false, cache.NewCaches())

	r1, err := im.Import(context.Background(), "./mod.mld")
	require.NoError(t, err)
	r2, err := im.Import(context.Background(), "./mod.mld")
	require.NoError(t, err)

	require.Equal(t, r1.Content, r2.Content)
	require.Equal(t, 1, calls, "second import of the same reference should hit the content cache")
}

type countingResolver struct{ calls *int }

func (c *countingResolver) Name() string                { return "counting" }
func (c *countingResolver) Kind() resolver.Type          { return resolver.TypeFile }
func (c *countingResolver) Contexts() []resolver.Context { return []resolver.Context{resolver.ContextImport} }
func (c *countingResolver) CanResolve(ref string) bool   { return true }
func (c *countingResolver) Resolve(ctx context.Context, ref string, opts resolver.ResolveOpts) (resolver.Content, error) {
	*c.calls++
	return resolver.Content{Content: "body", ContentType: resolver.ContentText}, nil
}
