package evalcontext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

func TestDescriptorStackPushPopLeavesEffectiveUnchanged(t *testing.T) {
	base := pathtypes.Descriptor{Labels: []string{"base"}}
	s := evalcontext.NewDescriptorStack(base)

	before := s.Effective()
	s.Push(pathtypes.Descriptor{Labels: []string{"tainted"}, TaintLevel: pathtypes.TaintTainted})
	require.NoError(t, s.Pop())
	after := s.Effective()

	require.Equal(t, before, after, "push then matching pop must leave the effective descriptor unchanged (spec invariant 7)")
	require.True(t, s.Balanced())
}

func TestDescriptorStackComposesUnionAndMaxTaint(t *testing.T) {
	s := evalcontext.NewDescriptorStack(pathtypes.Descriptor{Labels: []string{"a"}, TaintLevel: pathtypes.TaintNone})
	s.Push(pathtypes.Descriptor{Labels: []string{"b"}, TaintLevel: pathtypes.TaintUntrusted})

	eff := s.Effective()
	require.ElementsMatch(t, []string{"a", "b"}, eff.Labels)
	require.Equal(t, pathtypes.TaintUntrusted, eff.TaintLevel)
}

func TestDescriptorStackPopUnderflowErrors(t *testing.T) {
	s := evalcontext.NewDescriptorStack(pathtypes.Descriptor{})
	err := s.Pop()
	require.Error(t, err)
}

func TestCapabilityStackTracksInnermostKind(t *testing.T) {
	s := evalcontext.NewCapabilityStack(pathtypes.Descriptor{})
	s.Push(pathtypes.CapabilityContext{Kind: pathtypes.CapabilityImport})
	s.Push(pathtypes.CapabilityContext{Kind: pathtypes.CapabilityExe})

	require.True(t, s.InKind(pathtypes.CapabilityImport))
	require.True(t, s.InKind(pathtypes.CapabilityExe))
	require.False(t, s.InKind(pathtypes.CapabilityGuard))

	cur, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, pathtypes.CapabilityExe, cur.Kind)

	require.NoError(t, s.Pop())
	require.NoError(t, s.Pop())
	require.Equal(t, 0, s.Depth())
}

func TestAmbientWithMethodsDoNotMutateOriginal(t *testing.T) {
	base := evalcontext.Ambient{}
	withOp := base.WithOpContext(evalcontext.OpContext{Operation: "run"})

	require.Empty(t, base.Op.Operation)
	require.Equal(t, "run", withOp.Op.Operation)
}

func TestAmbientGuardSuppression(t *testing.T) {
	a := evalcontext.Ambient{}
	require.False(t, a.ShouldSuppressGuards())
	suppressed := a.WithGuardSuppression()
	require.True(t, suppressed.ShouldSuppressGuards())
	require.False(t, a.ShouldSuppressGuards(), "original must be unaffected")
}

func TestInterpolationStackGuardsCircularReference(t *testing.T) {
	s := evalcontext.NewInterpolationStack()
	require.False(t, s.IsActive("/a.mld"))
	s.Push("/a.mld")
	require.True(t, s.IsActive("/a.mld"))
	s.Pop("/a.mld")
	require.False(t, s.IsActive("/a.mld"))
}
