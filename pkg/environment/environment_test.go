package environment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/config"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

func newTestRoot(t *testing.T) *environment.Environment {
	t.Helper()
	return environment.NewRoot(environment.NewRootOpts{
		ProjectConfig: config.Default("/project"),
		FS:            fsiface.NewMemFilesystem(),
	})
}

func TestSetVariableThenGetReturnsSameValueByIdentity(t *testing.T) {
	e := newTestRoot(t)
	v := variable.CreatePrimitiveVariable("x", float64(1), variable.Source{}, astnode.Location{})
	require.NoError(t, e.SetVariable("x", v))

	got, ok := e.GetVariable("x")
	require.True(t, ok)
	require.Same(t, v, got)
}

func TestSetVariableTwiceFailsRedefinition(t *testing.T) {
	e := newTestRoot(t)
	v := variable.CreatePrimitiveVariable("x", float64(1), variable.Source{}, astnode.Location{})
	require.NoError(t, e.SetVariable("x", v))
	err := e.SetVariable("x", v)
	require.Error(t, err)
}

func TestSetVariableRejectsReservedName(t *testing.T) {
	e := newTestRoot(t)
	v := variable.CreatePrimitiveVariable("now", float64(1), variable.Source{}, astnode.Location{})
	err := e.SetVariable("now", v)
	require.Error(t, err)
}

func TestChildLookupWalksToParent(t *testing.T) {
	parent := newTestRoot(t)
	v := variable.CreatePrimitiveVariable("x", float64(7), variable.Source{}, astnode.Location{})
	require.NoError(t, parent.SetVariable("x", v))

	child := parent.CreateChild("")
	got, ok := child.GetVariable("x")
	require.True(t, ok)
	require.Same(t, v, got)
}

func TestChildShadowsParentBinding(t *testing.T) {
	parent := newTestRoot(t)
	parentVar := variable.CreatePrimitiveVariable("x", float64(1), variable.Source{}, astnode.Location{})
	require.NoError(t, parent.SetVariable("x", parentVar))

	child := parent.CreateChild("")
	childVar := variable.CreatePrimitiveVariable("x", float64(2), variable.Source{}, astnode.Location{})
	require.NoError(t, child.SetVariable("x", childVar))

	got, ok := child.GetVariable("x")
	require.True(t, ok)
	require.Same(t, childVar, got)
}

func TestSecurityContextPushPopBalanced(t *testing.T) {
	e := newTestRoot(t)
	before := e.EffectiveDescriptor()

	e.PushSecurityContext(pathtypes.CapabilityContext{
		Kind:       pathtypes.CapabilityExe,
		Descriptor: pathtypes.Descriptor{Labels: []string{"exe"}},
	})
	require.NoError(t, e.PopSecurityContext())

	require.Equal(t, before, e.EffectiveDescriptor())
}

func TestImportStackDetectsCircularImportOnEnvironment(t *testing.T) {
	e := newTestRoot(t)
	require.NoError(t, e.BeginImport("/a.mld"))
	err := e.BeginImport("/a.mld")
	require.Error(t, err)
	e.EndImport("/a.mld")
	require.False(t, e.IsImporting("/a.mld"))
}

type recordingHandler struct{ effects []environment.Effect }

func (r *recordingHandler) HandleEffect(e environment.Effect) error {
	r.effects = append(r.effects, e)
	return nil
}

func TestEmitEffectSuppressesDocEffectsWhileImporting(t *testing.T) {
	handler := &recordingHandler{}
	e := environment.NewRoot(environment.NewRootOpts{
		ProjectConfig: config.Default("/project"),
		FS:            fsiface.NewMemFilesystem(),
		EffectHandler: handler,
	})

	require.NoError(t, e.BeginImport("/a.mld"))
	require.NoError(t, e.EmitEffect(environment.Effect{Type: "doc", Content: "hello"}, "/a.mld"))
	require.Empty(t, handler.effects, "doc effects must be suppressed while importing")

	e.EndImport("/a.mld")
	require.NoError(t, e.EmitEffect(environment.Effect{Type: "doc", Content: "hello"}, "/a.mld"))
	require.Len(t, handler.effects, 1)
}
