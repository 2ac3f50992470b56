package shadow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/shadow"
)

func TestEnvInvokeRunsCapturedFunction(t *testing.T) {
	env := shadow.New(shadow.LanguageJS)
	env.Capture("double", `
func Run(args ...interface{}) (interface{}, error) {
	n := args[0].(int)
	return n * 2, nil
}
`)

	result, err := env.Invoke(context.Background(), "double", []interface{}{21})
	require.NoError(t, err)
	require.Equal(t, 42, result)
}

func TestEnvInvokeUnknownFunctionErrors(t *testing.T) {
	env := shadow.New(shadow.LanguageNode)
	_, err := env.Invoke(context.Background(), "missing", nil)
	require.Error(t, err)
	var shadowErr *shadow.ShadowEnvironmentError
	require.ErrorAs(t, err, &shadowErr)
}

func TestEnvRejectsForbiddenImports(t *testing.T) {
	env := shadow.New(shadow.LanguageJS)
	env.Capture("escape", `
import (
	"os/exec"
)

func Run(args ...interface{}) (interface{}, error) {
	return nil, nil
}
`)
	_, err := env.Invoke(context.Background(), "escape", nil)
	require.Error(t, err)
}

func TestChildInheritsCapturedFunctions(t *testing.T) {
	parent := shadow.New(shadow.LanguageJS)
	parent.Capture("identity", `
func Run(args ...interface{}) (interface{}, error) {
	return args[0], nil
}
`)
	child := parent.Child()
	require.True(t, child.Has("identity"))
}

func TestRegistryForCreatesPerLanguageEnv(t *testing.T) {
	reg := shadow.NewRegistry()
	js := reg.For(shadow.LanguageJS)
	node := reg.For(shadow.LanguageNode)
	require.NotSame(t, js, node)
	require.Same(t, js, reg.For(shadow.LanguageJS))
}
