package variable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

func TestPredicatesAreMutuallyExclusive(t *testing.T) {
	vars := []*variable.Variable{
		variable.CreateSimpleTextVariable("a", "hi", variable.Source{}, astnode.Location{}),
		variable.CreateObjectVariable("b", map[string]interface{}{"x": 1}, nil, variable.Source{}, astnode.Location{}),
		variable.CreatePathVariable("c", "/tmp/x", false, true, variable.Source{}, astnode.Location{}),
		variable.CreatePrimitiveVariable("d", 3.0, variable.Source{}, astnode.Location{}),
	}

	checks := []func(*variable.Variable) bool{
		variable.IsTextLike, variable.IsStructured, variable.IsPath, variable.IsPrimitive,
	}

	for _, v := range vars {
		matches := 0
		for _, check := range checks {
			if check(v) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "variable %q should match exactly one predicate group", v.Name)
	}
}

func TestResolveVariableValuePrimitive(t *testing.T) {
	v := variable.CreatePrimitiveVariable("n", float64(3), variable.Source{}, astnode.Location{})
	val, err := variable.ResolveVariableValue(v, variable.ResolveDeps{})
	require.NoError(t, err)
	require.Equal(t, float64(3), val)
}

func TestResolveVariableValueSimpleObjectNotComplex(t *testing.T) {
	v := variable.CreateObjectVariable("o", map[string]interface{}{"name": "Alice", "n": float64(3)}, nil, variable.Source{}, astnode.Location{})
	val, err := variable.ResolveVariableValue(v, variable.ResolveDeps{})
	require.NoError(t, err)
	obj, ok := val.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Alice", obj["name"])
}

func TestResolveVariableValueExecutableAutoInvokes(t *testing.T) {
	exe := variable.CreateExecutableVariable("f", nil, astnode.LangJS, nil, "return 1", variable.Source{}, astnode.Location{})
	deps := variable.ResolveDeps{
		AutoInvokeExecutable: func(v *variable.Variable) (interface{}, error) {
			return "invoked:" + v.Name, nil
		},
	}
	val, err := variable.ResolveVariableValue(exe, deps)
	require.NoError(t, err)
	require.Equal(t, "invoked:f", val)
}

func TestResolveComplexObjectRequiresEvaluator(t *testing.T) {
	raw := map[string]astnode.Expression{"x": astnode.NewStringLiteral("1", astnode.Location{}, "v")}
	v := variable.CreateObjectVariable("o", nil, raw, variable.Source{}, astnode.Location{})
	_, err := variable.ResolveVariableValue(v, variable.ResolveDeps{})
	require.Error(t, err)
}

func TestResolveComplexObjectExceedsMaxDepth(t *testing.T) {
	raw := map[string]astnode.Expression{"self": astnode.NewStringLiteral("1", astnode.Location{}, "v")}
	v := variable.CreateObjectVariable("o", nil, raw, variable.Source{}, astnode.Location{})

	var deps variable.ResolveDeps
	deps.EvaluateComplexObject = func(raw map[string]astnode.Expression, depth int) (map[string]interface{}, error) {
		// Simulate a self-referencing complex value: every recursive
		// resolution calls back in at depth+1 and never bottoms out.
		val, err := variable.ResolveVariableValueAtDepth(v, deps, depth)
		if err != nil {
			return nil, err
		}
		return val.(map[string]interface{}), nil
	}

	_, err := variable.ResolveVariableValue(v, deps)
	require.Error(t, err)
}
