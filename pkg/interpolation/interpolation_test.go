package interpolation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/interpolation"
)

func TestInterpolateEmptyArrayYieldsEmptyString(t *testing.T) {
	s, err := interpolation.Interpolate(context.Background(), nil, interpolation.Default, interpolation.Deps{})
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func nonZeroLoc() astnode.Location {
	return astnode.Location{Start: astnode.Position{Line: 1, Column: 1, Offset: 0}, End: astnode.Position{Line: 1, Column: 2, Offset: 1}}
}

func TestInterpolateTextPartAppendsVerbatim(t *testing.T) {
	parts := []astnode.InterpolationPart{
		astnode.TextPart{Value: "hello "},
		astnode.TextPart{Value: "world"},
	}
	s, err := interpolation.Interpolate(context.Background(), parts, interpolation.Default, interpolation.Deps{})
	require.NoError(t, err)
	require.Equal(t, "hello world", s)
}

func TestInterpolateVariableReferenceResolvesAndConverts(t *testing.T) {
	ref := astnode.NewVariableReferencePart("1", nonZeroLoc(), "name")
	deps := interpolation.Deps{
		ResolveVariable: func(ctx context.Context, ref astnode.VariableReference) (interface{}, error) {
			return "Ada", nil
		},
	}
	s, err := interpolation.Interpolate(context.Background(), []astnode.InterpolationPart{*ref}, interpolation.Default, deps)
	require.NoError(t, err)
	require.Equal(t, "Ada", s)
}

func TestGrammarBugPlaceholderVariableReferenceSkipped(t *testing.T) {
	ref := astnode.NewVariableReferencePart("1", astnode.Location{}, "ghost")
	deps := interpolation.Deps{
		ResolveVariable: func(ctx context.Context, ref astnode.VariableReference) (interface{}, error) {
			t.Fatal("resolver should not be called for a zero-location placeholder")
			return nil, nil
		},
	}
	s, err := interpolation.Interpolate(context.Background(), []astnode.InterpolationPart{*ref}, interpolation.Default, deps)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestShellCommandArrayEscapesEachElement(t *testing.T) {
	s, err := interpolation.ToString([]interface{}{"a b", "c'd"}, interpolation.ShellCommand)
	require.NoError(t, err)
	require.Equal(t, `'a b' 'c'\''d'`, s)
}

func TestDefaultArrayBecomesCompactJSON(t *testing.T) {
	s, err := interpolation.ToString([]interface{}{"a", "b"}, interpolation.Default)
	require.NoError(t, err)
	require.Equal(t, `["a","b"]`, s)
}

func TestNullConvertsToLiteralString(t *testing.T) {
	s, err := interpolation.ToString(nil, interpolation.Default)
	require.NoError(t, err)
	require.Equal(t, "null", s)
}

func TestPlainObjectBecomesCompactJSON(t *testing.T) {
	s, err := interpolation.ToString(map[string]interface{}{"a": float64(1)}, interpolation.Default)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, s)
}

type fakeContent struct{ content string }

func (f fakeContent) InterpolationContent() string { return f.content }

func TestLoadContentResultArrayJoinsWithBlankLines(t *testing.T) {
	arr := []interface{}{fakeContent{content: "first"}, fakeContent{content: "second"}}
	s, err := interpolation.ToString(arr, interpolation.Default)
	require.NoError(t, err)
	require.Equal(t, "first\n\nsecond", s)
}
