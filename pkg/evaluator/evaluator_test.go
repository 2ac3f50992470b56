package evaluator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/config"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/evaluator"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

type recordingHandler struct{ effects []environment.Effect }

func (r *recordingHandler) HandleEffect(e environment.Effect) error {
	r.effects = append(r.effects, e)
	return nil
}

func newTestEnv(t *testing.T) (*environment.Environment, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	env := environment.NewRoot(environment.NewRootOpts{
		ProjectConfig: config.Default("/project"),
		FS:            fsiface.NewMemFilesystem(),
		EffectHandler: handler,
	})
	return env, handler
}

func varDirective(name string, value astnode.Expression) *astnode.VarDirective {
	return &astnode.VarDirective{Name: name, Value: value}
}

func TestEvalVarThenShowEmitsDocEffect(t *testing.T) {
	env, handler := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		varDirective("greeting", &astnode.StringLiteral{Value: "hello"}),
		&astnode.ShowDirective{Expression: &astnode.Identifier{Name: "greeting"}},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)
	require.Len(t, handler.effects, 1)
	require.Equal(t, "hello", handler.effects[0].Content)
}

func TestEvalObjectLiteralComplexResolvesNestedIdentifier(t *testing.T) {
	env, handler := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		varDirective("n", &astnode.NumberLiteral{Float: 3}),
		varDirective("wrapped", &astnode.ObjectLiteral{
			IsComplex: true,
			Fields:    map[string]astnode.Expression{"count": &astnode.Identifier{Name: "n"}},
		}),
		&astnode.ShowDirective{Expression: &astnode.FieldAccess{
			Base:  &astnode.Identifier{Name: "wrapped"},
			Chain: []astnode.FieldAccessor{{Name: "count"}},
		}},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)
	require.Len(t, handler.effects, 1)
	require.Equal(t, "3", handler.effects[0].Content)
}

func TestEvalWhenFirstTruthyBranchWinsAndSkipsRest(t *testing.T) {
	env, handler := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		&astnode.WhenDirective{Branches: []astnode.WhenBranch{
			{Condition: &astnode.BooleanLiteral{Value: false}, Action: varDirective("x", &astnode.StringLiteral{Value: "from-false"})},
			{Condition: &astnode.BooleanLiteral{Value: true}, Action: varDirective("x", &astnode.StringLiteral{Value: "from-true"})},
			{Condition: &astnode.BooleanLiteral{Value: true}, Action: varDirective("x", &astnode.StringLiteral{Value: "unreachable"})},
		}},
		&astnode.ShowDirective{Expression: &astnode.Identifier{Name: "x"}},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)
	require.Len(t, handler.effects, 1)
	require.Equal(t, "from-true", handler.effects[0].Content)
}

func TestEvalForIteratesArrayBindingLoopVariableAndEmitsOneEffect(t *testing.T) {
	env, handler := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		varDirective("items", &astnode.ArrayLiteral{Elements: []astnode.Expression{
			&astnode.StringLiteral{Value: "a"},
			&astnode.StringLiteral{Value: "b"},
		}}),
		&astnode.ForDirective{
			VarName:    "item",
			Collection: &astnode.Identifier{Name: "items"},
			Body: []astnode.Node{
				&astnode.ShowDirective{Expression: &astnode.Identifier{Name: "item"}},
			},
		},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)

	require.Len(t, handler.effects, 1, "for's body effects are buffered and emitted once as a single doc effect")
	require.Equal(t, "ab", handler.effects[0].Content)
}

func TestEvalShowPipesThroughNamedMlldExecutable(t *testing.T) {
	env, handler := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		&astnode.ExeDirective{
			Name:     "echo",
			Params:   []string{"x"},
			Language: astnode.LangMlld,
			Template: &astnode.Template{Parts: []astnode.InterpolationPart{
				*astnode.NewVariableReferencePart("x-ref", astnode.Location{
					Start: astnode.Position{Line: 1, Column: 1},
					End:   astnode.Position{Line: 1, Column: 3, Offset: 2},
				}, "x"),
			}},
		},
		&astnode.ShowDirective{
			Expression: &astnode.StringLiteral{Value: "hello"},
			Pipes: []astnode.PipeStage{
				{ExecutableName: "echo"},
			},
		},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)
	require.Len(t, handler.effects, 1)
	require.Equal(t, "hello", handler.effects[0].Content)
}

func TestEvalImportBindsExportedNameFromParsedModule(t *testing.T) {
	env, handler := newTestEnv(t)

	moduleDoc := &astnode.Document{Children: []astnode.Node{
		varDirective("shared", &astnode.StringLiteral{Value: "module-value"}),
		&astnode.ExportDirective{Names: []string{"shared"}},
	}}

	ev := evaluator.New(nil, func(source string) (*astnode.Document, error) {
		return moduleDoc, nil
	})
	ctx := context.Background()

	require.NoError(t, env.FS().WriteFile(ctx, pathtypes.ValidatedResourcePath("/project/lib.mld"), []byte("ignored: parse is stubbed"), 0o644))

	doc := &astnode.Document{Children: []astnode.Node{
		&astnode.ImportDirective{
			Reference: "lib.mld",
			Bindings:  []astnode.ImportBinding{{Name: "shared", Alias: "shared"}},
		},
		&astnode.ShowDirective{Expression: &astnode.Identifier{Name: "shared"}},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.NoError(t, err)
	require.Len(t, handler.effects, 1)
	require.Equal(t, "module-value", handler.effects[0].Content)
}

func TestEvalImportOfUnexportedNameFails(t *testing.T) {
	env, _ := newTestEnv(t)

	// The module exports "other", not "secret" — the import should be
	// rejected rather than silently falling back to an all-vars import.
	moduleDoc := &astnode.Document{Children: []astnode.Node{
		varDirective("secret", &astnode.StringLiteral{Value: "hidden"}),
		varDirective("other", &astnode.StringLiteral{Value: "visible"}),
		&astnode.ExportDirective{Names: []string{"other"}},
	}}

	ev := evaluator.New(nil, func(source string) (*astnode.Document, error) {
		return moduleDoc, nil
	})
	ctx := context.Background()
	require.NoError(t, env.FS().WriteFile(ctx, pathtypes.ValidatedResourcePath("/project/lib.mld"), []byte("ignored"), 0o644))

	doc := &astnode.Document{Children: []astnode.Node{
		&astnode.ImportDirective{
			Reference: "lib.mld",
			Bindings:  []astnode.ImportBinding{{Name: "secret", Alias: "secret"}},
		},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.Error(t, err)
}

func TestFieldAccessOnArrayOutOfBoundsFails(t *testing.T) {
	env, _ := newTestEnv(t)
	ev := evaluator.New(nil, nil)
	ctx := context.Background()

	doc := &astnode.Document{Children: []astnode.Node{
		varDirective("items", &astnode.ArrayLiteral{Elements: []astnode.Expression{
			&astnode.StringLiteral{Value: "only"},
		}}),
		&astnode.ShowDirective{Expression: &astnode.FieldAccess{
			Base:  &astnode.Identifier{Name: "items"},
			Chain: []astnode.FieldAccessor{{IsIndex: true, Index: 5}},
		}},
	}}

	_, err := ev.EvaluateDocument(ctx, doc, env)
	require.Error(t, err)
}
