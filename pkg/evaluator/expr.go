package evaluator

import (
	"context"
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/interpolation"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// evalExpression resolves an Expression node to its runtime value
// (spec.md §3 "Variable model... coercion-to-string rules" applies only
// at the interpolation boundary; expressions here yield plain Go values
// so directive evaluators can compose, compare, and re-wrap them).
func (ev *Evaluator) evalExpression(ctx context.Context, expr astnode.Expression, env *environment.Environment) (interface{}, error) {
	switch e := expr.(type) {
	case *astnode.StringLiteral:
		return e.Value, nil
	case *astnode.NumberLiteral:
		return e.Float, nil
	case *astnode.BooleanLiteral:
		return e.Value, nil
	case *astnode.NullLiteral:
		return nil, nil
	case *astnode.Identifier:
		return ev.resolveIdentifier(ctx, e.Name, e.Loc(), env)
	case *astnode.FieldAccess:
		if variant, rest, ok, err := ev.resolveTransformerVariant(ctx, e, env); err != nil {
			return nil, err
		} else if ok {
			return applyFieldChain(variant, rest, e.Loc())
		}
		base, err := ev.evalExpression(ctx, e.Base, env)
		if err != nil {
			return nil, err
		}
		return applyFieldChain(base, e.Chain, e.Loc())
	case *astnode.ObjectLiteral:
		return ev.evalObjectLiteral(ctx, e, env)
	case *astnode.ArrayLiteral:
		return ev.evalArrayLiteral(ctx, e, env)
	case *astnode.Template:
		return ev.renderTemplate(ctx, e, env)
	case astnode.VariableReference:
		return ev.resolveVariableReference(ctx, e, env)
	case astnode.ExecInvocation:
		return ev.evalExecInvocation(ctx, e, env)
	default:
		return nil, &mlerr.MeldInternalError{Invariant: "known-expression-kind", Detail: fmt.Sprintf("evalExpression: unhandled expression type %T", expr)}
	}
}

// resolveTransformerVariant implements spec.md §9 "Built-in transformers
// with dotted variants": field access on a transformer parent (e.g.
// `@json.indent`) must return the dotted variant callable directly,
// not the parent's own value run through ordinary structured field
// access.
func (ev *Evaluator) resolveTransformerVariant(ctx context.Context, e *astnode.FieldAccess, env *environment.Environment) (interface{}, []astnode.FieldAccessor, bool, error) {
	ident, ok := e.Base.(*astnode.Identifier)
	if !ok || len(e.Chain) == 0 || e.Chain[0].IsIndex {
		return nil, nil, false, nil
	}
	parent, ok := env.GetVariable(ident.Name)
	if !ok || len(parent.Metadata.TransformerVariants) == 0 {
		return nil, nil, false, nil
	}
	variant, ok := parent.Metadata.TransformerVariants[e.Chain[0].Name]
	if !ok {
		return nil, nil, false, nil
	}
	val, err := variable.ResolveVariableValue(variant, ev.resolveDeps(ctx, env))
	if err != nil {
		return nil, nil, false, err
	}
	return val, e.Chain[1:], true, nil
}

func (ev *Evaluator) resolveIdentifier(ctx context.Context, name string, loc astnode.Location, env *environment.Environment) (interface{}, error) {
	v, ok := env.GetVariable(name)
	if !ok {
		return nil, &mlerr.VariableResolutionError{Identifier: name, Span: spanOf(env, loc)}
	}
	return variable.ResolveVariableValue(v, ev.resolveDeps(ctx, env))
}

func (ev *Evaluator) resolveVariableReference(ctx context.Context, ref astnode.VariableReference, env *environment.Environment) (interface{}, error) {
	val, err := ev.resolveIdentifier(ctx, ref.Name, ref.Loc(), env)
	if err != nil {
		return nil, err
	}
	if len(ref.Fields) > 0 {
		val, err = applyFieldChain(val, ref.Fields, ref.Loc())
		if err != nil {
			return nil, err
		}
	}
	if len(ref.Pipes) > 0 {
		return ev.runPipeline(ctx, val, ref.Pipes, env)
	}
	return val, nil
}

func (ev *Evaluator) evalObjectLiteral(ctx context.Context, lit *astnode.ObjectLiteral, env *environment.Environment) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(lit.Fields))
	for k, fieldExpr := range lit.Fields {
		v, err := ev.evalExpression(ctx, fieldExpr, env)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (ev *Evaluator) evalArrayLiteral(ctx context.Context, lit *astnode.ArrayLiteral, env *environment.Environment) ([]interface{}, error) {
	out := make([]interface{}, 0, len(lit.Elements))
	for _, elExpr := range lit.Elements {
		v, err := ev.evalExpression(ctx, elExpr, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// applyFieldChain implements spec.md §4.A-adjacent field-access
// semantics (`.field` / `[index]`), raising FieldAccessError on a
// missing field, out-of-bounds index, or access on a non-object value.
func applyFieldChain(base interface{}, chain []astnode.FieldAccessor, loc astnode.Location) (interface{}, error) {
	current := base
	names := make([]string, len(chain))
	for i, acc := range chain {
		if acc.IsIndex {
			names[i] = fmt.Sprintf("[%d]", acc.Index)
			arr, ok := current.([]interface{})
			if !ok || acc.Index < 0 || acc.Index >= len(arr) {
				return nil, &mlerr.FieldAccessError{Base: base, Chain: names, FailedIndex: i, Span: mlerr.Span{Start: mlerr.Position{Line: loc.Start.Line, Column: loc.Start.Column, Offset: loc.Start.Offset}}}
			}
			current = arr[acc.Index]
			continue
		}
		names[i] = acc.Name
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, &mlerr.FieldAccessError{Base: base, Chain: names, FailedIndex: i, Span: mlerr.Span{Start: mlerr.Position{Line: loc.Start.Line, Column: loc.Start.Column, Offset: loc.Start.Offset}}}
		}
		v, ok := obj[acc.Name]
		if !ok {
			return nil, &mlerr.FieldAccessError{Base: base, Chain: names, FailedIndex: i, Span: mlerr.Span{Start: mlerr.Position{Line: loc.Start.Line, Column: loc.Start.Column, Offset: loc.Start.Offset}}}
		}
		current = v
	}
	return current, nil
}

func (ev *Evaluator) renderTemplate(ctx context.Context, tmpl *astnode.Template, env *environment.Environment) (string, error) {
	return interpolation.Interpolate(ctx, tmpl.Parts, interpolation.Default, ev.interpolationDeps(ctx, env))
}

func spanOf(env *environment.Environment, loc astnode.Location) mlerr.Span {
	return mlerr.Span{
		File:  env.FilePath(),
		Start: mlerr.Position{Line: loc.Start.Line, Column: loc.Start.Column, Offset: loc.Start.Offset},
		End:   mlerr.Position{Line: loc.End.Line, Column: loc.End.Column, Offset: loc.End.Offset},
	}
}
