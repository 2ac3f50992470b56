package evaluator

import (
	"context"
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// beforeExprGuard and afterExprGuard back a `/guard` directive's
// predicate/action expressions with pipeline.BeforeGuard/AfterGuard,
// kept as two distinct types (rather than one type implementing both)
// so pipeline.GuardRegistry's type-assertion role inference sees only
// the phase the directive declared (spec.md §4.K / §4.M).

type beforeExprGuard struct {
	ev  *Evaluator
	env *environment.Environment
	dir *astnode.GuardDirective
}

func (g *beforeExprGuard) Before(ctx context.Context, call pipeline.StageCallSite) (evalcontext.GuardDecision, error) {
	scope := bindGuardScope(g.env, call, nil)
	v, err := g.ev.evalExpression(ctx, g.dir.Predicate, scope)
	if err != nil {
		return evalcontext.GuardDecision{}, err
	}
	if isTruthy(v) {
		return evalcontext.GuardDecision{Kind: evalcontext.GuardAllow}, nil
	}

	reason := fmt.Sprintf("guard %q denied stage %q", g.dir.Name, call.StageName)
	if g.dir.Action != nil {
		if av, err := g.ev.evalExpression(ctx, g.dir.Action, scope); err == nil {
			reason = fmt.Sprint(av)
		}
	}
	return evalcontext.GuardDecision{Kind: evalcontext.GuardDeny, Reason: reason}, nil
}

type afterExprGuard struct {
	ev  *Evaluator
	env *environment.Environment
	dir *astnode.GuardDirective
}

func (g *afterExprGuard) After(ctx context.Context, call pipeline.StageCallSite, outcome pipeline.StageOutcome) error {
	scope := bindGuardScope(g.env, call, &outcome)
	_, err := g.ev.evalExpression(ctx, g.dir.Predicate, scope)
	return err
}

// bindGuardScope binds @input (and, for after-guards, @output) so a
// guard's predicate/action expressions can reference the stage call
// site, mirroring bindParams' parameter-binding idiom.
func bindGuardScope(env *environment.Environment, call pipeline.StageCallSite, outcome *pipeline.StageOutcome) *environment.Environment {
	child := env.CreateChild("")
	child.SetParameterVariable("input", variable.CreateComputedVariable("input", call.Input, variable.Source{}, astnode.Location{}))
	if outcome != nil {
		child.SetParameterVariable("output", variable.CreateComputedVariable("output", outcome.Output, variable.Source{}, astnode.Location{}))
	}
	return child
}
