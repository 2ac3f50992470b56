package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
)

type fakeExec struct {
	descriptor        pathtypes.Descriptor
	suppressed        bool
	pushedCount       int
	poppedCount       int
	pushedDescriptors []pathtypes.Descriptor
}

func newFakeExec() *fakeExec { return &fakeExec{} }

func (f *fakeExec) SetPipelineContext(evalcontext.PipelineContextSnapshot) {}
func (f *fakeExec) ClearPipelineContext()                                 {}
func (f *fakeExec) SetGuardSuppression(suppressed bool)                   { f.suppressed = suppressed }
func (f *fakeExec) ShouldSuppressGuards() bool                            { return f.suppressed }
func (f *fakeExec) PushSecurityContext(cc pathtypes.CapabilityContext) {
	f.pushedCount++
	f.pushedDescriptors = append(f.pushedDescriptors, cc.Descriptor)
}
func (f *fakeExec) PopSecurityContext() error {
	f.poppedCount++
	return nil
}
func (f *fakeExec) EffectiveDescriptor() pathtypes.Descriptor { return f.descriptor }

func TestRunPipesOutputBetweenStages(t *testing.T) {
	stages := []pipeline.Stage{{Name: "upper"}, {Name: "exclaim"}}
	invoke := func(ctx context.Context, stage pipeline.Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		switch stage.Name {
		case "upper":
			return "HELLO", nil
		case "exclaim":
			return input.(string) + "!", nil
		}
		return nil, nil
	}

	e := pipeline.NewEngine(nil, nil)
	out, _, err := e.Run(context.Background(), newFakeExec(), "", "hello", stages, invoke)
	require.NoError(t, err)
	require.Equal(t, "HELLO!", out)
}

type denyGuard struct{ reason string }

func (g denyGuard) Before(ctx context.Context, call pipeline.StageCallSite) (evalcontext.GuardDecision, error) {
	return evalcontext.GuardDecision{Kind: evalcontext.GuardDeny, Reason: g.reason}, nil
}

func TestGuardDenyAbortsPipelineBeforeInvocation(t *testing.T) {
	guards := pipeline.NewGuardRegistry()
	require.NoError(t, guards.Register("blockAll", denyGuard{reason: "blocked"}))

	invoked := false
	invoke := func(ctx context.Context, stage pipeline.Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		invoked = true
		return input, nil
	}

	e := pipeline.NewEngine(guards, nil)
	_, history, err := e.Run(context.Background(), newFakeExec(), "", "x", []pipeline.Stage{{Name: "runBlocked"}}, invoke)

	require.False(t, invoked)
	var denied *pipeline.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, "blocked", denied.Reason)
	require.Len(t, history, 1)
	require.Equal(t, evalcontext.GuardDeny, history[0].Decision.Kind)
}

func TestRetrySignalReRunsStageWithIncrementedTry(t *testing.T) {
	var observedTries []int
	invoke := func(ctx context.Context, stage pipeline.Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		observedTries = append(observedTries, snap.Try)
		if snap.Try < 3 {
			return "retry", &pipeline.RetrySignal{Hint: "try again"}
		}
		return "v3", nil
	}

	e := pipeline.NewEngine(nil, nil)
	out, _, err := e.Run(context.Background(), newFakeExec(), "", "v", []pipeline.Stage{{Name: "v"}}, invoke)
	require.NoError(t, err)
	require.Equal(t, "v3", out)
	require.Equal(t, []int{1, 2, 3}, observedTries)
}

// TestRetryPredicateUnderThreeYieldsTwoRecordedTriesAndFinalValue mirrors
// the `/show @src() | @v` retry scenario: try starts at 1, a faithful
// `ctx.try < 3` predicate retries twice (try=1, try=2), and the stage
// succeeds on its third attempt with ctx.tries holding the two prior
// failed attempts.
func TestRetryPredicateUnderThreeYieldsTwoRecordedTriesAndFinalValue(t *testing.T) {
	var finalTries []evalcontext.StageAttempt
	invoke := func(ctx context.Context, stage pipeline.Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		value := fmt.Sprintf("v%d", snap.Try)
		if snap.Try < 3 {
			return value, &pipeline.RetrySignal{Hint: "try again"}
		}
		finalTries = snap.Tries
		return value, nil
	}

	e := pipeline.NewEngine(nil, nil)
	out, _, err := e.Run(context.Background(), newFakeExec(), "", "v", []pipeline.Stage{{Name: "v"}}, invoke)
	require.NoError(t, err)
	require.Equal(t, "v3", out)
	require.Len(t, finalTries, 2)
}

type taggedOutput struct {
	value      string
	descriptor pathtypes.Descriptor
}

func (t taggedOutput) SecurityDescriptor() pathtypes.Descriptor { return t.descriptor }

func TestTaintPostHookComposesDescriptorForwardAcrossStages(t *testing.T) {
	var secondStageDescriptor pathtypes.Descriptor
	stages := []pipeline.Stage{{Name: "load"}, {Name: "observe"}}
	invoke := func(ctx context.Context, stage pipeline.Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		switch stage.Name {
		case "load":
			return taggedOutput{value: "secret", descriptor: pathtypes.Descriptor{Labels: []string{"dir:/dir-parent-blocked"}, TaintLevel: pathtypes.TaintTainted}}, nil
		case "observe":
			if in, ok := input.(taggedOutput); ok {
				secondStageDescriptor = in.descriptor
			}
			return "observed", nil
		}
		return nil, nil
	}

	exec := newFakeExec()
	e := pipeline.NewEngine(nil, nil)
	_, _, err := e.Run(context.Background(), exec, "", nil, stages, invoke)
	require.NoError(t, err)

	require.True(t, exec.pushedCount >= 2)
	require.True(t, exec.poppedCount >= 2)
	require.Equal(t, "dir:/dir-parent-blocked", secondStageDescriptor.Labels[0])
	// The "observe" stage's own security-context push carried the
	// descriptor composed forward from "load"'s output (taintPostHook).
	require.Contains(t, exec.pushedDescriptors[1].Labels, "dir:/dir-parent-blocked")
}

func TestGuardRegistryCreateChildInheritsWithoutMutatingParent(t *testing.T) {
	parent := pipeline.NewGuardRegistry()
	require.NoError(t, parent.Register("g1", denyGuard{}))

	child := parent.CreateChild()
	require.NoError(t, child.Register("g2", denyGuard{}))

	_, ok := parent.Lookup("g2")
	require.False(t, ok, "registering on the child must not mutate the parent")

	ser := child.SerializeOwn()
	require.ElementsMatch(t, []string{"g1", "g2"}, ser.Names)
}

func TestGuardRegistryRejectsImplementationWithNoRole(t *testing.T) {
	r := pipeline.NewGuardRegistry()
	err := r.Register("nothing", struct{}{})
	require.Error(t, err)
}
