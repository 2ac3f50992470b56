package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// Stage is one element of `value | @stageA | @stageB`: either a named
// executable invocation or a short-form effect (spec.md §4.K "a pipeline
// is an ordered list of stages where each stage is either a named
// executable or a short-form effect").
type Stage struct {
	Name      string // executable name; empty when ShortForm is set
	ShortForm string // e.g. "show"
	Args      []interface{}
}

func (s Stage) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ShortForm
}

// Invoker runs one stage against input under snap, returning the
// stage's output. Returning a *RetrySignal error requests a retry
// (spec.md §4.K step 5); any other error aborts the pipeline.
type Invoker func(ctx context.Context, stage Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error)

// RetrySignal is the sentinel error an Invoker returns for an explicit
// `retry "hint"` / `retry @fn(args)` directive. Hint is evaluated at
// retry time against the fresh context by the caller that produced it,
// not at guard-definition time (spec.md §9 "Retry hints as values").
type RetrySignal struct {
	Hint interface{}
}

func (r *RetrySignal) Error() string { return "pipeline: stage requested retry" }

// DeniedError is returned when a BeforeGuard denies a stage. The
// evaluator's `when denied => ...` dispatch detects it by unwrapping the
// returned error to *DeniedError (spec.md §4.K step 3).
type DeniedError struct {
	Stage  string
	Reason string
}

func (d *DeniedError) Error() string {
	return fmt.Sprintf("pipeline: stage %q denied: %s", d.Stage, d.Reason)
}

// HistoryEntry records one guard's verdict on one stage attempt
// (spec.md §4.K step 4 "guardPostHook records the outcome in the guard
// history").
type HistoryEntry struct {
	ID       string
	Guard    string
	Stage    string
	Decision evalcontext.GuardDecision
	Err      error
}

// Descriptored is implemented by stage output values that carry their
// own security descriptor (e.g. a loaded file's taint label). When a
// stage's output implements it, taintPostHook composes that descriptor
// onto the running pipeline descriptor for every subsequent stage and
// guard evaluation (spec.md §4.K step 4 "taintPostHook propagates the
// descriptor").
type Descriptored interface {
	SecurityDescriptor() pathtypes.Descriptor
}

// ExecContext is the slice of environment.Environment the engine needs:
// ambient pipeline-context mutation, guard suppression, and the
// security-descriptor stack. Declared as an interface — rather than
// importing pkg/environment directly — so pkg/pipeline stays decoupled
// the way pkg/interpolation's Deps callback struct keeps that package
// decoupled from pkg/environment.
type ExecContext interface {
	SetPipelineContext(evalcontext.PipelineContextSnapshot)
	ClearPipelineContext()
	SetGuardSuppression(bool)
	ShouldSuppressGuards() bool
	PushSecurityContext(pathtypes.CapabilityContext)
	PopSecurityContext() error
	EffectiveDescriptor() pathtypes.Descriptor
}

// Engine runs a pipeline of stages against an ExecContext, dispatching
// pre/post hooks through a GuardRegistry and bridging stage completion
// onto a Bus (spec.md §4.K).
type Engine struct {
	Guards *GuardRegistry
	Stream *Bus
}

// NewEngine returns an Engine. guards or stream may be nil: a nil
// registry means no guards run; a nil bus means no events are emitted.
func NewEngine(guards *GuardRegistry, stream *Bus) *Engine {
	return &Engine{Guards: guards, Stream: stream}
}

// Run executes stages in order, piping each stage's output into the
// next stage's input (spec.md §4.K "piping the previous output as the
// stage's first argument"). Returns the final output and the full
// guard history across every stage and retry attempt.
func (e *Engine) Run(ctx context.Context, exec ExecContext, pipelineID string, input interface{}, stages []Stage, invoke Invoker) (interface{}, []HistoryEntry, error) {
	if pipelineID == "" {
		pipelineID = uuid.NewString()
	}

	var history []HistoryEntry
	current := input
	descriptor := exec.EffectiveDescriptor()

	for i, stage := range stages {
		out, h, nextDescriptor, err := e.runStage(ctx, exec, pipelineID, i, stage, current, descriptor, invoke)
		history = append(history, h...)
		if err != nil {
			return nil, history, err
		}
		current = out
		descriptor = nextDescriptor
		e.publish(StreamEvent{Kind: EventCommandComplete, StageIndex: i, StageName: stage.label(), Output: out})
	}
	return current, history, nil
}

// runStage runs one stage to completion, looping on retry. descriptor
// is the composed security descriptor carried into this stage; it
// returns the descriptor to carry into the next.
func (e *Engine) runStage(ctx context.Context, exec ExecContext, pipelineID string, stageIndex int, stage Stage, input interface{}, descriptor pathtypes.Descriptor, invoke Invoker) (interface{}, []HistoryEntry, pathtypes.Descriptor, error) {
	var history []HistoryEntry
	snap := evalcontext.PipelineContextSnapshot{
		StageIndex: stageIndex,
		PipelineID: pipelineID,
		Input:      input,
		Try:        1,
	}

	for {
		exec.SetPipelineContext(snap)
		e.publish(StreamEvent{Kind: EventCommandStart, StageIndex: stageIndex, StageName: stage.label()})

		decision, preHistory := e.guardPreHook(ctx, exec, stage, input, snap)
		history = append(history, preHistory...)

		if decision.Kind == evalcontext.GuardDeny {
			exec.ClearPipelineContext()
			return nil, history, descriptor, &DeniedError{Stage: stage.label(), Reason: decision.Reason}
		}

		var out interface{}
		var err error
		if decision.Kind == evalcontext.GuardRetry {
			err = &RetrySignal{Hint: decision.Hint}
		} else {
			exec.PushSecurityContext(pathtypes.CapabilityContext{Kind: pathtypes.CapabilityPipe, Descriptor: descriptor, Operation: stage.label()})
			out, err = invoke(ctx, stage, input, snap)
			if popErr := exec.PopSecurityContext(); popErr != nil && err == nil {
				err = popErr
			}
		}

		history = append(history, e.guardPostHook(ctx, exec, stage, input, snap, out, err)...)

		var retry *RetrySignal
		if errors.As(err, &retry) {
			snap = snap.WithTry(out, err, retry.Hint)
			continue
		}

		exec.ClearPipelineContext()
		if err != nil {
			return nil, history, descriptor, err
		}

		nextDescriptor := descriptor
		if d, ok := out.(Descriptored); ok {
			nextDescriptor = descriptor.Compose(d.SecurityDescriptor())
		}
		return out, history, nextDescriptor, nil
	}
}

func (e *Engine) guardPreHook(ctx context.Context, exec ExecContext, stage Stage, input interface{}, snap evalcontext.PipelineContextSnapshot) (evalcontext.GuardDecision, []HistoryEntry) {
	if e.Guards == nil || exec.ShouldSuppressGuards() {
		return evalcontext.GuardDecision{Kind: evalcontext.GuardAllow}, nil
	}
	call := StageCallSite{StageName: stage.label(), Input: input, Pipeline: snap}

	var history []HistoryEntry
	for _, nb := range e.Guards.BeforeGuards() {
		// A guard's own predicate evaluation must not re-trigger guard
		// evaluation recursively (spec.md §4.K step 2): suppress for the
		// duration of this guard's call, then restore whatever suppression
		// state was already in effect.
		prevSuppressed := exec.ShouldSuppressGuards()
		exec.SetGuardSuppression(true)
		decision, err := nb.Guard.Before(ctx, call)
		exec.SetGuardSuppression(prevSuppressed)

		entry := HistoryEntry{ID: uuid.NewString(), Guard: nb.Name, Stage: call.StageName, Decision: decision, Err: err}
		history = append(history, entry)

		if err != nil {
			return evalcontext.GuardDecision{Kind: evalcontext.GuardDeny, Reason: err.Error()}, history
		}
		if decision.Kind == evalcontext.GuardDeny || decision.Kind == evalcontext.GuardRetry {
			return decision, history
		}
	}
	return evalcontext.GuardDecision{Kind: evalcontext.GuardAllow}, history
}

func (e *Engine) guardPostHook(ctx context.Context, exec ExecContext, stage Stage, input interface{}, snap evalcontext.PipelineContextSnapshot, output interface{}, stageErr error) []HistoryEntry {
	if e.Guards == nil {
		return nil
	}
	call := StageCallSite{StageName: stage.label(), Input: input, Pipeline: snap}
	outcome := StageOutcome{Output: output, Err: stageErr}

	var history []HistoryEntry
	for _, na := range e.Guards.AfterGuards() {
		err := na.Guard.After(ctx, call, outcome)
		history = append(history, HistoryEntry{ID: uuid.NewString(), Guard: na.Name, Stage: call.StageName, Err: err})
	}
	return history
}

func (e *Engine) publish(ev StreamEvent) {
	if e.Stream == nil {
		return
	}
	e.Stream.publish(ev)
}
