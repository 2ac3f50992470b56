package evalcontext

// PipelineContextSnapshot is built fresh for each pipeline stage
// (spec.md §4.K step 1): stage index, parallel index, attempt number,
// running history, pipeline id, input, and retry hint.
type PipelineContextSnapshot struct {
	StageIndex    int
	ParallelIndex int
	Try           int
	Tries         []StageAttempt
	PipelineID    string
	Input         interface{}
	Hint          interface{}
}

// StageAttempt records one prior attempt of a stage for ctx.tries.
type StageAttempt struct {
	Output interface{}
	Err    error
}

// WithTry returns a copy with Try incremented and the previous attempt
// appended to Tries, the shape spec.md §4.K step 5 requires on retry.
func (p PipelineContextSnapshot) WithTry(prevOutput interface{}, prevErr error, hint interface{}) PipelineContextSnapshot {
	clone := p
	clone.Tries = append(append([]StageAttempt(nil), p.Tries...), StageAttempt{Output: prevOutput, Err: prevErr})
	clone.Try = p.Try + 1
	clone.Hint = hint
	return clone
}

// GuardDecisionKind is a guard's verdict on a pipeline stage.
type GuardDecisionKind string

const (
	GuardAllow GuardDecisionKind = "allow"
	GuardDeny  GuardDecisionKind = "deny"
	GuardRetry GuardDecisionKind = "retry"
)

// GuardDecision is what a guardPreHook produces for a stage call site.
type GuardDecision struct {
	Kind   GuardDecisionKind
	Reason string
	Hint   interface{}
}

// OpContext identifies the ambient operation an evaluation step is
// running under (spec.md §4.H withOpContext), e.g. which directive
// dispatched this nested evaluation.
type OpContext struct {
	Operation string
	Metadata  map[string]interface{}
}

// DeniedContext marks that the current stage was denied, so `when
// denied => ...` branches downstream can observe it (spec.md §4.K step
// 3, §4.H withDeniedContext).
type DeniedContext struct {
	Denied bool
	Reason string
}

// Ambient bundles the ambient contexts threaded through directive and
// pipeline evaluation: the current op, pipeline snapshot, denial state,
// and guard suppression flag. Every With* method returns a shallow copy
// with one field overridden — the teacher's ExecutionContext.WithMode /
// WithCurrentCommand idiom, generalized to mlld's ambient context set.
type Ambient struct {
	Op              OpContext
	Pipeline        *PipelineContextSnapshot
	Denied          DeniedContext
	GuardSuppressed bool
}

// WithOpContext returns a copy of a with a new operation context.
func (a Ambient) WithOpContext(op OpContext) Ambient {
	clone := a
	clone.Op = op
	return clone
}

// WithPipeContext returns a copy of a with a new pipeline snapshot.
func (a Ambient) WithPipeContext(p PipelineContextSnapshot) Ambient {
	clone := a
	clone.Pipeline = &p
	return clone
}

// ClearPipeContext returns a copy of a with no active pipeline context.
func (a Ambient) ClearPipeContext() Ambient {
	clone := a
	clone.Pipeline = nil
	return clone
}

// WithDeniedContext returns a copy of a marked denied with reason.
func (a Ambient) WithDeniedContext(reason string) Ambient {
	clone := a
	clone.Denied = DeniedContext{Denied: true, Reason: reason}
	return clone
}

// WithGuardContext is an alias entry point for pushing a guard
// evaluation scope; guard recursion prevention is WithGuardSuppression,
// kept separate because a guard may itself be "in a guard context"
// without being suppressed (spec.md §4.K step 2).
func (a Ambient) WithGuardContext() Ambient {
	return a
}

// WithGuardSuppression returns a copy with guard evaluation suppressed,
// preventing a guard's own stage invocation from re-triggering guard
// evaluation recursively (spec.md §4.K step 2).
func (a Ambient) WithGuardSuppression() Ambient {
	clone := a
	clone.GuardSuppressed = true
	return clone
}

// ShouldSuppressGuards reports whether guard evaluation is currently
// suppressed.
func (a Ambient) ShouldSuppressGuards() bool {
	return a.GuardSuppressed
}
