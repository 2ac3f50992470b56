package environment

import "github.com/mlld-lang/mlld-core/pkg/evalcontext"

// The methods below implement spec.md §4.H's pipeline/guard API list.
// Execution is single-threaded and cooperative (spec.md §5), so the
// ambient context lives directly on the owning Environment rather than
// being threaded as an immutable value through every call — mutating
// setters mirror the spec's imperative method names, while the With*
// accessors return a scoped copy for call sites that need one without
// touching e's own ambient state.

func (e *Environment) SetPipelineContext(p evalcontext.PipelineContextSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ambient = e.ambient.WithPipeContext(p)
}

func (e *Environment) ClearPipelineContext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ambient = e.ambient.ClearPipeContext()
}

func (e *Environment) UpdatePipelineContext(p evalcontext.PipelineContextSnapshot) {
	e.SetPipelineContext(p)
}

func (e *Environment) GetPipelineContext() (evalcontext.PipelineContextSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.ambient.Pipeline == nil {
		return evalcontext.PipelineContextSnapshot{}, false
	}
	return *e.ambient.Pipeline, true
}

// WithGuardContext returns a copy of e's ambient context. Ambient carries
// no guard-active marker, so the copy equals the current context.
func (e *Environment) WithGuardContext() evalcontext.Ambient {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ambient.WithGuardContext()
}

// SetGuardSuppression commits suppressed to e's own ambient state,
// so a subsequent ShouldSuppressGuards() call observes it (spec.md
// §4.K step 2's guard recursion guard).
func (e *Environment) SetGuardSuppression(suppressed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if suppressed {
		e.ambient = e.ambient.WithGuardSuppression()
		return
	}
	e.ambient.GuardSuppressed = false
}

// ShouldSuppressGuards reports the current ambient's suppression flag.
func (e *Environment) ShouldSuppressGuards() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ambient.ShouldSuppressGuards()
}

// WithOpContext returns a copy of the ambient context under op.
func (e *Environment) WithOpContext(op evalcontext.OpContext) evalcontext.Ambient {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ambient.WithOpContext(op)
}

// WithDeniedContext returns a copy of the ambient context marked denied.
func (e *Environment) WithDeniedContext(reason string) evalcontext.Ambient {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ambient.WithDeniedContext(reason)
}

// WithPipeContext returns a copy of the ambient context carrying p,
// without mutating e's own ambient state (used by call sites that run
// a nested evaluation under a pipeline context without committing it).
func (e *Environment) WithPipeContext(p evalcontext.PipelineContextSnapshot) evalcontext.Ambient {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ambient.WithPipeContext(p)
}
