package mlerr

import "fmt"

// VariableResolutionError is raised when a lookup misses or a complex
// variable's resolution exceeds MaxResolutionDepth.
type VariableResolutionError struct {
	Identifier string
	Context    string
	Span       Span
}

func (e *VariableResolutionError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: cannot resolve variable %q (%s)", e.Span, e.Identifier, e.Context)
	}
	return fmt.Sprintf("%s: cannot resolve variable %q", e.Span, e.Identifier)
}

// VariableRedefinitionError is raised when setVariable targets an existing
// or reserved identifier.
type VariableRedefinitionError struct {
	Identifier string
	Reserved   bool
	Span       Span
}

func (e *VariableRedefinitionError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("%s: %q is a reserved identifier and cannot be bound", e.Span, e.Identifier)
	}
	return fmt.Sprintf("%s: %q is already defined in this scope", e.Span, e.Identifier)
}

// FieldAccessError is raised on a missing field, an out-of-bounds index, or
// field access on a non-object value.
type FieldAccessError struct {
	Base        interface{}
	Chain       []string
	FailedIndex int
	Span        Span
}

func (e *FieldAccessError) Error() string {
	return fmt.Sprintf("%s: cannot access field %q of %v (chain %v)", e.Span, e.Chain[e.FailedIndex], e.Base, e.Chain)
}

// PathValidationError is raised when a path fails policy: absolute outside
// the project root without --allow-absolute, disallowed traversal, or a
// disallowed URL.
type PathValidationError struct {
	Path   string
	Reason string
	Span   Span
}

func (e *PathValidationError) Error() string {
	return fmt.Sprintf("%s: path %q rejected: %s", e.Span, e.Path, e.Reason)
}

// CircularImportError is raised when the import stack already contains the
// target path.
type CircularImportError struct {
	Path  string
	Stack []string
}

func (e *CircularImportError) Error() string {
	return fmt.Sprintf("circular import: %q is already being imported (stack: %v)", e.Path, e.Stack)
}

// CircularReferenceError is raised during interpolation when a file
// reference cycles back on itself. Per spec.md §7, the evaluator logs this
// as a warning and yields an empty string rather than propagating it — the
// type exists so the warning has a structured shape.
type CircularReferenceError struct {
	Path string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular file reference: %q", e.Path)
}

// ImportApprovalError is raised when the user or policy denies imported
// content, or a previously-approved hash no longer matches.
type ImportApprovalError struct {
	Source       string
	HashMismatch bool
	Reason       string
}

func (e *ImportApprovalError) Error() string {
	if e.HashMismatch {
		return fmt.Sprintf("import approval failed for %q: content hash no longer matches the approved hash", e.Source)
	}
	return fmt.Sprintf("import approval failed for %q: %s", e.Source, e.Reason)
}

// CommandExecutionError is raised on a non-zero exit, a timeout, or a spawn
// failure.
type CommandExecutionError struct {
	Command  string
	Stderr   string
	ExitCode int
	Duration string
	TimedOut bool
}

func (e *CommandExecutionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("command %q timed out after %s", e.Command, e.Duration)
	}
	return fmt.Sprintf("command %q exited %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// ShadowEnvironmentError is raised on shadow VM construction or invocation
// failure.
type ShadowEnvironmentError struct {
	Language string
	Reason   string
}

func (e *ShadowEnvironmentError) Error() string {
	return fmt.Sprintf("shadow environment (%s) failed: %s", e.Language, e.Reason)
}

// MeldInternalError signals a broken invariant: unbalanced security stack,
// unknown node type, or similar programmer error. Always fatal.
type MeldInternalError struct {
	Invariant string
	Detail    string
}

func (e *MeldInternalError) Error() string {
	return fmt.Sprintf("internal invariant violated (%s): %s", e.Invariant, e.Detail)
}

// CollectedError is the deferred form of a non-zero-exit command collected
// with collectErrors: true — recorded rather than thrown so the surrounding
// document continues evaluating.
type CollectedError struct {
	Command  string
	ExitCode int
	Stderr   string
	Span     Span
}

func (e *CollectedError) Error() string {
	return fmt.Sprintf("%s: command %q exited %d", e.Span, e.Command, e.ExitCode)
}
