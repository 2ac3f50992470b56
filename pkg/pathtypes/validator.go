package pathtypes

import (
	"path/filepath"
	"strings"
)

// Validator checks raw paths against a ValidationContext and returns a
// ValidatedResourcePath for those that pass. It implements the path
// service contract from spec.md §6. It is not the only source of that
// type: other packages convert strings to it directly.
type Validator struct {
	ctx ValidationContext
}

// NewValidator builds a Validator bound to a fixed ValidationContext.
func NewValidator(ctx ValidationContext) *Validator {
	return &Validator{ctx: ctx}
}

// Validate checks raw against the validator's policy and, on success,
// returns a MeldPath carrying a ValidatedResourcePath.
func (v *Validator) Validate(raw RawPath) (MeldPath, error) {
	s := string(raw)

	if strings.Contains(s, "://") {
		if !v.ctx.AllowExternal {
			return MeldPath{}, &pathValidationFailure{path: s, reason: "URL paths are not allowed in this context"}
		}
		return MeldPath{
			OriginalValue: raw,
			ValidatedPath: ValidatedResourcePath(s),
			IsAbsolute:    false,
			ContentKind:   ContentKindURL,
		}, nil
	}

	isAbs := filepath.IsAbs(s)
	if isAbs && !v.ctx.AllowAbsolute {
		return MeldPath{}, &pathValidationFailure{path: s, reason: "absolute paths are not allowed without --allow-absolute"}
	}
	if !isAbs && !v.ctx.AllowRelative {
		return MeldPath{}, &pathValidationFailure{path: s, reason: "relative paths are not allowed in this context"}
	}

	normalized := s
	if !isAbs {
		normalized = filepath.Join(v.ctx.WorkingDir, s)
	}
	normalized = filepath.Clean(normalized)

	if !v.ctx.AllowParentTraversal && escapesRoot(v.ctx.WorkingDir, normalized) {
		return MeldPath{}, &pathValidationFailure{path: s, reason: "path traversal outside the project root is not allowed"}
	}

	return MeldPath{
		OriginalValue: raw,
		ValidatedPath: ValidatedResourcePath(normalized),
		IsAbsolute:    isAbs,
		ContentKind:   ContentKindFilesystem,
	}, nil
}

func escapesRoot(root, normalized string) bool {
	if root == "" {
		return false
	}
	rel, err := filepath.Rel(root, normalized)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// pathValidationFailure is returned as an error. Its text is
// span-agnostic; Path and Reason expose what a caller needs to build an
// mlerr.PathValidationError with a source span. No code in this module
// builds one from it.
type pathValidationFailure struct {
	path   string
	reason string
}

func (e *pathValidationFailure) Error() string {
	return e.reason
}

// Reason exposes the underlying policy-failure message for mlerr.PathValidationError construction.
func (e *pathValidationFailure) Reason() string { return e.reason }

// Path exposes the rejected path for mlerr.PathValidationError construction.
func (e *pathValidationFailure) Path() string { return e.path }
