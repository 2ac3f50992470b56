package interpolation

import (
	"context"
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
)

// Deps supplies the callbacks Interpolate needs but cannot import
// directly without a cycle (pkg/environment and pkg/evaluator both
// depend on pkg/interpolation). Mirrors pkg/variable.ResolveDeps and the
// teacher's valueDecoratorLookup/actionDecoratorLookup pattern.
type Deps struct {
	// ResolveVariable looks up name, applies fields and pipes, and
	// returns its resolved value (not yet stringified).
	ResolveVariable func(ctx context.Context, ref astnode.VariableReference) (interface{}, error)

	// LoadFileReference loads, section-extracts, and pipes a file
	// reference, returning its resolved value.
	LoadFileReference func(ctx context.Context, ref astnode.FileReference) (interface{}, error)

	// EvalExecInvocation evaluates an exec invocation, returning its
	// resolved value.
	EvalExecInvocation func(ctx context.Context, inv astnode.ExecInvocation) (interface{}, error)

	// Warn reports a non-fatal diagnostic, used for CircularReferenceError
	// (spec.md §7: "logged as a warning; yields empty string").
	Warn func(msg string)
}

// Interpolate implements spec.md §4.J: converts an interpolation-part
// array into a single string under interpCtx, applying the
// context-specific escaping strategy exactly once per value.
func Interpolate(ctx context.Context, parts []astnode.InterpolationPart, interpCtx Context, deps Deps) (string, error) {
	if len(parts) == 0 {
		return "", nil
	}

	var out []byte
	for _, part := range parts {
		s, err := interpolatePart(ctx, part, interpCtx, deps)
		if err != nil {
			return "", err
		}
		out = append(out, s...)
	}
	return string(out), nil
}

func interpolatePart(ctx context.Context, part astnode.InterpolationPart, interpCtx Context, deps Deps) (string, error) {
	switch p := part.(type) {
	case astnode.TextPart:
		return p.Value, nil

	case astnode.VariableReference:
		if p.Loc().IsZero() {
			// Grammar-bug placeholder per spec.md §4.I: skipped, empty string.
			return "", nil
		}
		if deps.ResolveVariable == nil {
			return "", fmt.Errorf("interpolation: no variable resolver configured")
		}
		val, err := deps.ResolveVariable(ctx, p)
		if err != nil {
			return "", err
		}
		return ToString(val, interpCtx)

	case astnode.FileReference:
		if deps.LoadFileReference == nil {
			return "", fmt.Errorf("interpolation: no file reference loader configured")
		}
		val, err := deps.LoadFileReference(ctx, p)
		if err != nil {
			if deps.Warn != nil {
				deps.Warn(fmt.Sprintf("circular file reference: %v", err))
			}
			return "", nil
		}
		return ToString(val, interpCtx)

	case astnode.ExecInvocation:
		if deps.EvalExecInvocation == nil {
			return "", fmt.Errorf("interpolation: no exec invocation evaluator configured")
		}
		val, err := deps.EvalExecInvocation(ctx, p)
		if err != nil {
			return "", err
		}
		return ToString(val, interpCtx)

	default:
		return "", fmt.Errorf("interpolation: unhandled part type %T", part)
	}
}
