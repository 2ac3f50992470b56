package variable

import (
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
)

// MaxResolutionDepth bounds recursive resolution of complex structured
// variables (spec.md §8 invariant 10): a self-referencing complex value
// must fail with a depth error rather than overflow the stack.
const MaxResolutionDepth = 64

// ResolveDeps supplies the callbacks ResolveVariableValue needs but that
// variable cannot import directly without a cycle (pkg/environment and
// pkg/evaluator both depend on pkg/variable). This mirrors the teacher's
// dependency-injection pattern in runtime/execution/context.go, where
// ExecutionContext holds valueDecoratorLookup/actionDecoratorLookup
// callbacks set by the engine specifically to avoid circular imports.
type ResolveDeps struct {
	// EvaluateComplexObject resolves embedded directives, variable
	// references, file references, and exec invocations inside a complex
	// object's raw fields, recursively, returning a JSON-serialisable map.
	EvaluateComplexObject func(raw map[string]astnode.Expression, depth int) (map[string]interface{}, error)

	// EvaluateComplexArray is the array-shaped counterpart.
	EvaluateComplexArray func(raw []astnode.Expression, depth int) ([]interface{}, error)

	// AutoInvokeExecutable calls an executable variable with no arguments,
	// used when an executable appears where a plain value is expected.
	AutoInvokeExecutable func(v *Variable) (interface{}, error)
}

// ResolveVariableValue implements spec.md §4.A's resolution-to-display
// rule and §8 invariant 5 (the result is JSON-serialisable except for
// executables, which auto-invoke or yield a display sentinel).
func ResolveVariableValue(v *Variable, deps ResolveDeps) (interface{}, error) {
	return resolveAtDepth(v, deps, 0)
}

// ResolveVariableValueAtDepth is the depth-tracking entry point the data-
// value evaluator uses when it recurses back into a nested variable
// reference while resolving a complex object/array (spec.md §8 invariant
// 10).
func ResolveVariableValueAtDepth(v *Variable, deps ResolveDeps, depth int) (interface{}, error) {
	return resolveAtDepth(v, deps, depth)
}

func resolveAtDepth(v *Variable, deps ResolveDeps, depth int) (interface{}, error) {
	if depth > MaxResolutionDepth {
		return nil, &mlerr.VariableResolutionError{Identifier: v.Name, Context: fmt.Sprintf("exceeded max resolution depth %d", MaxResolutionDepth)}
	}

	switch v.Kind {
	case KindPrimitive:
		return v.Payload.(PrimitivePayload).Value, nil

	case KindSimpleText, KindSectionExtract:
		return v.Payload.(TextPayload).Raw, nil

	case KindTemplate:
		// A template variable's raw value is its already-rendered text if
		// present; templates are otherwise rendered by pkg/interpolation
		// before being stored, so Raw is the common case here.
		return v.Payload.(TextPayload).Raw, nil

	case KindObject:
		p := v.Payload.(StructuredPayload)
		if !p.IsComplex {
			return p.Object, nil
		}
		if deps.EvaluateComplexObject == nil {
			return nil, fmt.Errorf("cannot resolve complex object %q: no evaluator configured", v.Name)
		}
		// Depth is threaded through so a self-referencing complex value
		// fails with a depth error rather than recursing unboundedly.
		return deps.EvaluateComplexObject(p.RawObject, depth+1)

	case KindArray:
		p := v.Payload.(StructuredPayload)
		if !p.IsComplex {
			return p.Array, nil
		}
		if deps.EvaluateComplexArray == nil {
			return nil, fmt.Errorf("cannot resolve complex array %q: no evaluator configured", v.Name)
		}
		return deps.EvaluateComplexArray(p.RawArray, depth+1)

	case KindPath:
		return v.Payload.(PathPayload).Resolved, nil

	case KindPipelineInput:
		return v.Payload.(PipelineInputPayload).Text, nil

	case KindExecutable:
		if deps.AutoInvokeExecutable == nil {
			return nil, fmt.Errorf("cannot auto-invoke executable %q: no invoker configured", v.Name)
		}
		return deps.AutoInvokeExecutable(v)

	case KindImported:
		return resolveAtDepth(v.Payload.(ImportedPayload).Value, deps, depth+1)

	case KindComputed:
		return v.Payload.(ComputedPayload).Value, nil

	case KindCommand:
		return nil, fmt.Errorf("command variable %q has no resolvable value", v.Name)

	case KindTransformer:
		// Transformers need real input to do anything useful, so unlike
		// executables they never auto-invoke; a bare reference resolves to
		// a display sentinel (spec.md §8 invariant 5 "executable variables...
		// yield a display sentinel").
		return fmt.Sprintf("<transformer %s>", v.Name), nil

	default:
		return nil, fmt.Errorf("unhandled variable kind %q", v.Kind)
	}
}
