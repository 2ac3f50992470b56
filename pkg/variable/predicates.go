package variable

// The predicates below are mutually exclusive with respect to Kind and
// are total over every constructed Variable (spec.md §4.A).

func IsTextLike(v *Variable) bool {
	switch v.Kind {
	case KindSimpleText, KindTemplate, KindSectionExtract:
		return true
	default:
		return false
	}
}

func IsStructured(v *Variable) bool {
	switch v.Kind {
	case KindObject, KindArray:
		return true
	default:
		return false
	}
}

func IsObject(v *Variable) bool { return v.Kind == KindObject }
func IsArray(v *Variable) bool  { return v.Kind == KindArray }

func IsPath(v *Variable) bool          { return v.Kind == KindPath }
func IsPipelineInput(v *Variable) bool { return v.Kind == KindPipelineInput }
func IsExecutable(v *Variable) bool    { return v.Kind == KindExecutable }
func IsImported(v *Variable) bool      { return v.Kind == KindImported }
func IsComputed(v *Variable) bool      { return v.Kind == KindComputed }
func IsCommandVariable(v *Variable) bool { return v.Kind == KindCommand }
func IsTransformer(v *Variable) bool     { return v.Kind == KindTransformer }

// IsCallable reports whether v can be invoked with arguments: either a
// user-defined executable or a built-in transformer.
func IsCallable(v *Variable) bool { return IsExecutable(v) || IsTransformer(v) }

func IsPrimitive(v *Variable) bool { return v.Kind == KindPrimitive }

// IsComplex reports whether a structured variable still holds unevaluated
// AST fragments. False (and meaningless) for non-structured kinds.
func IsComplex(v *Variable) bool {
	if !IsStructured(v) {
		return false
	}
	return v.Payload.(StructuredPayload).IsComplex
}
