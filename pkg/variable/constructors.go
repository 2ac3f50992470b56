package variable

import "github.com/mlld-lang/mlld-core/pkg/astnode"

// newMetadata attaches an immutable source and metadata.ctx.definedAt to
// every constructed variable, per spec.md §4.A.
func newMetadata(definedAt astnode.Location) Metadata {
	return Metadata{DefinedAt: definedAt}
}

func CreatePrimitiveVariable(name string, value interface{}, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindPrimitive,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  PrimitivePayload{Value: value},
	}
}

func CreateSimpleTextVariable(name, raw string, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindSimpleText,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  TextPayload{Raw: raw},
	}
}

func CreateTemplateVariable(name string, tmpl *astnode.Template, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindTemplate,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  TextPayload{TemplateAST: tmpl},
	}
}

func CreateSectionExtractVariable(name, raw string, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindSectionExtract,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  TextPayload{Raw: raw},
	}
}

func CreateObjectVariable(name string, object map[string]interface{}, raw map[string]astnode.Expression, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindObject,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload: StructuredPayload{
			Object:    object,
			IsComplex: raw != nil,
			RawObject: raw,
		},
	}
}

func CreateArrayVariable(name string, array []interface{}, raw []astnode.Expression, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindArray,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload: StructuredPayload{
			Array:     array,
			IsComplex: raw != nil,
			RawArray:  raw,
		},
	}
}

func CreatePathVariable(name, resolved string, isURL, isAbsolute bool, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindPath,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  PathPayload{Resolved: resolved, IsURL: isURL, IsAbsolute: isAbsolute},
	}
}

func CreatePipelineInputVariable(name, text string, structured interface{}, origin string, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindPipelineInput,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  PipelineInputPayload{Text: text, Structured: structured, Origin: origin},
	}
}

func CreateExecutableVariable(name string, params []string, lang astnode.ExecLanguage, tmpl *astnode.Template, code string, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindExecutable,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload: ExecutablePayload{
			Params:       params,
			Language:     lang,
			BodyTemplate: tmpl,
			BodyCode:     code,
		},
	}
}

func CreateImportedVariable(name string, value *Variable, sourceRef, importedAs string, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindImported,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  ImportedPayload{Value: value, SourceReference: sourceRef, ImportedAs: importedAs},
	}
}

func CreateComputedVariable(name string, value interface{}, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindComputed,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  ComputedPayload{Value: value},
	}
}

func CreateCommandVariable(name string, def CommandDefinitionKind, tmpl *astnode.Template, src Source, definedAt astnode.Location) *Variable {
	return &Variable{
		Name:     name,
		Kind:     KindCommand,
		Source:   src,
		Metadata: newMetadata(definedAt),
		Payload:  CommandPayload{Definition: def, Template: tmpl},
	}
}

// CreateTransformerVariable builds a built-in transformer callable.
// variants, if non-nil, becomes the parent's Metadata.TransformerVariants
// (spec.md §9's json/json.indent shared-parent mechanism): field access
// on the parent should consult this map before falling back to ordinary
// structured field access.
func CreateTransformerVariable(name string, call TransformerFunc, variants map[string]*Variable, src Source, definedAt astnode.Location) *Variable {
	md := newMetadata(definedAt)
	md.TransformerVariants = variants
	return &Variable{
		Name:     name,
		Kind:     KindTransformer,
		Source:   src,
		Metadata: md,
		Payload:  TransformerPayload{Call: call},
	}
}
