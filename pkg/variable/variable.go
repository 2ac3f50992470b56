// Package variable implements the tagged-union Variable model (spec.md
// §3, §4.A). Every kind-specific behavior lives in pure predicates and
// constructors rather than a subclass hierarchy (spec.md §9 "Environment-
// as-scope rather than inheritance").
package variable

import (
	"time"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
)

// Kind discriminates the payload a Variable carries.
type Kind string

const (
	KindPrimitive      Kind = "primitive"
	KindSimpleText     Kind = "simple-text"
	KindTemplate       Kind = "template"
	KindSectionExtract Kind = "section-extracted"
	KindObject         Kind = "object"
	KindArray          Kind = "array"
	KindPath           Kind = "path"
	KindPipelineInput  Kind = "pipeline-input"
	KindExecutable     Kind = "executable"
	KindImported       Kind = "imported"
	KindComputed       Kind = "computed"
	KindCommand        Kind = "command"
	KindTransformer    Kind = "transformer"
)

// SyntaxForm records how a variable's value was written in source, used
// for display and pipe/interpolation decisions.
type SyntaxForm string

const (
	SyntaxLiteral     SyntaxForm = "literal"
	SyntaxTemplate    SyntaxForm = "template"
	SyntaxReference   SyntaxForm = "reference"
	SyntaxInvocation  SyntaxForm = "invocation"
)

// Source records the directive of origin, the syntax form, and whether
// the value requires interpolation.
type Source struct {
	Directive     astnode.DirectiveKind
	Syntax        SyntaxForm
	Interpolation bool
}

// Metadata carries definition location, provenance, flags, and captured
// shadow environments.
type Metadata struct {
	DefinedAt          astnode.Location
	Provenance         string
	Reserved           bool
	Immutable          bool
	CapturedShadowEnvs map[string]interface{} // language -> shadow env handle
	ModuleEnvHandle    interface{}           // opaque *environment.Environment captured at declaration, for executables (spec.md §3 "module environment")
	TransformerVariants map[string]*Variable  // e.g. "json" -> {"indent": ...}
	DefinedAtTime      time.Time
}

// Variable is the common discriminated record every kind shares. Payload
// holds the kind-specific data (TextPayload, StructuredPayload, ...),
// whose concrete type is selected by Kind.
type Variable struct {
	Name     string
	Kind     Kind
	Source   Source
	Metadata Metadata
	Payload  interface{}
}

// --- Kind-specific payloads ---

// PrimitivePayload holds a number, boolean, or null value.
type PrimitivePayload struct {
	Value interface{} // float64 | bool | nil
}

// TextPayload holds simple-text, template, or section-extracted variables.
type TextPayload struct {
	Raw         string
	TemplateAST *astnode.Template // non-nil only for KindTemplate
}

// StructuredPayload holds object/array variables. IsComplex indicates the
// value still holds unevaluated AST fragments (spec.md §3).
type StructuredPayload struct {
	Object    map[string]interface{}
	Array     []interface{}
	IsComplex bool
	RawObject map[string]astnode.Expression // present only when IsComplex
	RawArray  []astnode.Expression          // present only when IsComplex
}

// PathPayload holds a resolved path string plus URL/absolute flags.
type PathPayload struct {
	Resolved   string
	IsURL      bool
	IsAbsolute bool
}

// PipelineInputPayload holds both the text and structured views of a
// pipeline stage's input, defaulting to Text on resolution.
type PipelineInputPayload struct {
	Text       string
	Structured interface{}
	Origin     string
}

// ExecutablePayload holds an executable's parameter list, body template,
// and any captured environments.
type ExecutablePayload struct {
	Params           []string
	Language         astnode.ExecLanguage
	BodyTemplate     *astnode.Template
	BodyCode         string
	ShadowEnvName    string      // non-empty when the body captured a shadow env
	ModuleEnvID      string      // arena key of the captured module environment, if any
}

// ImportedPayload wraps a value together with its import descriptor.
type ImportedPayload struct {
	Value            *Variable
	SourceReference  string
	ImportedAs       string
}

// ComputedPayload holds the result of a resolver (reserved variables like
// `now`, `debug`, `input`, `base`).
type ComputedPayload struct {
	Value interface{}
}

// TransformerFunc is a built-in transformer's callable body: it receives
// the piped-in value (nil when called with none) and any explicit
// pipe-stage arguments, and returns the transformed value.
type TransformerFunc func(input interface{}, args []interface{}) (interface{}, error)

// TransformerPayload holds a built-in transformer's callable (spec.md
// §4.H "plus built-in transformers", §9 "Built-in transformers with
// dotted variants").
type TransformerPayload struct {
	Call TransformerFunc
}

// CommandDefinitionKind discriminates a command variable's definition.
type CommandDefinitionKind string

const (
	CommandTemplateDef CommandDefinitionKind = "command-template"
	CodeTemplateDef    CommandDefinitionKind = "code-template"
)

// CommandPayload holds a command-variable's definition.
type CommandPayload struct {
	Definition CommandDefinitionKind
	Template   *astnode.Template
}
