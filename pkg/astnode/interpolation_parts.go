package astnode

// InterpolationPart is one element of a Template/interpolation array
// (spec.md §4.J): Text, VariableReference, FileReference, or
// ExecInvocation.
type InterpolationPart interface {
	Node
	interpolationPart()
}

// TextPart is appended verbatim during interpolation.
type TextPart struct {
	base
	Value string
}

func (TextPart) Type() NodeType    { return NodeText }
func (TextPart) interpolationPart() {}

// VariableReference looks up a variable by name and applies field access
// and pipes before conversion to string.
type VariableReference struct {
	base
	Name    string
	Fields  []FieldAccessor
	Pipes   []PipeStage
}

func (VariableReference) Type() NodeType    { return NodeVariableReference }
func (VariableReference) interpolationPart() {}
func (VariableReference) exprNode()          {}

// FileReference loads `<path>`, `<path # section>`, or the placeholder
// `<>` form.
type FileReference struct {
	base
	PathTemplate  *Template // nil for the `<>` placeholder form
	Section       string    // optional named-section extraction
	IsPlaceholder bool
	Fields        []FieldAccessor
	Pipes         []PipeStage
}

func (FileReference) Type() NodeType    { return NodeFileReference }
func (FileReference) interpolationPart() {}

// ExecInvocation calls an executable variable with positional arguments.
type ExecInvocation struct {
	base
	Name string
	Args []Expression
	Pipes []PipeStage
}

func (ExecInvocation) Type() NodeType    { return NodeExecInvocation }
func (ExecInvocation) interpolationPart() {}
func (ExecInvocation) exprNode()          {}

// PipeStage is one element of `value | @stageA | @stageB`: either a named
// executable invocation or a short-form effect like `show`.
type PipeStage struct {
	base
	ExecutableName string
	Args           []Expression
	ShortForm      string // e.g. "show"; empty when ExecutableName is set
}

func (PipeStage) Type() NodeType { return "PipeStage" }
