package astnode

// DirectiveKind enumerates the eleven directives spec.md §1 names.
type DirectiveKind string

const (
	DirectiveVar    DirectiveKind = "var"
	DirectiveExe    DirectiveKind = "exe"
	DirectiveRun    DirectiveKind = "run"
	DirectiveShow   DirectiveKind = "show"
	DirectiveImport DirectiveKind = "import"
	DirectiveExport DirectiveKind = "export"
	DirectiveWhen   DirectiveKind = "when"
	DirectiveOutput DirectiveKind = "output"
	DirectivePath   DirectiveKind = "path"
	DirectiveFor    DirectiveKind = "for"
	DirectiveGuard  DirectiveKind = "guard"
)

// Directive is implemented by each of the eleven directive payload types.
// The evaluator type-switches on the concrete directive type to dispatch
// (spec.md §4.I); Kind() reports the directive's tag.
type Directive interface {
	Node
	Kind() DirectiveKind
}

type directiveBase struct {
	base
	K DirectiveKind
}

func (d directiveBase) Type() NodeType     { return NodeDirective }
func (d directiveBase) Kind() DirectiveKind { return d.K }

// VarDirective binds a name to an expression: `/var @name = expr`.
type VarDirective struct {
	directiveBase
	Name  string
	Value Expression
}

// ExeDirective declares an executable: `/exe @name(params) = lang { body }`.
type ExeDirective struct {
	directiveBase
	Name       string
	Params     []string
	Language   ExecLanguage
	Template   *Template // for mlld and sh bodies, interpolated per invocation
	CodeBody   string    // raw source for js/node bodies
}

// ExecLanguage is the embedded-language tag for an executable body.
type ExecLanguage string

const (
	LangMlld ExecLanguage = "mlld"
	LangSh   ExecLanguage = "sh"
	LangJS   ExecLanguage = "js"
	LangNode ExecLanguage = "node"
)

// RunDirective invokes a command or executable directly: `/run {...}` or
// `/run @fn(args)`.
type RunDirective struct {
	directiveBase
	Template    *Template       // for inline shell templates
	Invocation  *ExecInvocation // for `/run @fn(args)`
	Pipes       []PipeStage
	CollectErrors bool
}

// ShowDirective emits a value/template into the document:
// `/show "text"` or `/show @expr`.
type ShowDirective struct {
	directiveBase
	Template   *Template
	Expression Expression
	Pipes      []PipeStage
}

// ImportDirective pulls bindings from another file/module/URL.
type ImportDirective struct {
	directiveBase
	Reference string
	Bindings  []ImportBinding
	ImportAll bool
}

// ImportBinding is one `{name as alias}` entry of an /import directive.
type ImportBinding struct {
	Name  string
	Alias string
}

// ExportDirective records the explicit export manifest.
type ExportDirective struct {
	directiveBase
	Names []string
}

// WhenDirective evaluates guarded branches, including `when denied => ...`.
type WhenDirective struct {
	directiveBase
	Branches []WhenBranch
}

// WhenBranch is one condition/action pair of a /when directive.
type WhenBranch struct {
	Condition Expression // nil for a "denied" branch
	IsDenied  bool
	Action    Directive
}

// OutputDirective writes a value to stdout/stderr/file.
type OutputDirective struct {
	directiveBase
	Source Expression
	Target OutputTarget
}

// OutputTarget describes where an /output directive's value is delivered.
type OutputTarget struct {
	Kind string // "stdout" | "stderr" | "file"
	Path *Template
}

// PathDirective binds a path variable: `/path @name = "..."`.
type PathDirective struct {
	directiveBase
	Name     string
	Template *Template
}

// ForDirective iterates a collection, evaluating Body per iteration in a
// child scope.
type ForDirective struct {
	directiveBase
	VarName    string
	Collection Expression
	Body       []Node
}

// GuardDirective registers a named guard with the pipeline engine.
type GuardDirective struct {
	directiveBase
	Name      string
	Phase     string // "before" | "after"
	Predicate Expression
	Action    Expression // denial/retry hint expression
}
