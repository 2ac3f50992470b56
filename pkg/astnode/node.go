// Package astnode defines the node shapes the parser contract (spec.md §6)
// promises the evaluator. The grammar and parser themselves are an
// external collaborator — this package only pins down the data shape the
// evaluator (pkg/evaluator) walks.
package astnode

// Location mirrors the parser contract: every node carries a start/end
// offset pair used both for error spans (pkg/mlerr.Span) and for detecting
// the grammar-bug placeholder VariableReference (start==end==0).
type Location struct {
	Start Position
	End   Position
}

// Position is one endpoint of a Location.
type Position struct {
	Line   int
	Column int
	Offset int
}

// IsZero reports whether the location is the {0,0} placeholder the
// evaluator must skip per spec.md §4.I.
func (l Location) IsZero() bool {
	return l.Start == Position{} && l.End == Position{}
}

// NodeType discriminates the node kinds the evaluator's tree walk
// dispatches on (spec.md §4.I).
type NodeType string

const (
	NodeDocument          NodeType = "Document"
	NodeDirective         NodeType = "Directive"
	NodeText              NodeType = "Text"
	NodeNewline           NodeType = "Newline"
	NodeComment           NodeType = "Comment"
	NodeFrontmatter       NodeType = "Frontmatter"
	NodeCodeFence         NodeType = "CodeFence"
	NodeRunBlock          NodeType = "MlldRunBlock"
	NodeVariableReference NodeType = "VariableReference"
	NodeExecInvocation    NodeType = "ExecInvocation"
	NodeFileReference     NodeType = "FileReference"
)

// Node is implemented by every node type the parser can emit.
type Node interface {
	Type() NodeType
	NodeID() string
	Loc() Location
}

// base is embedded by every concrete node to satisfy the common part of
// Node without repeating NodeID/Loc accessors everywhere.
type base struct {
	ID       string
	Location Location
}

func (b base) NodeID() string { return b.ID }
func (b base) Loc() Location  { return b.Location }

// Document is the root node: a flat sequence of child nodes, optionally
// led by a Frontmatter node (spec.md §4.I "Document / array input").
type Document struct {
	base
	Children []Node
}

func (Document) Type() NodeType { return NodeDocument }

// Text is a verbatim Markdown fragment appended to document output as-is.
type Text struct {
	base
	Value string
}

func (Text) Type() NodeType { return NodeText }

// Newline is a standalone newline node between Markdown blocks.
type Newline struct {
	base
}

func (Newline) Type() NodeType { return NodeNewline }

// Comment is an mlld `>>` or HTML comment; never appended to output.
type Comment struct {
	base
	Value  string
	Inline bool
}

func (Comment) Type() NodeType { return NodeComment }

// Frontmatter is the leading YAML block, decoded and bound as `fm` /
// `frontmatter` by the evaluator (parsing itself is out of scope).
type Frontmatter struct {
	base
	Raw string
}

func (Frontmatter) Type() NodeType { return NodeFrontmatter }

// CodeFence is a fenced code block that is not an MlldRunBlock.
type CodeFence struct {
	base
	Language string
	Body     string
}

func (CodeFence) Type() NodeType { return NodeCodeFence }

// MlldRunBlock is a fenced code block tagged for direct execution.
type MlldRunBlock struct {
	base
	Language string
	Body     string
}

func (MlldRunBlock) Type() NodeType { return NodeRunBlock }
