package astnode

// Expression is implemented by literal and reference expression nodes
// that appear inside directive payloads (e.g. `/var` right-hand sides).
type Expression interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

// StringLiteral is a quoted string literal.
type StringLiteral struct {
	exprBase
	Value string
}

func (StringLiteral) Type() NodeType { return "StringLiteral" }

// NumberLiteral is a numeric literal, kept as its source text plus the
// parsed float so callers can choose int vs. float formatting.
type NumberLiteral struct {
	exprBase
	Value string
	Float float64
}

func (NumberLiteral) Type() NodeType { return "NumberLiteral" }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	exprBase
	Value bool
}

func (BooleanLiteral) Type() NodeType { return "BooleanLiteral" }

// NullLiteral is the literal `null`.
type NullLiteral struct {
	exprBase
}

func (NullLiteral) Type() NodeType { return "NullLiteral" }

// Identifier is a bare name reference, used in expression positions that
// are not full interpolated templates (e.g. `/var @x = @y`).
type Identifier struct {
	exprBase
	Name string
}

func (Identifier) Type() NodeType { return "Identifier" }

// ObjectLiteral is a `{ ... }` expression. isComplex (spec.md §3) is true
// when any field value is itself an unevaluated AST fragment rather than a
// literal.
type ObjectLiteral struct {
	exprBase
	Fields    map[string]Expression
	IsComplex bool
}

func (ObjectLiteral) Type() NodeType { return "ObjectLiteral" }

// ArrayLiteral is a `[ ... ]` expression.
type ArrayLiteral struct {
	exprBase
	Elements  []Expression
	IsComplex bool
}

func (ArrayLiteral) Type() NodeType { return "ArrayLiteral" }

// Template is an interpolated string/backtick template: a sequence of
// InterpolationPart nodes evaluated by pkg/interpolation.
type Template struct {
	exprBase
	Parts []InterpolationPart
}

func (Template) Type() NodeType { return "Template" }

// FieldAccess chains `.field` / `[index]` accessors onto a base
// expression, e.g. `@u.name` or `@arr[0]`.
type FieldAccess struct {
	exprBase
	Base  Expression
	Chain []FieldAccessor
}

func (FieldAccess) Type() NodeType { return "FieldAccess" }

// FieldAccessor is one link in a FieldAccess chain.
type FieldAccessor struct {
	Name  string // set for .field access
	Index int    // set for [index] access
	IsIndex bool
}
