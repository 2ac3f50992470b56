// Package evaluator implements Component I (spec.md §4.I): the
// recursive tree-walk that interleaves directive side effects with
// Markdown text emission. Grounded on the teacher's runtime/planner and
// runtime/parser tree-walking shape — a single dispatch function keyed
// on node type, delegating each directive kind to its own evaluator
// function rather than one large switch body — generalized from the
// teacher's execution-tree node kinds (CommandNode, PipelineNode,
// AndNode, ...) to mlld's eleven directive kinds.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
)

// ParseFunc turns mlld source text into a Document. Parsing itself is
// an external collaborator (spec.md §1 Non-goals: "not ... a Markdown/
// AST grammar and parser"); the evaluator only needs it to re-parse
// imported module source (spec.md §3 "Modules are further processed
// (re-parsed and evaluated) by the import pipeline").
type ParseFunc func(source string) (*astnode.Document, error)

// Evaluator walks a Document against a root Environment, emitting
// Markdown text through the environment's effect handler and buffering
// document nodes for any caller that wants the full rendered tree.
type Evaluator struct {
	Stream *pipeline.Bus
	Parse  ParseFunc
}

// New returns an Evaluator. stream may be nil; no events are emitted.
// parse may be nil; `/import` of an mlld module then fails with a
// MeldInternalError instead of silently treating the module as text.
func New(stream *pipeline.Bus, parse ParseFunc) *Evaluator {
	return &Evaluator{Stream: stream, Parse: parse}
}

// EvaluateDocument walks doc's children in order against env, returning
// the concatenated Markdown output (spec.md §4.I "Document / array
// input").
func (ev *Evaluator) EvaluateDocument(ctx context.Context, doc *astnode.Document, env *environment.Environment) (string, error) {
	var out strings.Builder
	for _, n := range doc.Children {
		s, err := ev.evalNode(ctx, n, env)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// evalNode dispatches on the Go node type. It handles Text, Newline,
// Comment, Frontmatter, CodeFence, MlldRunBlock and Directive nodes; any
// other node (a nested Document, or a VariableReference, ExecInvocation
// or FileReference standing at document level) returns a
// MeldInternalError.
func (ev *Evaluator) evalNode(ctx context.Context, n astnode.Node, env *environment.Environment) (string, error) {
	switch node := n.(type) {
	case *astnode.Text:
		env.AddNode(node)
		return node.Value, nil

	case *astnode.Newline:
		env.AddNode(node)
		return "\n", nil

	case *astnode.Comment:
		// Never appended to output, per astnode.Comment's doc comment.
		return "", nil

	case *astnode.Frontmatter:
		// Decoding into `fm`/`frontmatter` bindings is out of scope here
		// (YAML frontmatter decoding is an external collaborator per
		// spec.md §1); the raw block adds no text to the returned output,
		// though it is still recorded in env's node buffer.
		env.AddNode(node)
		return "", nil

	case *astnode.CodeFence:
		env.AddNode(node)
		return "```" + node.Language + "\n" + node.Body + "\n```", nil

	case *astnode.MlldRunBlock:
		return ev.evalMlldRunBlock(ctx, node, env)

	case astnode.Directive:
		return "", ev.evalDirective(ctx, node, env)

	default:
		return "", &mlerr.MeldInternalError{Invariant: "known-node-type", Detail: fmt.Sprintf("evalNode: unhandled node type %T", n)}
	}
}

// evalMlldRunBlock executes a fenced code block tagged for direct
// execution as a shell command in env's exec directory, emitting its
// stdout as an effect and returning empty string (it does not appear
// inline — spec.md §4.A "emits effects, not inline text").
func (ev *Evaluator) evalMlldRunBlock(ctx context.Context, node *astnode.MlldRunBlock, env *environment.Environment) (string, error) {
	stdout, _, _, err := env.ExecuteCommand(ctx, "sh", node.Body, 0)
	if err != nil {
		return "", err
	}
	if err := env.EmitEffect(environment.Effect{Type: "stdout", Content: stdout, Source: "mlld-run-block"}, env.FilePath()); err != nil {
		return "", err
	}
	return "", nil
}

// evalDirective dispatches on the directive's Go type to the
// per-directive evaluator, per spec.md §4.I.
func (ev *Evaluator) evalDirective(ctx context.Context, d astnode.Directive, env *environment.Environment) error {
	switch dir := d.(type) {
	case *astnode.VarDirective:
		return ev.evalVar(ctx, dir, env)
	case *astnode.ExeDirective:
		return ev.evalExe(ctx, dir, env)
	case *astnode.RunDirective:
		return ev.evalRun(ctx, dir, env)
	case *astnode.ShowDirective:
		return ev.evalShow(ctx, dir, env)
	case *astnode.OutputDirective:
		return ev.evalOutput(ctx, dir, env)
	case *astnode.ImportDirective:
		return ev.evalImport(ctx, dir, env)
	case *astnode.ExportDirective:
		return ev.evalExport(ctx, dir, env)
	case *astnode.WhenDirective:
		return ev.evalWhen(ctx, dir, env)
	case *astnode.ForDirective:
		return ev.evalFor(ctx, dir, env)
	case *astnode.PathDirective:
		return ev.evalPath(ctx, dir, env)
	case *astnode.GuardDirective:
		return ev.evalGuard(ctx, dir, env)
	default:
		return &mlerr.MeldInternalError{Invariant: "known-directive-kind", Detail: fmt.Sprintf("evalDirective: unhandled directive type %T", d)}
	}
}
