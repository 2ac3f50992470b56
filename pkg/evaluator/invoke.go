package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/interpolation"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// resolveDeps builds the variable.ResolveDeps callback set that lets
// pkg/variable resolve complex (AST-bearing) objects/arrays and
// auto-invoke executables without importing pkg/evaluator, mirroring
// the teacher's context.go dependency-injection pattern.
func (ev *Evaluator) resolveDeps(ctx context.Context, env *environment.Environment) variable.ResolveDeps {
	return variable.ResolveDeps{
		EvaluateComplexObject: func(raw map[string]astnode.Expression, depth int) (map[string]interface{}, error) {
			out := make(map[string]interface{}, len(raw))
			for k, expr := range raw {
				v, err := ev.evalExpression(ctx, expr, env)
				if err != nil {
					return nil, err
				}
				out[k] = v
			}
			return out, nil
		},
		EvaluateComplexArray: func(raw []astnode.Expression, depth int) ([]interface{}, error) {
			out := make([]interface{}, 0, len(raw))
			for _, expr := range raw {
				v, err := ev.evalExpression(ctx, expr, env)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		},
		AutoInvokeExecutable: func(v *variable.Variable) (interface{}, error) {
			return ev.invokeExecutable(ctx, v, nil, env)
		},
	}
}

// interpolationDeps builds the interpolation.Deps callback set binding
// pkg/interpolation to this evaluator's variable/file/exec resolution,
// the same decoupling pkg/interpolation.Deps documents.
func (ev *Evaluator) interpolationDeps(ctx context.Context, env *environment.Environment) interpolation.Deps {
	return interpolation.Deps{
		ResolveVariable: func(ctx context.Context, ref astnode.VariableReference) (interface{}, error) {
			return ev.resolveVariableReference(ctx, ref, env)
		},
		LoadFileReference: func(ctx context.Context, ref astnode.FileReference) (interface{}, error) {
			return ev.loadFileReference(ctx, ref, env)
		},
		EvalExecInvocation: func(ctx context.Context, inv astnode.ExecInvocation) (interface{}, error) {
			return ev.evalExecInvocation(ctx, inv, env)
		},
		Warn: func(msg string) {
			_ = env.EmitEffect(environment.Effect{Type: "stderr", Content: "warning: " + msg}, env.FilePath())
		},
	}
}

// evalExecInvocation resolves the named executable, evaluates its
// arguments, invokes it, and pipes the result through any trailing
// pipe stages (spec.md §4.A, §4.K).
func (ev *Evaluator) evalExecInvocation(ctx context.Context, inv astnode.ExecInvocation, env *environment.Environment) (interface{}, error) {
	v, ok := env.GetVariable(inv.Name)
	if !ok {
		return nil, &mlerr.VariableResolutionError{Identifier: inv.Name, Context: "executable invocation", Span: spanOf(env, inv.Loc())}
	}
	v = unwrapImported(v)
	if !variable.IsCallable(v) {
		return nil, &mlerr.VariableResolutionError{Identifier: inv.Name, Context: "not an executable variable", Span: spanOf(env, inv.Loc())}
	}

	args := make([]interface{}, 0, len(inv.Args))
	for _, a := range inv.Args {
		val, err := ev.evalExpression(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	out, err := ev.invokeExecutable(ctx, v, args, env)
	if err != nil {
		return nil, err
	}
	if len(inv.Pipes) > 0 {
		return ev.runPipeline(ctx, out, inv.Pipes, env)
	}
	return out, nil
}

// invokeExecutable runs v's body against args, dispatching on its
// captured language (spec.md §4.A: executables defined in mlld, shell,
// or JavaScript/Node) or, for a built-in transformer, calling its
// native Go implementation directly (spec.md §4.H, §9).
func (ev *Evaluator) invokeExecutable(ctx context.Context, v *variable.Variable, args []interface{}, env *environment.Environment) (interface{}, error) {
	if variable.IsTransformer(v) {
		payload, ok := v.Payload.(variable.TransformerPayload)
		if !ok {
			return nil, &mlerr.MeldInternalError{Invariant: "transformer-payload-shape", Detail: fmt.Sprintf("variable %q is Kind=transformer but payload is %T", v.Name, v.Payload)}
		}
		var input interface{}
		rest := args
		if len(args) > 0 {
			input, rest = args[0], args[1:]
		}
		return payload.Call(input, rest)
	}

	payload, ok := v.Payload.(variable.ExecutablePayload)
	if !ok {
		return nil, &mlerr.MeldInternalError{Invariant: "executable-payload-shape", Detail: fmt.Sprintf("variable %q is Kind=executable but payload is %T", v.Name, v.Payload)}
	}

	switch payload.Language {
	case astnode.LangJS, astnode.LangNode:
		declaringEnv := env
		if handle, ok := v.Metadata.ModuleEnvHandle.(*environment.Environment); ok && handle != nil {
			declaringEnv = handle
		}
		return declaringEnv.ExecuteCode(ctx, payload.Language, v.Name, args)

	case astnode.LangSh:
		child := bindParams(env, v.Metadata.ModuleEnvHandle, payload.Params, args)
		cmd, err := interpolation.Interpolate(ctx, payload.BodyTemplate.Parts, interpolation.ShellCommand, ev.interpolationDeps(ctx, child))
		if err != nil {
			return nil, err
		}
		stdout, _, _, err := env.ExecuteCommand(ctx, "sh", cmd, 0)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(stdout, "\n"), nil

	case astnode.LangMlld:
		child := bindParams(env, v.Metadata.ModuleEnvHandle, payload.Params, args)
		return interpolation.Interpolate(ctx, payload.BodyTemplate.Parts, interpolation.Default, ev.interpolationDeps(ctx, child))

	default:
		return nil, &mlerr.MeldInternalError{Invariant: "known-exec-language", Detail: fmt.Sprintf("invokeExecutable: unhandled language %q", payload.Language)}
	}
}

// unwrapImported follows a chain of imported-variable wrappers down to
// the underlying declared variable (spec.md §4.A "imported: value plus
// import descriptor").
func unwrapImported(v *variable.Variable) *variable.Variable {
	for variable.IsImported(v) {
		v = v.Payload.(variable.ImportedPayload).Value
	}
	return v
}

// bindParams creates a child scope binding each parameter name to the
// corresponding positional argument, via setParameterVariable (spec.md
// §4.H: bypasses reserved/import-collision checks for parameter
// binding). moduleEnvHandle, if it unwraps to an *environment.Environment,
// is restored as the child's captured module environment so an imported
// executable can still see its sibling declarations (spec.md §3
// "module environment").
func bindParams(env *environment.Environment, moduleEnvHandle interface{}, params []string, args []interface{}) *environment.Environment {
	child := env.CreateChild("")
	if moduleEnv, ok := moduleEnvHandle.(*environment.Environment); ok && moduleEnv != nil {
		child.SetModuleEnv(moduleEnv)
	}
	for i, p := range params {
		var val interface{}
		if i < len(args) {
			val = args[i]
		}
		child.SetParameterVariable(p, variable.CreateComputedVariable(p, val, variable.Source{}, astnode.Location{}))
	}
	return child
}

// loadFileReference resolves a `<path>`, `<path # section>`, or `<>`
// placeholder file reference (spec.md §4.J).
func (ev *Evaluator) loadFileReference(ctx context.Context, ref astnode.FileReference, env *environment.Environment) (interface{}, error) {
	var path string
	if ref.IsPlaceholder {
		path = env.IterationFile()
	} else {
		rendered, err := interpolation.Interpolate(ctx, ref.PathTemplate.Parts, interpolation.Path, ev.interpolationDeps(ctx, env))
		if err != nil {
			return nil, err
		}
		path = rendered
	}

	if env.IsImporting(path) {
		return nil, &mlerr.CircularReferenceError{Path: path}
	}
	if err := env.BeginImport(path); err != nil {
		return nil, err
	}
	defer env.EndImport(path)

	result, err := env.Importer().Import(ctx, path)
	if err != nil {
		return nil, err
	}

	content := result.Content
	if ref.Section != "" {
		content = extractSection(content, ref.Section)
	}

	var val interface{} = content
	if len(ref.Fields) > 0 {
		val, err = applyFieldChain(val, ref.Fields, ref.Loc())
		if err != nil {
			return nil, err
		}
	}
	if len(ref.Pipes) > 0 {
		return ev.runPipeline(ctx, val, ref.Pipes, env)
	}
	return val, nil
}

// extractSection returns the Markdown block under the first heading
// whose text matches name, up to (but excluding) the next heading at
// the same or a shallower level.
func extractSection(content, name string) string {
	lines := strings.Split(content, "\n")
	start := -1
	level := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		hLevel := headingLevel(trimmed)
		if hLevel == 0 {
			continue
		}
		if start == -1 {
			if strings.EqualFold(strings.TrimSpace(strings.TrimLeft(trimmed, "#")), name) {
				start = i
				level = hLevel
			}
			continue
		}
		if hLevel <= level {
			return strings.Join(lines[start+1:i], "\n")
		}
	}
	if start == -1 {
		return ""
	}
	return strings.Join(lines[start+1:], "\n")
}

// runPipeline converts parsed pipe stages into pipeline.Stage values and
// drives them through a pipeline.Engine seeded with env's guard registry
// and the evaluator's stream bus (spec.md §4.K).
func (ev *Evaluator) runPipeline(ctx context.Context, input interface{}, stages []astnode.PipeStage, env *environment.Environment) (interface{}, error) {
	engine := pipeline.NewEngine(env.Guards(), ev.Stream)

	pstages := make([]pipeline.Stage, len(stages))
	for i, s := range stages {
		args := make([]interface{}, 0, len(s.Args))
		for _, a := range s.Args {
			v, err := ev.evalExpression(ctx, a, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		pstages[i] = pipeline.Stage{Name: s.ExecutableName, ShortForm: s.ShortForm, Args: args}
	}

	invoke := func(ctx context.Context, stage pipeline.Stage, stageInput interface{}, snap evalcontext.PipelineContextSnapshot) (interface{}, error) {
		if stage.ShortForm != "" {
			return ev.runShortFormStage(ctx, stage, stageInput, env)
		}
		v, ok := env.GetVariable(stage.Name)
		if !ok {
			return nil, &mlerr.VariableResolutionError{Identifier: stage.Name, Context: "pipeline stage", Span: spanOf(env, astnode.Location{})}
		}
		v = unwrapImported(v)
		callArgs := append([]interface{}{stageInput}, stage.Args...)
		return ev.invokeExecutable(ctx, v, callArgs, env)
	}

	out, _, err := engine.Run(ctx, env, uuid.NewString(), input, pstages, invoke)
	return out, err
}

// runShortFormStage dispatches a bare pipe stage like `| show` or
// `| log` that has no named executable, per spec.md §4.K.
func (ev *Evaluator) runShortFormStage(ctx context.Context, stage pipeline.Stage, input interface{}, env *environment.Environment) (interface{}, error) {
	switch stage.ShortForm {
	case "show":
		if err := env.EmitEffect(environment.Effect{Type: "stdout", Content: fmt.Sprint(input), Source: "pipeline:show"}, env.FilePath()); err != nil {
			return nil, err
		}
		return input, nil
	case "log":
		if err := env.EmitEffect(environment.Effect{Type: "stderr", Content: fmt.Sprint(input), Source: "pipeline:log"}, env.FilePath()); err != nil {
			return nil, err
		}
		return input, nil
	default:
		return nil, &mlerr.MeldInternalError{Invariant: "known-pipe-shortform", Detail: fmt.Sprintf("runShortFormStage: unhandled short form %q", stage.ShortForm)}
	}
}

func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0
	}
	return n
}
