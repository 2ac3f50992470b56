package evaluator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/interpolation"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
	"github.com/mlld-lang/mlld-core/pkg/shadow"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// Each evalX method below pushes its capability context on entry and
// pops it on exit, per spec.md §4.I "Each is expected to push its
// capability context on entry and pop it on exit."

func pushCapability(env *environment.Environment, kind pathtypes.CapabilityKind, op string) {
	env.PushSecurityContext(pathtypes.CapabilityContext{
		Kind:       kind,
		Descriptor: env.EffectiveDescriptor(),
		Operation:  op,
	})
}

// evalVar implements `/var @name = expr` (spec.md §4.A).
func (ev *Evaluator) evalVar(ctx context.Context, dir *astnode.VarDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityExe, "var")
	defer env.PopSecurityContext()

	v, err := ev.buildVariableFromExpr(ctx, dir.Name, dir.Value, astnode.DirectiveVar, env)
	if err != nil {
		return err
	}
	return env.SetVariable(dir.Name, v)
}

// buildVariableFromExpr chooses the right Variable constructor for expr's
// shape, per spec.md §3's Kind taxonomy.
func (ev *Evaluator) buildVariableFromExpr(ctx context.Context, name string, expr astnode.Expression, kind astnode.DirectiveKind, env *environment.Environment) (*variable.Variable, error) {
	src := variable.Source{Directive: kind}
	loc := expr.Loc()

	switch e := expr.(type) {
	case *astnode.StringLiteral:
		src.Syntax = variable.SyntaxLiteral
		return variable.CreateSimpleTextVariable(name, e.Value, src, loc), nil
	case *astnode.NumberLiteral:
		src.Syntax = variable.SyntaxLiteral
		return variable.CreatePrimitiveVariable(name, e.Float, src, loc), nil
	case *astnode.BooleanLiteral:
		src.Syntax = variable.SyntaxLiteral
		return variable.CreatePrimitiveVariable(name, e.Value, src, loc), nil
	case *astnode.NullLiteral:
		src.Syntax = variable.SyntaxLiteral
		return variable.CreatePrimitiveVariable(name, nil, src, loc), nil

	case *astnode.Template:
		src.Syntax = variable.SyntaxTemplate
		src.Interpolation = true
		rendered, err := ev.renderTemplate(ctx, e, env)
		if err != nil {
			return nil, err
		}
		v := variable.CreateTemplateVariable(name, e, src, loc)
		v.Payload = variable.TextPayload{Raw: rendered, TemplateAST: e}
		return v, nil

	case *astnode.ObjectLiteral:
		src.Syntax = variable.SyntaxLiteral
		if !e.IsComplex {
			obj, err := ev.evalObjectLiteral(ctx, e, env)
			if err != nil {
				return nil, err
			}
			return variable.CreateObjectVariable(name, obj, nil, src, loc), nil
		}
		return variable.CreateObjectVariable(name, nil, e.Fields, src, loc), nil

	case *astnode.ArrayLiteral:
		src.Syntax = variable.SyntaxLiteral
		if !e.IsComplex {
			arr, err := ev.evalArrayLiteral(ctx, e, env)
			if err != nil {
				return nil, err
			}
			return variable.CreateArrayVariable(name, arr, nil, src, loc), nil
		}
		return variable.CreateArrayVariable(name, nil, e.Elements, src, loc), nil

	default:
		src.Syntax = variable.SyntaxReference
		val, err := ev.evalExpression(ctx, expr, env)
		if err != nil {
			return nil, err
		}
		return variable.CreateComputedVariable(name, val, src, loc), nil
	}
}

// evalExe implements `/exe @name(params) = lang { body }` (spec.md §4.A).
// JavaScript/Node bodies capture a shadow function; mlld/sh bodies are
// re-interpolated per invocation.
func (ev *Evaluator) evalExe(ctx context.Context, dir *astnode.ExeDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityExe, "exe")
	defer env.PopSecurityContext()

	if dir.Language == astnode.LangJS || dir.Language == astnode.LangNode {
		env.ShadowEnvironments().For(shadow.Language(dir.Language)).Capture(dir.Name, dir.CodeBody)
	}

	v := variable.CreateExecutableVariable(dir.Name, dir.Params, dir.Language, dir.Template, dir.CodeBody, variable.Source{Directive: astnode.DirectiveExe, Syntax: variable.SyntaxInvocation}, dir.Loc())
	v.Metadata.ModuleEnvHandle = env
	return env.SetVariable(dir.Name, v)
}

// evalRun implements `/run {...}` and `/run @fn(args)` (spec.md §4.A):
// executes a command or named executable and emits its output as an
// effect rather than inline text.
func (ev *Evaluator) evalRun(ctx context.Context, dir *astnode.RunDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityEffect, "run")
	defer env.PopSecurityContext()

	var out interface{}
	var err error

	switch {
	case dir.Invocation != nil:
		out, err = ev.evalExecInvocation(ctx, *dir.Invocation, env)
	case dir.Template != nil:
		var cmd string
		cmd, err = interpolation.Interpolate(ctx, dir.Template.Parts, interpolation.ShellCommand, ev.interpolationDeps(ctx, env))
		if err == nil {
			var stdout, stderr string
			var code int
			stdout, stderr, code, err = env.ExecuteCommand(ctx, "sh", cmd, 0)
			if err != nil && dir.CollectErrors {
				out = &mlerr.CollectedError{Command: cmd, ExitCode: code, Stderr: stderr}
				err = nil
			} else {
				out = strings.TrimRight(stdout, "\n")
			}
		}
	default:
		return &mlerr.MeldInternalError{Invariant: "run-directive-shape", Detail: "evalRun: neither Invocation nor Template set"}
	}
	if err != nil {
		return err
	}

	if len(dir.Pipes) > 0 {
		out, err = ev.runPipeline(ctx, out, dir.Pipes, env)
		if err != nil {
			return err
		}
	}

	return env.EmitEffect(environment.Effect{Type: "stdout", Content: fmt.Sprint(out), Source: "run"}, env.FilePath())
}

// evalShow implements `/show "text"` and `/show @expr` (spec.md §4.A):
// the evaluated/interpolated value is emitted as document output.
func (ev *Evaluator) evalShow(ctx context.Context, dir *astnode.ShowDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityEffect, "show")
	defer env.PopSecurityContext()

	var text string
	var err error

	if dir.Template != nil {
		text, err = ev.renderTemplate(ctx, dir.Template, env)
	} else {
		var val interface{}
		val, err = ev.evalExpression(ctx, dir.Expression, env)
		if err == nil {
			text = fmt.Sprint(val)
		}
	}
	if err != nil {
		return err
	}

	if len(dir.Pipes) > 0 {
		out, err := ev.runPipeline(ctx, text, dir.Pipes, env)
		if err != nil {
			return err
		}
		text = fmt.Sprint(out)
	}

	return env.EmitEffect(environment.Effect{Type: "doc", Content: text, Source: "show"}, env.FilePath())
}

// evalOutput implements `/output @expr to stdout|stderr|file` (spec.md
// §4.A / §6 effect handler contract).
func (ev *Evaluator) evalOutput(ctx context.Context, dir *astnode.OutputDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityEffect, "output")
	defer env.PopSecurityContext()

	val, err := ev.evalExpression(ctx, dir.Source, env)
	if err != nil {
		return err
	}

	eff := environment.Effect{Type: dir.Target.Kind, Content: fmt.Sprint(val), Source: "output"}
	if dir.Target.Kind == "file" {
		path, err := interpolation.Interpolate(ctx, dir.Target.Path.Parts, interpolation.Path, ev.interpolationDeps(ctx, env))
		if err != nil {
			return err
		}
		eff.Path = path
	}
	return env.EmitEffect(eff, env.FilePath())
}

// evalImport implements `/import { a, b as c } from <ref>` and
// `/import * from <ref>` (spec.md §4.E). The referenced source is
// treated as a module: re-parsed and evaluated in an isolated child
// environment, then the requested bindings are copied in as imported
// variables.
func (ev *Evaluator) evalImport(ctx context.Context, dir *astnode.ImportDirective, env *environment.Environment) error {
	env.PushSecurityContext(pathtypes.CapabilityContext{Kind: pathtypes.CapabilityImport, ImportType: pathtypes.ImportTypeModule, Descriptor: env.EffectiveDescriptor(), Operation: "import"})
	defer env.PopSecurityContext()

	if env.IsImporting(dir.Reference) {
		return &mlerr.CircularImportError{Path: dir.Reference, Stack: nil}
	}
	if err := env.BeginImport(dir.Reference); err != nil {
		return err
	}
	defer env.EndImport(dir.Reference)

	result, err := env.Importer().Import(ctx, dir.Reference)
	if err != nil {
		return err
	}

	if ev.Parse == nil {
		return &mlerr.MeldInternalError{Invariant: "parser-available", Detail: "cannot evaluate imported mlld module: no parser wired into the evaluator"}
	}
	doc, err := ev.Parse(result.Content)
	if err != nil {
		return err
	}

	moduleEnv := env.NewModuleChild(filepath.Dir(dir.Reference))
	if _, err := ev.EvaluateDocument(ctx, doc, moduleEnv); err != nil {
		return err
	}

	names := dir.Bindings
	if dir.ImportAll {
		var all []astnode.ImportBinding
		exported := moduleEnv.ExportedNames()
		if len(exported) == 0 {
			exported = moduleEnv.LocalVariableNames()
		}
		for _, n := range exported {
			all = append(all, astnode.ImportBinding{Name: n, Alias: n})
		}
		names = all
	}

	for _, b := range names {
		alias := b.Alias
		if alias == "" {
			alias = b.Name
		}
		src, ok := moduleEnv.GetVariable(b.Name)
		if !ok {
			return &mlerr.VariableResolutionError{Identifier: b.Name, Context: fmt.Sprintf("not declared in module %q", dir.Reference)}
		}
		if len(moduleEnv.ExportedNames()) > 0 && !moduleEnv.Exported(b.Name) {
			return &mlerr.ImportApprovalError{Source: dir.Reference, Reason: fmt.Sprintf("%q is not exported by %q", b.Name, dir.Reference)}
		}
		if err := env.RecordImportBinding(alias); err != nil {
			return &mlerr.VariableRedefinitionError{Identifier: alias}
		}
		imported := variable.CreateImportedVariable(alias, src, dir.Reference, alias, variable.Source{Directive: astnode.DirectiveImport}, dir.Loc())
		if err := env.SetVariable(alias, imported); err != nil {
			return err
		}
	}
	return nil
}

// evalExport implements `/export { a, b }` (spec.md §4.A export
// manifest).
func (ev *Evaluator) evalExport(ctx context.Context, dir *astnode.ExportDirective, env *environment.Environment) error {
	for _, name := range dir.Names {
		if _, ok := env.GetVariable(name); !ok {
			return &mlerr.VariableResolutionError{Identifier: name, Context: "exported name not declared"}
		}
		env.Export(name)
	}
	return nil
}

// evalWhen implements `/when` branch evaluation, including `when denied
// => ...` branches that catch a guard denial raised by an earlier
// branch in the same block (spec.md §4.K step 3 / §8 S3).
func (ev *Evaluator) evalWhen(ctx context.Context, dir *astnode.WhenDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityExe, "when")
	defer env.PopSecurityContext()

	var pending *pipeline.DeniedError

	for _, branch := range dir.Branches {
		if branch.IsDenied {
			if pending == nil {
				continue
			}
			pending = nil
			if err := ev.evalDirective(ctx, branch.Action, env); err != nil {
				return err
			}
			return nil
		}

		cond, err := ev.evalExpression(ctx, branch.Condition, env)
		if err != nil {
			return err
		}
		if !isTruthy(cond) {
			continue
		}

		err = ev.evalDirective(ctx, branch.Action, env)
		if err == nil {
			return nil
		}
		var denied *pipeline.DeniedError
		if !asDeniedError(err, &denied) {
			return err
		}
		pending = denied
	}

	if pending != nil {
		return pending
	}
	return nil
}

func asDeniedError(err error, target **pipeline.DeniedError) bool {
	return errors.As(err, target)
}

// evalFor implements `/for @name in collection => body` (spec.md §4.A):
// iterates an array or object, evaluating body in a fresh child scope
// per iteration, and emits the concatenated body output as one effect.
func (ev *Evaluator) evalFor(ctx context.Context, dir *astnode.ForDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityEffect, "for")
	defer env.PopSecurityContext()

	coll, err := ev.evalExpression(ctx, dir.Collection, env)
	if err != nil {
		return err
	}

	var out strings.Builder
	iterate := func(val interface{}) error {
		child := env.CreateChild("")
		child.SetParameterVariable(dir.VarName, variable.CreateComputedVariable(dir.VarName, val, variable.Source{}, dir.Loc()))
		for _, n := range dir.Body {
			s, err := ev.evalNode(ctx, n, child)
			if err != nil {
				return err
			}
			out.WriteString(s)
		}
		return nil
	}

	switch items := coll.(type) {
	case []interface{}:
		for _, v := range items {
			if err := iterate(v); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		for k, v := range items {
			if err := iterate(map[string]interface{}{"key": k, "value": v}); err != nil {
				return err
			}
		}
	default:
		return &mlerr.MeldInternalError{Invariant: "iterable-collection", Detail: fmt.Sprintf("evalFor: collection is %T, not an array or object", coll)}
	}

	if out.Len() == 0 {
		return nil
	}
	return env.EmitEffect(environment.Effect{Type: "doc", Content: out.String(), Source: "for"}, env.FilePath())
}

// evalPath implements `/path @name = "..."` (spec.md §4.A path kind).
func (ev *Evaluator) evalPath(ctx context.Context, dir *astnode.PathDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityExe, "path")
	defer env.PopSecurityContext()

	resolved, err := interpolation.Interpolate(ctx, dir.Template.Parts, interpolation.Path, ev.interpolationDeps(ctx, env))
	if err != nil {
		return err
	}
	isURL := strings.HasPrefix(resolved, "http://") || strings.HasPrefix(resolved, "https://")
	isAbs := !isURL && filepath.IsAbs(resolved)

	v := variable.CreatePathVariable(dir.Name, resolved, isURL, isAbs, variable.Source{Directive: astnode.DirectivePath, Syntax: variable.SyntaxTemplate, Interpolation: true}, dir.Loc())
	return env.SetVariable(dir.Name, v)
}

// evalGuard implements `/guard name(before|after) = predicate => action`
// (spec.md §4.K "guard registry operations"): registers a guard backed
// by the directive's predicate/action expressions with this scope's
// GuardRegistry.
func (ev *Evaluator) evalGuard(ctx context.Context, dir *astnode.GuardDirective, env *environment.Environment) error {
	pushCapability(env, pathtypes.CapabilityGuard, "guard")
	defer env.PopSecurityContext()

	var impl interface{}
	switch dir.Phase {
	case "after":
		impl = &afterExprGuard{ev: ev, env: env, dir: dir}
	default:
		impl = &beforeExprGuard{ev: ev, env: env, dir: dir}
	}
	return env.Guards().Register(dir.Name, impl)
}

// isTruthy implements spec.md's condition-evaluation coercion: nil,
// false, empty string, zero, and empty collections are falsy.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}
