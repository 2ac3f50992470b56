package environment

import (
	"context"
	"time"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
)

// DefaultCommandTimeout matches spec.md §5: "commands carry a timeout
// (default 30s) enforced by the executor".
const DefaultCommandTimeout = 30 * time.Second

// StageCtx is the immutable `ctx` parameter Environment synthesises for
// embedded js/node stages (spec.md §4.K: "The engine exposes ctx.try,
// ctx.tries, ctx.input, ctx.hint to embedded js/node stages through
// ambient context injection").
type StageCtx struct {
	Try   int
	Tries []interface{}
	Input interface{}
	Hint  interface{}
}

// ExecuteCommand implements spec.md §4.H executeCommand: delegates to
// the FS executor factory, enforcing DefaultCommandTimeout unless
// overridden.
func (e *Environment) ExecuteCommand(ctx context.Context, shell, command string, timeout time.Duration) (string, string, int, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	stdout, stderr, exitCode, err := e.root.fs.ExecuteCommand(ctx, e.execDir, shell, command, timeout)
	if err != nil {
		return stdout, stderr, exitCode, &mlerr.CommandExecutionError{
			Command:  command,
			Stderr:   stderr,
			ExitCode: exitCode,
			Duration: timeout.String(),
			TimedOut: ctx.Err() != nil,
		}
	}
	if exitCode != 0 {
		return stdout, stderr, exitCode, &mlerr.CommandExecutionError{
			Command:  command,
			Stderr:   stderr,
			ExitCode: exitCode,
		}
	}
	return stdout, stderr, exitCode, nil
}

// ExecuteCode implements spec.md §4.H executeCode: runs a captured
// shadow-environment function for js/node languages, synthesising the
// ambient `ctx` parameter from the current pipeline context.
func (e *Environment) ExecuteCode(ctx context.Context, lang astnode.ExecLanguage, funcName string, args []interface{}) (interface{}, error) {
	stageCtx := e.currentStageCtx()
	callArgs := append(append([]interface{}(nil), args...), stageCtx)

	shadowLang := shadowLanguageFor(lang)
	env := e.shadowRegistry.For(shadowLang)
	return env.Invoke(ctx, funcName, callArgs)
}

func (e *Environment) currentStageCtx() StageCtx {
	p, ok := e.GetPipelineContext()
	if !ok {
		return StageCtx{}
	}
	tries := make([]interface{}, 0, len(p.Tries))
	for _, t := range p.Tries {
		tries = append(tries, t.Output)
	}
	return StageCtx{Try: p.Try, Tries: tries, Input: p.Input, Hint: p.Hint}
}
