// Command mlld is a thin CLI entrypoint over pkg/evaluator. Directive
// parsing is an external collaborator (spec.md §1 Non-goals), so this
// binary wires only a degenerate fallback parser: with no real mlld
// grammar, a document is treated as one verbatim Text node. It exists
// to give the evaluation runtime a real, buildable executable shape,
// the way the teacher's cmd/devcmd wraps its own parser/generator
// pipeline behind cobra.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/config"
	"github.com/mlld-lang/mlld-core/pkg/environment"
	"github.com/mlld-lang/mlld-core/pkg/evaluator"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
)

// Version is the build-time version tag, set via -ldflags the way the
// teacher's cmd/devcmd records Version/BuildTime/GitCommit.
var Version = "dev"

var (
	projectRoot string
	configPath  string
	noStream    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mlld <file>",
	Short: "Evaluate an mlld document and print its rendered output",
	Long: `mlld walks a parsed document against a project environment, emitting
directive effects (stdout/stderr/file writes) and printing the
remaining Markdown text to stdout.

This build has no mlld grammar wired in (parsing is an external
collaborator); every input is therefore treated as one literal block
of Markdown text with no directives recognized.`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mlld %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project", "", "Project root directory (default: the input file's directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mlld.config.yaml", "Path to project config YAML, relative to the project root")
	rootCmd.PersistentFlags().BoolVar(&noStream, "no-stream", false, "Disable pipeline event streaming")
	rootCmd.AddCommand(versionCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	root := projectRoot
	if root == "" {
		root, err = filepath.Abs(filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("resolving project root: %w", err)
		}
	}

	cfg, err := config.Load(filepath.Join(root, configPath), root)
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}

	handler := &stdioEffectHandler{root: root}
	env := environment.NewRoot(environment.NewRootOpts{
		ProjectConfig: cfg,
		FS:            fsiface.NewOSFilesystem(),
		EffectHandler: handler,
	})
	env.SetFilePath(path)

	ev := evaluator.New(pipeline.NewBus(noStream), parseAsSingleTextBlock)

	doc, err := ev.Parse(string(content))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out, err := ev.EvaluateDocument(context.Background(), doc, env)
	if err != nil {
		return fmt.Errorf("evaluating %s: %w", path, err)
	}

	_, err = fmt.Fprint(os.Stdout, out)
	return err
}

// parseAsSingleTextBlock is the fallback evaluator.ParseFunc this binary
// wires in the absence of a real mlld grammar: it never recognizes a
// directive, so every input document round-trips unchanged.
func parseAsSingleTextBlock(source string) (*astnode.Document, error) {
	return &astnode.Document{Children: []astnode.Node{
		&astnode.Text{Value: source},
	}}, nil
}

// stdioEffectHandler drops "doc" effects (runFile prints only the string
// EvaluateDocument returns, which holds the document's non-directive
// text), routes "stdout"/"stderr"/"both" effects to the matching
// stream(s), and writes "file" effects to disk relative to the project
// root, per spec.md §6's effect handler contract.
type stdioEffectHandler struct {
	root string
}

func (h *stdioEffectHandler) HandleEffect(e environment.Effect) error {
	switch e.Type {
	case "doc":
		return nil
	case "stdout", "both":
		_, err := fmt.Fprintln(os.Stdout, e.Content)
		if e.Type == "both" {
			fmt.Fprintln(os.Stderr, e.Content)
		}
		return err
	case "stderr":
		_, err := fmt.Fprintln(os.Stderr, e.Content)
		return err
	case "file":
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.root, path)
		}
		return os.WriteFile(path, []byte(e.Content), 0o644)
	default:
		return fmt.Errorf("stdioEffectHandler: unhandled effect type %q", e.Type)
	}
}
