// Package environment implements Component H (spec.md §4.H): the
// central scoped variable store, child-scope lifecycle, and the
// security/pipeline/guard ambient context every directive evaluator
// consumes. Grounded on the teacher's runtime/execution.ExecutionContext
// for its With*-copy idiom and on core/decorator's registry/capability
// plumbing for the root-only resources (resolver manager, registry,
// security manager).
package environment

import (
	"context"
	"fmt"
	"sync"

	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/cache"
	"github.com/mlld-lang/mlld-core/pkg/config"
	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/importresolver"
	"github.com/mlld-lang/mlld-core/pkg/mlerr"
	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
	"github.com/mlld-lang/mlld-core/pkg/pipeline"
	"github.com/mlld-lang/mlld-core/pkg/resolver"
	"github.com/mlld-lang/mlld-core/pkg/shadow"
	"github.com/mlld-lang/mlld-core/pkg/variable"
)

// root holds resources that live only on the root environment (spec.md
// §4 "Lookup...only the root environment holds the resolver manager,
// registry, security manager, project config, source cache, and stdin
// content").
type root struct {
	resolverManager *resolver.Manager
	importer        *importresolver.Importer
	caches          *cache.Caches
	config          config.ProjectConfig
	fs              fsiface.FS
	stdin           string
	sourceCache     map[string]string // file path -> source text, for span formatting
	effectHandler   EffectHandler

	resolverVarMu    sync.Mutex
	resolverVarCache map[string]*variable.Variable

	// reservedPrefixes holds this root's configured resolver prefixes
	// (spec.md §4.H), kept per-root rather than folded into the
	// package-level reservedNames set so that two roots with different
	// ResolverPrefixes configurations don't leak reservations into each
	// other.
	reservedPrefixes map[string]bool
}

// Environment is a node in the scope tree (spec.md §3 "Environment. A
// tree.").
type Environment struct {
	root *root

	mu        sync.RWMutex
	vars      map[string]*variable.Variable
	immutable map[string]bool

	parent         *Environment
	moduleEnv      *Environment // captured module environment, for imported-executable invocation
	exportManifest map[string]bool
	importBindings map[string]bool

	shadowRegistry *shadow.Registry
	guards         *pipeline.GuardRegistry

	filePath  string
	fileDir   string
	execDir   string
	iterFile  string

	childrenMu sync.Mutex
	children   map[*Environment]bool

	capabilities *evalcontext.CapabilityStack
	importStack  *importresolver.Stack
	interpStack  *evalcontext.InterpolationStack

	ambient evalcontext.Ambient

	approveAllImports bool
	allowAbsolute     bool

	nodesMu sync.Mutex
	nodes   []astnode.Node
}

// EffectHandler is the sink for emitted effects (spec.md §6 "Effect
// handler contract").
type EffectHandler interface {
	HandleEffect(Effect) error
}

// Effect is the record handed to the EffectHandler (spec.md §4.H
// emitEffect / §6).
type Effect struct {
	Type       string // "doc" | "stdout" | "stderr" | "both" | "file"
	Content    string
	Path       string
	Source     string
	Mode       string
	Metadata   map[string]interface{}
	Capability pathtypes.CapabilityContext
}

// NewRootOpts configures root-environment construction.
type NewRootOpts struct {
	ProjectConfig config.ProjectConfig
	FS            fsiface.FS
	Stdin         string
	EffectHandler EffectHandler
}

// NewRoot constructs the root environment: reserved variables are bound
// once here (spec.md §4.H "Reserved-variable initialisation happens
// once on the root environment").
func NewRoot(opts NewRootOpts) *Environment {
	mgr := resolver.NewManager()
	caches := cache.NewCaches()
	importer := importresolver.New(mgr, opts.FS, opts.ProjectConfig.ProjectRoot, opts.ProjectConfig.AllowAbsolutePaths, caches)

	r := &root{
		resolverManager:  mgr,
		importer:         importer,
		caches:           caches,
		config:           opts.ProjectConfig,
		fs:               opts.FS,
		stdin:            opts.Stdin,
		sourceCache:      make(map[string]string),
		effectHandler:    opts.EffectHandler,
		resolverVarCache: make(map[string]*variable.Variable),
		reservedPrefixes: make(map[string]bool),
	}

	registerBuiltinResolvers(mgr, opts.FS, opts.ProjectConfig)

	env := &Environment{
		root:           r,
		vars:           make(map[string]*variable.Variable),
		immutable:      make(map[string]bool),
		exportManifest: make(map[string]bool),
		importBindings: make(map[string]bool),
		shadowRegistry: shadow.NewRegistry(),
		guards:         pipeline.NewGuardRegistry(),
		fileDir:        opts.ProjectConfig.ProjectRoot,
		execDir:        opts.ProjectConfig.ProjectRoot,
		children:       make(map[*Environment]bool),
		capabilities:   evalcontext.NewCapabilityStack(pathtypes.Descriptor{}),
		importStack:    importresolver.NewStack(),
		interpStack:    evalcontext.NewInterpolationStack(),
		allowAbsolute:  opts.ProjectConfig.AllowAbsolutePaths,
	}

	bindReservedVariables(env)
	bindTransformerVariables(env)
	return env
}

func registerBuiltinResolvers(mgr *resolver.Manager, fs fsiface.FS, cfg config.ProjectConfig) {
	mgr.Register(&resolver.ProjectPathResolver{FS: fs, ProjectRoot: cfg.ProjectRoot})
	mgr.Register(&resolver.LocalResolver{FS: fs, LocalModulesDir: cfg.LocalModulesPath})
	mgr.Register(&resolver.NowResolver{})
	mgr.Register(&resolver.DebugResolver{})
	mgr.Register(&resolver.InputResolver{})
	mgr.Register(&resolver.BaseResolver{ProjectRoot: cfg.ProjectRoot})

	var prefixes []string
	for _, p := range cfg.ResolverPrefixes {
		prefixes = append(prefixes, p.Prefix)
	}
	if len(prefixes) > 0 {
		mgr.Register(resolver.NewRegistryResolver(fs, cfg.ProjectRoot, prefixes))
	}
	for _, p := range cfg.ResolverPrefixes {
		mgr.RegisterPrefix(resolver.PrefixConfig{Prefix: p.Prefix, Resolver: "registry", BaseDir: p.BaseDir})
	}
}

// SetVariable implements spec.md §4.H setVariable: fails with
// VariableRedefinitionError on local redefinition, reserved-name
// binding, or mutation of an immutable binding.
func (e *Environment) SetVariable(name string, v *variable.Variable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.immutable[name] {
		return &mlerr.VariableRedefinitionError{Identifier: name}
	}
	if _, exists := e.vars[name]; exists {
		return &mlerr.VariableRedefinitionError{Identifier: name}
	}
	if e.isReservedName(name) {
		return &mlerr.VariableRedefinitionError{Identifier: name, Reserved: true}
	}

	e.vars[name] = v
	if v.Metadata.Immutable {
		e.immutable[name] = true
	}
	return nil
}

// UpdateVariable implements spec.md §4.H updateVariable: in-place
// replacement for `+=` on local mutable bindings.
func (e *Environment) UpdateVariable(name string, v *variable.Variable) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.immutable[name] {
		return &mlerr.VariableRedefinitionError{Identifier: name}
	}
	e.vars[name] = v
	return nil
}

// SetParameterVariable implements spec.md §4.H setParameterVariable:
// bypasses reserved/import-collision checks for executable parameter
// binding.
func (e *Environment) SetParameterVariable(name string, v *variable.Variable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = v
}

// GetVariable implements spec.md §3 "Lookup walks local →
// captured-module-env → parent."
func (e *Environment) GetVariable(name string) (*variable.Variable, bool) {
	e.mu.RLock()
	v, ok := e.vars[name]
	e.mu.RUnlock()
	if ok {
		return v, true
	}

	if e.moduleEnv != nil {
		if v, ok := e.moduleEnv.GetVariable(name); ok {
			return v, true
		}
	}
	if e.parent != nil {
		return e.parent.GetVariable(name)
	}
	return nil, false
}

// CreateChild forks scope per spec.md §4.H createChild: inherits shadow
// envs, shares the effect handler, shares the import stack via its own
// child, and tracks itself in the parent's child set.
func (e *Environment) CreateChild(newFileDir string) *Environment {
	fileDir := e.fileDir
	if newFileDir != "" {
		fileDir = newFileDir
	}

	child := &Environment{
		root:           e.root,
		vars:           make(map[string]*variable.Variable),
		immutable:      make(map[string]bool),
		parent:         e,
		exportManifest: make(map[string]bool),
		importBindings: make(map[string]bool),
		shadowRegistry: e.shadowRegistry.Child(),
		guards:         e.guards.CreateChild(),
		fileDir:        fileDir,
		execDir:        e.execDir,
		filePath:       e.filePath,
		children:       make(map[*Environment]bool),
		capabilities:   evalcontext.NewCapabilityStack(e.capabilities.EffectiveDescriptor()),
		importStack:    e.importStack.Child(),
		interpStack:    evalcontext.NewInterpolationStack(),
		ambient:        e.ambient,
		approveAllImports: e.approveAllImports,
		allowAbsolute:     e.allowAbsolute,
	}

	e.childrenMu.Lock()
	e.children[child] = true
	e.childrenMu.Unlock()

	return child
}

// NewModuleChild creates the isolated environment a `/import` of an
// mlld module is evaluated in (spec.md §3 Lifecycle: "Environments are
// created per file at import time"). Unlike CreateChild, it shares no
// variable-lookup parent — a module sees only its own declarations —
// while still sharing root resources (resolver, importer, caches) and
// this environment's import stack, so circular-import detection still
// spans the import boundary.
func (e *Environment) NewModuleChild(fileDir string) *Environment {
	return &Environment{
		root:           e.root,
		vars:           make(map[string]*variable.Variable),
		immutable:      make(map[string]bool),
		exportManifest: make(map[string]bool),
		importBindings: make(map[string]bool),
		shadowRegistry: shadow.NewRegistry(),
		guards:         pipeline.NewGuardRegistry(),
		fileDir:        fileDir,
		execDir:        fileDir,
		filePath:       fileDir,
		children:       make(map[*Environment]bool),
		capabilities:   evalcontext.NewCapabilityStack(pathtypes.Descriptor{}),
		importStack:    e.importStack.Child(),
		interpStack:    evalcontext.NewInterpolationStack(),
		allowAbsolute:  e.allowAbsolute,
	}
}

// MergeChild copies child's variables and buffered nodes into e, used
// only for internal sub-block evaluation where no scope boundary is
// intended (spec.md §4.H mergeChild).
func (e *Environment) MergeChild(child *Environment) {
	child.mu.RLock()
	for name, v := range child.vars {
		e.mu.Lock()
		e.vars[name] = v
		e.mu.Unlock()
	}
	child.mu.RUnlock()

	child.nodesMu.Lock()
	nodes := append([]astnode.Node(nil), child.nodes...)
	child.nodesMu.Unlock()

	e.nodesMu.Lock()
	e.nodes = append(e.nodes, nodes...)
	e.nodesMu.Unlock()
}

// AddNode appends to the document-level output buffer (spec.md §4.H
// addNode).
func (e *Environment) AddNode(n astnode.Node) {
	e.nodesMu.Lock()
	defer e.nodesMu.Unlock()
	e.nodes = append(e.nodes, n)
}

// Nodes returns the buffered document nodes.
func (e *Environment) Nodes() []astnode.Node {
	e.nodesMu.Lock()
	defer e.nodesMu.Unlock()
	return append([]astnode.Node(nil), e.nodes...)
}

// IsImporting, BeginImport, EndImport implement spec.md §4.H / §8
// invariant 4, delegating to the per-environment import stack.
func (e *Environment) IsImporting(path string) bool     { return e.importStack.IsImporting(path) }
func (e *Environment) BeginImport(path string) error     { return e.importStack.BeginImport(path) }
func (e *Environment) EndImport(path string)             { e.importStack.EndImport(path) }
func (e *Environment) IsInInterpolationStack(p string) bool { return e.interpStack.IsActive(p) }
func (e *Environment) PushInterpolationStack(p string)      { e.interpStack.Push(p) }
func (e *Environment) PopInterpolationStack(p string)       { e.interpStack.Pop(p) }

// PushSecurityContext / PopSecurityContext implement spec.md §4.H /
// §8 invariant 3.
func (e *Environment) PushSecurityContext(cc pathtypes.CapabilityContext) {
	e.capabilities.Push(cc)
}

func (e *Environment) PopSecurityContext() error {
	return e.capabilities.Pop()
}

// EffectiveDescriptor returns the current composed security descriptor.
func (e *Environment) EffectiveDescriptor() pathtypes.Descriptor {
	return e.capabilities.EffectiveDescriptor()
}

// ShadowEnvironments returns this scope's shadow-function registry.
func (e *Environment) ShadowEnvironments() *shadow.Registry {
	return e.shadowRegistry
}

// Guards returns this scope's guard registry (spec.md §4.K "createChild()
// inherits parent definitions without mutating them").
func (e *Environment) Guards() *pipeline.GuardRegistry {
	return e.guards
}

// ModuleEnv returns the captured module environment, if any.
func (e *Environment) ModuleEnv() *Environment { return e.moduleEnv }

// SetModuleEnv captures the module environment an executable should see
// its sibling functions through (spec.md §3 Environment).
func (e *Environment) SetModuleEnv(m *Environment) { e.moduleEnv = m }

// FilePath, FileDir, ExecDir, ProjectRoot, StdinContent expose the
// environment's file-system location fields (spec.md §3).
func (e *Environment) FilePath() string       { return e.filePath }
func (e *Environment) SetFilePath(p string)   { e.filePath = p }
func (e *Environment) FileDir() string        { return e.fileDir }
func (e *Environment) ExecDir() string        { return e.execDir }
func (e *Environment) ProjectRoot() string    { return e.root.config.ProjectRoot }
func (e *Environment) StdinContent() string   { return e.root.stdin }
func (e *Environment) IterationFile() string  { return e.iterFile }
func (e *Environment) SetIterationFile(p string) { e.iterFile = p }

// Export records name in this environment's export manifest.
func (e *Environment) Export(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exportManifest[name] = true
}

// Exported reports whether name has been explicitly exported.
func (e *Environment) Exported(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exportManifest[name]
}

// ExportedNames returns the explicit export manifest, used by `/import`
// to decide which bindings a module makes available (spec.md §4.A
// "export manifest").
func (e *Environment) ExportedNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.exportManifest))
	for n := range e.exportManifest {
		names = append(names, n)
	}
	return names
}

// LocalVariableNames returns every name bound directly in this
// environment, used by `/import { * }` when a module declares no
// explicit export manifest.
func (e *Environment) LocalVariableNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	return names
}

// RecordImportBinding registers an imported name for collision
// detection (spec.md §3: "An imported binding must not collide with
// another imported binding in the same file.").
func (e *Environment) RecordImportBinding(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.importBindings[name] {
		return fmt.Errorf("imported binding %q collides with another import in this file", name)
	}
	e.importBindings[name] = true
	return nil
}

// Importer exposes the root's import resolver.
func (e *Environment) Importer() *importresolver.Importer { return e.root.importer }

// ResolverManager exposes the root's resolver chain.
func (e *Environment) ResolverManager() *resolver.Manager { return e.root.resolverManager }

// Caches exposes the root's cache set.
func (e *Environment) Caches() *cache.Caches { return e.root.caches }

// FS exposes the root's filesystem contract.
func (e *Environment) FS() fsiface.FS { return e.root.fs }

// Source returns cached source text for a file path, for span
// formatting (spec.md §6 "the CLI formats the span using the source
// cache on the root environment").
func (e *Environment) Source(path string) (string, bool) {
	s, ok := e.root.sourceCache[path]
	return s, ok
}

// CacheSource stores source text under path for later span formatting.
func (e *Environment) CacheSource(path, content string) {
	e.root.sourceCache[path] = content
}

// Cleanup tears down VM contexts, clears caches, and recursively cleans
// children (spec.md §4.H cleanup). Each scope's captured shadow
// function tables are dropped; the root's content/resolver/URL caches
// are cleared only once, from the root environment itself, since
// children share them via root.
func (e *Environment) Cleanup(ctx context.Context) {
	e.childrenMu.Lock()
	children := make([]*Environment, 0, len(e.children))
	for c := range e.children {
		children = append(children, c)
	}
	e.childrenMu.Unlock()

	for _, c := range children {
		c.Cleanup(ctx)
	}

	e.shadowRegistry.Clear()
	if e.parent == nil {
		e.root.caches.Content.Clear()
		e.root.caches.Resolver.Clear()
		e.root.caches.URL.Clear()
	}
}

// isReservedName reports whether name is one of the static reserved
// resolver/transformer names, or one of e's own root's configured
// resolver prefixes (spec.md §4.H).
func (e *Environment) isReservedName(name string) bool {
	if _, ok := reservedNames[name]; ok {
		return true
	}
	return e.root.reservedPrefixes[name]
}
