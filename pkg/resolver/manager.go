package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PrefixConfig is a registered `@prefix/...` binding (spec.md §4.D).
type PrefixConfig struct {
	Prefix     string
	Resolver   string
	BaseDir    string
	Registered int // registration order, for prefix match precedence
}

// entry is a registered resolver plus its inferred tie-break metadata.
type entry struct {
	impl     Resolver
	priority int
	prefixes []string
}

// Manager holds the ordered resolver chain plus prefix configurations,
// the database/sql-driver pattern the teacher uses for decorators
// (core/decorator/registry.go), generalized here to resolvers.
type Manager struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string // registration order, for stable priority ties
	prefixes []PrefixConfig
}

// NewManager creates an empty resolver manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Register adds a resolver to the chain. Registering the same name twice
// replaces the prior registration (de-duplication, spec.md §4.D(a)).
func (m *Manager) Register(r Resolver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := r.Name()
	if _, exists := m.entries[name]; !exists {
		m.order = append(m.order, name)
	}
	m.entries[name] = &entry{impl: r, priority: priorityOf(r), prefixes: prefixesOf(r)}

	for _, p := range prefixesOf(r) {
		m.registerPrefixLocked(PrefixConfig{Prefix: p, Resolver: name})
	}
}

// RegisterPrefix adds a user-configured prefix binding pointing at an
// already-registered resolver name.
func (m *Manager) RegisterPrefix(cfg PrefixConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerPrefixLocked(cfg)
}

func (m *Manager) registerPrefixLocked(cfg PrefixConfig) {
	for _, existing := range m.prefixes {
		if existing.Prefix == cfg.Prefix && existing.Resolver == cfg.Resolver {
			return
		}
	}
	cfg.Registered = len(m.prefixes)
	m.prefixes = append(m.prefixes, cfg)
}

// PrefixNames returns the set of reserved prefix identifiers so the
// environment can mark them reserved (spec.md §4.D(c)).
func (m *Manager) PrefixNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, p := range m.prefixes {
		if !seen[p.Prefix] {
			seen[p.Prefix] = true
			names = append(names, p.Prefix)
		}
	}
	return names
}

// Resolve implements spec.md §4.D's resolution order: prefix match first
// if R is prefixed, otherwise every resolver whose CanResolve(R) is true
// is tried in priority order; the first success wins.
func (m *Manager) Resolve(ctx context.Context, ref string, opts ResolveOpts) (Content, error) {
	m.mu.RLock()
	prefixes := append([]PrefixConfig(nil), m.prefixes...)
	candidates := m.orderedCandidatesLocked()
	m.mu.RUnlock()

	if prefix, ok := prefixFor(ref); ok {
		var tried bool
		for _, p := range prefixes {
			if p.Prefix != prefix {
				continue
			}
			tried = true
			r, ok := m.lookup(p.Resolver)
			if !ok {
				continue
			}
			content, err := r.Resolve(ctx, ref, opts)
			if err == nil {
				return content, nil
			}
		}
		if tried {
			return Content{}, fmt.Errorf("no resolver bound to prefix %q accepted %q", prefix, ref)
		}
		// No prefix configuration matched; fall through to the general
		// chain so an unconfigured "@foo/..." can still be handled by a
		// resolver whose CanResolve recognizes it directly.
	}

	var lastErr error
	for _, r := range candidates {
		if !r.CanResolve(ref) {
			continue
		}
		content, err := r.Resolve(ctx, ref, opts)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return Content{}, lastErr
	}
	return Content{}, fmt.Errorf("no resolver accepted reference %q", ref)
}

func (m *Manager) lookup(name string) (Resolver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, false
	}
	return e.impl, true
}

// orderedCandidatesLocked returns resolvers sorted by ascending priority,
// breaking ties by registration order. Caller must hold m.mu.
func (m *Manager) orderedCandidatesLocked() []Resolver {
	names := append([]string(nil), m.order...)
	sort.SliceStable(names, func(i, j int) bool {
		return m.entries[names[i]].priority < m.entries[names[j]].priority
	})
	resolvers := make([]Resolver, 0, len(names))
	for _, n := range names {
		resolvers = append(resolvers, m.entries[n].impl)
	}
	return resolvers
}

func prefixFor(ref string) (string, bool) {
	if !strings.HasPrefix(ref, "@") {
		return "", false
	}
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, true
	}
	return ref[:idx+1], true
}
