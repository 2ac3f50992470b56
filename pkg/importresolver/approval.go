package importresolver

import "sync"

// Gate is the import-approval layer (spec.md §4.E, §6 "security manager
// contract"): hash-of-content plus a user/policy decision, cached so a
// re-import of already-approved content skips the prompt.
type Gate struct {
	mu         sync.Mutex
	approveAll bool
	approved   map[string]bool // content hash -> approved
	ask        func(source, hash string) (bool, error)
}

// NewGate creates an approval gate. ask is consulted for any hash not
// already approved; a nil ask approves everything (used for tests and
// trusted local runs).
func NewGate(approveAll bool, ask func(source, hash string) (bool, error)) *Gate {
	return &Gate{approveAll: approveAll, approved: make(map[string]bool), ask: ask}
}

// Approve checks whether content at source (identified by hash) may be
// imported. If approveAll is set, the gate is skipped entirely.
func (g *Gate) Approve(source, hash string) error {
	if g.approveAll {
		return nil
	}

	g.mu.Lock()
	if g.approved[hash] {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	if g.ask == nil {
		g.markApproved(hash)
		return nil
	}

	ok, err := g.ask(source, hash)
	if err != nil {
		return err
	}
	if !ok {
		return &ImportApprovalError{Source: source, Hash: hash}
	}
	g.markApproved(hash)
	return nil
}

func (g *Gate) markApproved(hash string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.approved[hash] = true
}

// IsApproved reports whether hash has already cleared the gate, letting
// a cache hit bypass re-asking (spec.md §4.E last bullet).
func (g *Gate) IsApproved(hash string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.approved[hash]
}

// ImportApprovalError is raised when the user/policy gate denies an
// import.
type ImportApprovalError struct {
	Source string
	Hash   string
}

func (e *ImportApprovalError) Error() string {
	return "import of " + e.Source + " (hash " + e.Hash + ") was not approved"
}
