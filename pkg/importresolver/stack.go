// Package importresolver wraps pkg/resolver with the side-effect
// semantics unique to importing (spec.md §4.E): an import stack guarding
// against circular imports, an approval gate, and fuzzy local matching.
package importresolver

import (
	"fmt"
	"sync"
)

// Stack tracks in-flight imports keyed by normalised path, per spec.md
// §8 invariant 4: isImporting(P) is true from beginImport(P) until
// endImport(P); a second beginImport(P) while true fails.
type Stack struct {
	mu     sync.Mutex
	active map[string]bool
	order  []string
}

func NewStack() *Stack {
	return &Stack{active: make(map[string]bool)}
}

// CircularImportError is raised when the import stack already contains
// the target path.
type CircularImportError struct {
	Path  string
	Chain []string
}

func (e *CircularImportError) Error() string {
	return fmt.Sprintf("circular import: %q is already being imported (chain: %v)", e.Path, e.Chain)
}

// BeginImport pushes path onto the stack, or fails with
// CircularImportError if it is already present.
func (s *Stack) BeginImport(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[path] {
		return &CircularImportError{Path: path, Chain: append([]string(nil), s.order...)}
	}
	s.active[path] = true
	s.order = append(s.order, path)
	return nil
}

// EndImport pops path from the stack.
func (s *Stack) EndImport(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, path)
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// IsImporting reports whether path is currently on the stack.
func (s *Stack) IsImporting(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[path]
}

// Child returns s itself, so a child shares this stack's active set, the way
// a child environment shares its parent's import-resolver child
// (spec.md §4.H createChild).
func (s *Stack) Child() *Stack {
	return s
}
