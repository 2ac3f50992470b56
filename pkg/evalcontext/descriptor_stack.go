// Package evalcontext implements Component G (spec.md §4.H security
// runtime + capability-context stacks): the descriptor push/pop stack
// and the operation/pipeline/guard ambient contexts threaded through
// directive evaluation. Grounded on the teacher's
// runtime/execution/context.go ExecutionContext — `With*` methods that
// copy-and-override a field, never mutate in place.
package evalcontext

import (
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// DescriptorStack maintains the push/pop-balanced security descriptor
// stack named in spec.md §4.H and required by §8 invariant 3: after a
// push and its matching pop, the effective descriptor equals its
// pre-push value.
type DescriptorStack struct {
	frames []pathtypes.Descriptor
}

// NewDescriptorStack creates a stack seeded with the base descriptor.
func NewDescriptorStack(base pathtypes.Descriptor) *DescriptorStack {
	return &DescriptorStack{frames: []pathtypes.Descriptor{base}}
}

// Effective returns the current top-of-stack descriptor.
func (s *DescriptorStack) Effective() pathtypes.Descriptor {
	return s.frames[len(s.frames)-1]
}

// Push composes d onto the current effective descriptor and pushes the
// result. Composition (union of labels/sources, max of taint level) is
// pathtypes.Descriptor.Compose.
func (s *DescriptorStack) Push(d pathtypes.Descriptor) {
	s.frames = append(s.frames, s.Effective().Compose(d))
}

// Pop removes the top frame. Popping the base frame is a programmer
// error (spec.md §7 MeldInternalError: "unbalanced security stack").
func (s *DescriptorStack) Pop() error {
	if len(s.frames) <= 1 {
		return fmt.Errorf("security descriptor stack underflow: cannot pop the base frame")
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Depth reports the number of frames currently pushed above the base.
func (s *DescriptorStack) Depth() int {
	return len(s.frames) - 1
}

// Balanced reports whether every push has a matching pop (depth back to
// zero). Used by cleanup/test assertions, not by production control
// flow — a real imbalance is a MeldInternalError raised at the point of
// detection, not silently checked here.
func (s *DescriptorStack) Balanced() bool {
	return s.Depth() == 0
}
