package evalcontext

import (
	"fmt"

	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// CapabilityStack is the push/pop scope stack spec.md §4.H requires:
// "every effect, executable invocation, and import pushes and pops
// exactly once." Distinct from DescriptorStack, which tracks only the
// composed descriptor; CapabilityStack additionally remembers each
// scope's full CapabilityContext (kind, operation, policy) for nested
// lookups (e.g. "am I currently inside an exe invocation?").
type CapabilityStack struct {
	descriptors *DescriptorStack
	frames      []pathtypes.CapabilityContext
}

func NewCapabilityStack(base pathtypes.Descriptor) *CapabilityStack {
	return &CapabilityStack{descriptors: NewDescriptorStack(base)}
}

// Push enters a new capability scope, composing its descriptor onto the
// current effective descriptor.
func (s *CapabilityStack) Push(cc pathtypes.CapabilityContext) {
	s.descriptors.Push(cc.Descriptor)
	s.frames = append(s.frames, cc)
}

// Pop exits the most recently pushed capability scope.
func (s *CapabilityStack) Pop() error {
	if len(s.frames) == 0 {
		return fmt.Errorf("capability stack underflow: pop with no matching push")
	}
	s.frames = s.frames[:len(s.frames)-1]
	return s.descriptors.Pop()
}

// Current returns the innermost capability context, or false if the
// stack is at its base (no capability scope currently active).
func (s *CapabilityStack) Current() (pathtypes.CapabilityContext, bool) {
	if len(s.frames) == 0 {
		return pathtypes.CapabilityContext{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// InKind reports whether any frame on the stack has the given kind,
// innermost first — used by e.g. "is there an enclosing exe
// invocation" checks.
func (s *CapabilityStack) InKind(kind pathtypes.CapabilityKind) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind == kind {
			return true
		}
	}
	return false
}

// EffectiveDescriptor returns the composed descriptor at the current
// stack depth.
func (s *CapabilityStack) EffectiveDescriptor() pathtypes.Descriptor {
	return s.descriptors.Effective()
}

// Depth reports how many capability scopes are currently pushed.
func (s *CapabilityStack) Depth() int {
	return len(s.frames)
}
