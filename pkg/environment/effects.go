package environment

// EmitEffect implements spec.md §4.H emitEffect: records the current
// security descriptor into the effect before handing it to the handler,
// and suppresses "doc" effects while isImporting is true.
func (e *Environment) EmitEffect(eff Effect, currentFile string) error {
	if eff.Type == "doc" && e.IsImporting(currentFile) {
		return nil
	}

	if cc, ok := e.capabilities.Current(); ok {
		eff.Capability = cc
	}
	eff.Capability.Descriptor = e.EffectiveDescriptor()

	if e.root.effectHandler == nil {
		return nil
	}
	return e.root.effectHandler.HandleEffect(eff)
}
