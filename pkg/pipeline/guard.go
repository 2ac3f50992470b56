// Package pipeline implements Component K (spec.md §4.K): the
// pipeline/guard/hook engine that runs `value | @stageA | @stageB`,
// with retry, taint propagation, and structured denial handling.
//
// GuardRegistry borrows the teacher's database/sql-style driver
// registration idiom from core/decorator/registry.go: guards register
// under a name, and the registry infers which hook phase(s) a guard
// participates in from which of BeforeGuard/AfterGuard it implements,
// rather than requiring guards to declare their phase explicitly.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/mlld-lang/mlld-core/pkg/evalcontext"
)

// StageCallSite describes the stage a guard is being asked to judge.
type StageCallSite struct {
	StageName string
	Input     interface{}
	Pipeline  evalcontext.PipelineContextSnapshot
}

// StageOutcome is what happened when a stage ran (or was denied),
// passed to AfterGuard.After.
type StageOutcome struct {
	Output interface{}
	Err    error
}

// BeforeGuard is implemented by guards that run as a pipeline pre-hook
// and may allow, deny, or request a retry (spec.md §4.K step 2). Guard
// predicates may themselves be suspension points (spec.md §5), hence ctx.
type BeforeGuard interface {
	Before(ctx context.Context, call StageCallSite) (evalcontext.GuardDecision, error)
}

// AfterGuard is implemented by guards that run as a pipeline post-hook,
// typically to record history (spec.md §4.K step 4, guardPostHook).
type AfterGuard interface {
	After(ctx context.Context, call StageCallSite, outcome StageOutcome) error
}

// Role is auto-inferred per guard from the Before/After interfaces it
// implements, mirroring core/decorator/registry.go's inferRoles.
type Role string

const (
	RoleBefore Role = "before"
	RoleAfter  Role = "after"
)

type namedBefore struct {
	Name  string
	Guard BeforeGuard
}

type namedAfter struct {
	Name  string
	Guard AfterGuard
}

type guardEntry struct {
	impl  interface{}
	roles []Role
}

// GuardRegistry holds registered guards and auto-infers their hook
// phase(s) from implemented interfaces (spec.md §4.M).
type GuardRegistry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]guardEntry
}

// NewGuardRegistry returns an empty registry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{entries: make(map[string]guardEntry)}
}

// Register adds a guard under name, inferring its roles. A guard
// implementing neither BeforeGuard nor AfterGuard is rejected.
func (r *GuardRegistry) Register(name string, impl interface{}) error {
	roles := inferGuardRoles(impl)
	if len(roles) == 0 {
		return fmt.Errorf("guard %q implements neither BeforeGuard nor AfterGuard", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = guardEntry{impl: impl, roles: roles}
	return nil
}

func inferGuardRoles(impl interface{}) []Role {
	var roles []Role
	if _, ok := impl.(BeforeGuard); ok {
		roles = append(roles, RoleBefore)
	}
	if _, ok := impl.(AfterGuard); ok {
		roles = append(roles, RoleAfter)
	}
	return roles
}

// Lookup retrieves a guard's raw implementation by name.
func (r *GuardRegistry) Lookup(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.impl, true
}

// BeforeGuards returns every registered guard implementing BeforeGuard,
// in registration order, for guardPreHook to consult.
func (r *GuardRegistry) BeforeGuards() []namedBefore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []namedBefore
	for _, name := range r.order {
		e := r.entries[name]
		if hasRole(e.roles, RoleBefore) {
			out = append(out, namedBefore{Name: name, Guard: e.impl.(BeforeGuard)})
		}
	}
	return out
}

// AfterGuards returns every registered guard implementing AfterGuard,
// in registration order, for guardPostHook to consult.
func (r *GuardRegistry) AfterGuards() []namedAfter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []namedAfter
	for _, name := range r.order {
		e := r.entries[name]
		if hasRole(e.roles, RoleAfter) {
			out = append(out, namedAfter{Name: name, Guard: e.impl.(AfterGuard)})
		}
	}
	return out
}

func hasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// Serialized is the wire shape serializeOwn/importSerialized pass
// across module boundaries (spec.md §4.K).
type Serialized struct {
	Names []string
}

// SerializeOwn lists r's own registered guard names.
func (r *GuardRegistry) SerializeOwn() Serialized {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Serialized{Names: append([]string(nil), r.order...)}
}

// ImportSerialized re-registers guard names listed in ser, looking up
// each implementation in src (guard implementations are process-local
// Go values, so import re-binds the name, it does not reconstruct the
// guard from wire data).
func (r *GuardRegistry) ImportSerialized(src *GuardRegistry, ser Serialized) error {
	for _, name := range ser.Names {
		impl, ok := src.Lookup(name)
		if !ok {
			continue
		}
		if err := r.Register(name, impl); err != nil {
			return err
		}
	}
	return nil
}

// CreateChild returns a new registry seeded with r's current
// registrations, without mutating r (spec.md §4.K "inherits parent
// definitions without mutating them").
func (r *GuardRegistry) CreateChild() *GuardRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	child := NewGuardRegistry()
	child.order = append([]string(nil), r.order...)
	for k, v := range r.entries {
		child.entries[k] = v
	}
	return child
}
