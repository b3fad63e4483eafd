// Package gate implements the per-rule single-writer execution gate: a
// non-blocking try-acquire registry keyed by rule id. A losing caller
// abandons the invocation rather than waiting.
package gate

import "sync"

// Registry is a process-wide claim registry. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

// NewRegistry creates an empty claim registry.
func NewRegistry() *Registry {
	return &Registry{locked: make(map[string]struct{})}
}

// TryLock attempts to claim ruleID. It is non-blocking: it returns false
// immediately if another invocation already holds the claim.
func (r *Registry) TryLock(ruleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.locked[ruleID]; held {
		return false
	}
	r.locked[ruleID] = struct{}{}
	return true
}

// Unlock releases ruleID's claim. It is idempotent relative to a prior
// successful TryLock: unlocking an unheld id is a no-op.
func (r *Registry) Unlock(ruleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locked, ruleID)
}

// Held reports whether ruleID is currently claimed. Intended for tests
// and diagnostics, not for making locking decisions.
func (r *Registry) Held(ruleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.locked[ruleID]
	return held
}
