// Package cache implements the configuration cache the orchestrator
// depends on: the per-rule exclusion gate, a read-through view of item
// metadata used to contextualize macro substitution, the named
// expression registry, and the single diff-apply mutation point at
// writeback.
package cache

import (
	"context"
	"sync"

	"github.com/lldcore/engine/internal/gate"
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
)

// ItemMetadata is the host-scoped context the filter loader substitutes
// into literal regex patterns (e.g. {HOST.NAME}, {HOST.IP}).
type ItemMetadata struct {
	HostID string
	Fields map[string]string
}

// ItemDiff is the single writeback mutation the orchestrator applies
// under the rule lock at the end of a pipeline run.
type ItemDiff struct {
	RuleID string
	State  models.RuleState
	Error  string
}

// ItemMetadataSource resolves host-scoped item metadata; satisfied by
// the map-backed StaticSource, which is what cmd/lld-workerd and the
// tests wire in.
type ItemMetadataSource interface {
	ItemMetadata(ctx context.Context, hostID string) (ItemMetadata, error)
}

// Cache is the configuration cache the pipeline orchestrator depends on.
type Cache struct {
	gate     *gate.Registry
	names    *regexset.Registry
	source   ItemMetadataSource
	mu       sync.RWMutex
	lastDiff map[string]ItemDiff
}

// New creates a configuration cache over the given gate, named
// expression registry, and item metadata source.
func New(g *gate.Registry, names *regexset.Registry, source ItemMetadataSource) *Cache {
	return &Cache{
		gate:     g,
		names:    names,
		source:   source,
		lastDiff: make(map[string]ItemDiff),
	}
}

// TryLockRule attempts the non-blocking per-rule claim.
func (c *Cache) TryLockRule(ruleID string) bool { return c.gate.TryLock(ruleID) }

// UnlockRule releases the per-rule claim.
func (c *Cache) UnlockRule(ruleID string) { c.gate.Unlock(ruleID) }

// GetItems resolves host-scoped item metadata for the given rule ids'
// hosts, used by the filter loader to contextualize macro substitution.
func (c *Cache) GetItems(ctx context.Context, hostIDs []string) (map[string]ItemMetadata, error) {
	out := make(map[string]ItemMetadata, len(hostIDs))
	for _, id := range hostIDs {
		meta, err := c.source.ItemMetadata(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = meta
	}
	return out, nil
}

// NamedExpressions returns the compiled alternatives registered under
// name, or nil if none are registered.
func (c *Cache) NamedExpressions(name string) *regexset.CompiledSet {
	return c.names.Get(name)
}

// ApplyDiff applies the orchestrator's single writeback mutation. This
// cache keeps only the last-applied diff per rule, readable through
// LastDiff; the orchestrator's own idempotence check compares against
// the rule as loaded from the catalog, not against this diff.
func (c *Cache) ApplyDiff(diff ItemDiff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastDiff[diff.RuleID] = diff
}

// LastDiff returns the most recently applied diff for ruleID, if any.
func (c *Cache) LastDiff(ruleID string) (ItemDiff, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.lastDiff[ruleID]
	return d, ok
}
