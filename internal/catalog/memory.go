package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lldcore/engine/pkg/models"
)

// Memory is an in-memory catalog implementation, suitable for tests and
// small deployments. It implements both the pipeline-facing Catalog
// interface and the richer CRUD surface the admin API needs.
type Memory struct {
	mu         sync.RWMutex
	rules      map[string]models.Rule
	conditions map[string][]models.Condition
	macroPaths map[string][]models.MacroPath
	nextCondID uint64
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		rules:      make(map[string]models.Rule),
		conditions: make(map[string][]models.Condition),
		macroPaths: make(map[string][]models.MacroPath),
	}
}

// CreateRule adds a new rule, generating an ID when the caller did not
// supply one.
func (m *Memory) CreateRule(ctx context.Context, rule models.Rule) (models.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if _, exists := m.rules[rule.ID]; exists {
		return models.Rule{}, fmt.Errorf("catalog: rule %s already exists", rule.ID)
	}

	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	m.rules[rule.ID] = rule
	return rule, nil
}

// GetRule returns the full admin-facing rule record.
func (m *Memory) GetRule(ctx context.Context, id string) (models.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, exists := m.rules[id]
	if !exists {
		return models.Rule{}, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules returns every rule in the catalog.
func (m *Memory) ListRules(ctx context.Context) ([]models.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]models.Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		rules = append(rules, rule)
	}
	return rules, nil
}

// UpdateRule replaces a rule's editable fields, preserving its ID.
func (m *Memory) UpdateRule(ctx context.Context, id string, rule models.Rule) (models.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.rules[id]
	if !exists {
		return models.Rule{}, ErrRuleNotFound
	}

	rule.ID = id
	rule.State = existing.State
	rule.LastError = existing.LastError
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	m.rules[id] = rule
	return rule, nil
}

// DeleteRule removes a rule and its associated conditions and macro
// paths.
func (m *Memory) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rules[id]; !exists {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	delete(m.conditions, id)
	delete(m.macroPaths, id)
	return nil
}

// PutConditions replaces the full condition set for a rule, assigning
// monotonically increasing ids to any condition that does not already
// carry one.
func (m *Memory) PutConditions(ctx context.Context, ruleID string, conds []models.Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Condition, len(conds))
	for i, c := range conds {
		if c.ID == 0 {
			m.nextCondID++
			c.ID = m.nextCondID
		}
		c.RuleID = ruleID
		out[i] = c
	}
	m.conditions[ruleID] = out
	return nil
}

// PutMacroPaths replaces the macro-path set for a rule.
func (m *Memory) PutMacroPaths(ctx context.Context, ruleID string, paths []models.MacroPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.MacroPath, len(paths))
	for i, p := range paths {
		p.RuleID = ruleID
		out[i] = p
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Macro < out[j].Macro })
	m.macroPaths[ruleID] = out
	return nil
}

// Rule implements catalog.RuleReader.
func (m *Memory) Rule(ctx context.Context, ruleID string) (models.Rule, error) {
	return m.GetRule(ctx, ruleID)
}

// Conditions implements catalog.ConditionReader.
func (m *Memory) Conditions(ctx context.Context, ruleID string) ([]models.Condition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conds := m.conditions[ruleID]
	out := make([]models.Condition, len(conds))
	copy(out, conds)
	return out, nil
}

// MacroPaths implements catalog.MacroPathReader.
func (m *Memory) MacroPaths(ctx context.Context, ruleID string) ([]models.MacroPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := m.macroPaths[ruleID]
	out := make([]models.MacroPath, len(paths))
	copy(out, paths)
	return out, nil
}

// UpdateRuleState implements catalog.RuleWriter: the pipeline's single
// writeback point, touching at most state and error.
func (m *Memory) UpdateRuleState(ctx context.Context, ruleID string, state models.RuleState, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, exists := m.rules[ruleID]
	if !exists {
		return ErrRuleNotFound
	}
	rule.State = state
	rule.LastError = errText
	rule.UpdatedAt = time.Now()
	m.rules[ruleID] = rule
	return nil
}
