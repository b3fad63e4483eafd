// Package catalog defines the narrow persistence interfaces the pipeline
// depends on and provides in-memory and SQLite-backed implementations.
package catalog

import (
	"context"

	"github.com/lldcore/engine/pkg/models"
)

// RuleReader loads a single rule's metadata by id.
type RuleReader interface {
	Rule(ctx context.Context, ruleID string) (models.Rule, error)
}

// ConditionReader loads all filter conditions for a rule.
type ConditionReader interface {
	Conditions(ctx context.Context, ruleID string) ([]models.Condition, error)
}

// MacroPathReader loads a rule's macro-path mappings, sorted by macro
// ascending.
type MacroPathReader interface {
	MacroPaths(ctx context.Context, ruleID string) ([]models.MacroPath, error)
}

// RuleWriter applies the single writeback update the orchestrator issues
// at the end of a pipeline run: at most state and error change.
type RuleWriter interface {
	UpdateRuleState(ctx context.Context, ruleID string, state models.RuleState, errText string) error
}

// Catalog is the full read/write surface the pipeline depends on.
type Catalog interface {
	RuleReader
	ConditionReader
	MacroPathReader
	RuleWriter
}

// AdminStore is the broader CRUD surface the admin HTTP API depends on.
// Both Memory and SQLite implement it.
type AdminStore interface {
	Catalog

	CreateRule(ctx context.Context, rule models.Rule) (models.Rule, error)
	GetRule(ctx context.Context, ruleID string) (models.Rule, error)
	ListRules(ctx context.Context) ([]models.Rule, error)
	UpdateRule(ctx context.Context, ruleID string, rule models.Rule) (models.Rule, error)
	DeleteRule(ctx context.Context, ruleID string) error

	PutConditions(ctx context.Context, ruleID string, conds []models.Condition) error
	PutMacroPaths(ctx context.Context, ruleID string, paths []models.MacroPath) error
}

// ErrRuleNotFound is returned by RuleReader.Rule when no row exists for
// the requested rule id.
var ErrRuleNotFound = errNotFound("catalog: rule not found")

type errNotFound string

func (e errNotFound) Error() string { return string(e) }
