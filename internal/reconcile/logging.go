package reconcile

import (
	"context"

	"github.com/lldcore/engine/internal/observability"
	"github.com/lldcore/engine/pkg/models"
)

// Logging is a reconciler implementation that only records what it was
// asked to do. It satisfies all four reconciler interfaces and is the
// default wired into the orchestrator until a deployment supplies its
// own entity-materializing reconcilers.
type Logging struct{}

func (Logging) ReconcileItems(ctx context.Context, ruleID string, rows []models.Row) error {
	observability.Debug(ctx, "reconcile: items rule=%s rows=%d", ruleID, len(rows))
	return nil
}

func (Logging) ReconcileTriggers(ctx context.Context, ruleID string, rows []models.Row) error {
	observability.Debug(ctx, "reconcile: triggers rule=%s rows=%d", ruleID, len(rows))
	return nil
}

func (Logging) ReconcileGraphs(ctx context.Context, ruleID string, rows []models.Row) error {
	observability.Debug(ctx, "reconcile: graphs rule=%s rows=%d", ruleID, len(rows))
	return nil
}

func (Logging) ReconcileHosts(ctx context.Context, ruleID string, rows []models.Row) error {
	observability.Debug(ctx, "reconcile: hosts rule=%s rows=%d", ruleID, len(rows))
	return nil
}

// NewLoggingFanOut builds a FanOut whose four stages are all the
// logging-only default.
func NewLoggingFanOut() FanOut {
	l := Logging{}
	return FanOut{Items: l, Triggers: l, Graphs: l, Hosts: l}
}
