// Package reconcile defines the narrow interfaces the orchestrator's
// fan-out stage invokes in fixed order (items, triggers, graphs, hosts)
// and a logging-only default implementation. A production reconciler
// that materializes monitoring entities from a surviving row set is a
// separate deployable and out of scope here.
package reconcile

import (
	"context"
	"errors"

	"github.com/lldcore/engine/pkg/models"
)

// ErrParentHostGone is returned by a reconciler when the host owning
// this rule has disappeared mid-reconciliation; the orchestrator treats
// it as a signal to skip the remaining reconcilers and proceed to
// writeback.
var ErrParentHostGone = errors.New("reconcile: parent host disappeared")

// ItemReconciler materializes discovered items from a surviving row set.
type ItemReconciler interface {
	ReconcileItems(ctx context.Context, ruleID string, rows []models.Row) error
}

// TriggerReconciler materializes triggers bound to discovered items.
type TriggerReconciler interface {
	ReconcileTriggers(ctx context.Context, ruleID string, rows []models.Row) error
}

// GraphReconciler materializes graphs bound to discovered items.
type GraphReconciler interface {
	ReconcileGraphs(ctx context.Context, ruleID string, rows []models.Row) error
}

// HostReconciler materializes host-level entities (e.g. host prototypes)
// from a surviving row set.
type HostReconciler interface {
	ReconcileHosts(ctx context.Context, ruleID string, rows []models.Row) error
}

// FanOut bundles the four reconcilers the orchestrator invokes, in the
// fixed order items, triggers, graphs, hosts.
type FanOut struct {
	Items    ItemReconciler
	Triggers TriggerReconciler
	Graphs   GraphReconciler
	Hosts    HostReconciler
}

// Run invokes each reconciler in order, stopping (without error) at the
// first ErrParentHostGone.
func (f FanOut) Run(ctx context.Context, ruleID string, rows []models.Row) error {
	steps := []func(context.Context, string, []models.Row) error{
		f.Items.ReconcileItems,
		f.Triggers.ReconcileTriggers,
		f.Graphs.ReconcileGraphs,
		f.Hosts.ReconcileHosts,
	}
	for _, step := range steps {
		if err := step(ctx, ruleID, rows); err != nil {
			if errors.Is(err, ErrParentHostGone) {
				return nil
			}
			return err
		}
	}
	return nil
}
