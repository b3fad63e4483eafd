package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/lldcore/engine/internal/cache"
	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/eventbus"
	"github.com/lldcore/engine/internal/observability"
	"github.com/lldcore/engine/internal/reconcile"
	"github.com/lldcore/engine/pkg/models"
)

// Deps bundles everything a single process invocation depends on: the
// persistence surface, the configuration cache (gate, named-expression
// registry, and host-item metadata), the event emitter, and the
// reconciler fan-out.
type Deps struct {
	Catalog     catalog.Catalog
	Cache       *cache.Cache
	Emitter     *eventbus.Emitter
	Reconcilers reconcile.FanOut
}

// Orchestrator runs S1-S8 for whatever rules are handed to Process.
type Orchestrator struct {
	deps Deps
}

// New builds an Orchestrator over the given dependencies.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Process implements process(rule_id, value, timestamp) end to end
// (§2, §4.9): rule gate, rule/filter/macro-path load, row extraction,
// reconciler fan-out, and state/error writeback, in that order.
func (o *Orchestrator) Process(ctx context.Context, ruleID string, payload []byte) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		observability.ProcessDuration.WithLabelValues(ruleID, outcome).Observe(time.Since(start).Seconds())
		observability.ProcessTotal.WithLabelValues(ruleID, outcome).Inc()
	}()

	// S1: Rule Gate.
	if !o.deps.Cache.TryLockRule(ruleID) {
		observability.Warn(ctx, "lld: rule %s already being processed, dropping value", ruleID)
		observability.GateContention.WithLabelValues(ruleID).Inc()
		outcome = "locked"
		return ErrRuleLocked
	}
	defer o.deps.Cache.UnlockRule(ruleID)

	// S2: Rule Loader.
	ruleStart := time.Now()
	rule, err := loadRule(ctx, o.deps.Catalog, ruleID)
	observability.RuleLoadDuration.WithLabelValues("rule").Observe(time.Since(ruleStart).Seconds())
	if err != nil {
		observability.Debug(ctx, "lld: rule %s missing, aborting: %v", ruleID, err)
		outcome = "missing"
		return nil
	}

	items, err := o.deps.Cache.GetItems(ctx, []string{rule.HostID})
	if err != nil {
		return err
	}
	hostFields := items[rule.HostID].Fields

	var warnings []string

	if spec := rule.LifetimeSpec; spec != "" {
		_, warning := resolveLifetime(spec, hostFields)
		if warning != "" {
			observability.Warn(ctx, "lld: rule %s: %s", ruleID, warning)
			warnings = append(warnings, warning)
		}
	}

	// S3: Filter Loader.
	filterStart := time.Now()
	filter, err := loadFilter(ctx, o.deps.Catalog, ruleID, rule.EvalType, rule.Formula, o.deps.Cache.NamedExpressions, hostFields)
	observability.RuleLoadDuration.WithLabelValues("filter").Observe(time.Since(filterStart).Seconds())
	if err != nil {
		return o.writeback(ctx, rule, joinErr(err, warnings), false)
	}

	// S4: Macro-Path Loader.
	macroStart := time.Now()
	macroPaths, err := loadMacroPaths(ctx, o.deps.Catalog, ruleID)
	observability.RuleLoadDuration.WithLabelValues("macro_paths").Observe(time.Since(macroStart).Seconds())
	if err != nil {
		return o.writeback(ctx, rule, joinErr(err, warnings), false)
	}

	// S5: Row Extractor.
	rows, rowWarnings, err := extractRows(payload, filter, macroPaths)
	if err != nil {
		return o.writeback(ctx, rule, joinErr(err, warnings), false)
	}
	warnings = append(warnings, rowWarnings...)
	observability.Debug(ctx, "lld: rule %s: %d rows survived filtering", ruleID, len(rows))
	observability.RowsExtracted.WithLabelValues(ruleID).Observe(float64(len(rows)))
	for _, w := range rowWarnings {
		reason := "missing_macro"
		if strings.HasPrefix(w, "filter evaluation failed") {
			reason = "eval_error"
		}
		observability.RowsDiscarded.WithLabelValues(ruleID, reason).Inc()
	}

	// S6: Reconciler Fan-out.
	if err := o.deps.Reconcilers.Run(ctx, ruleID, rows); err != nil {
		warnings = append(warnings, err.Error())
		observability.ReconcileErrors.WithLabelValues(ruleID).Inc()
	}

	// S7: State & Error Writeback.
	if err := o.writeback(ctx, rule, strings.Join(warnings, "; "), true); err != nil {
		return err
	}
	outcome = "ok"
	return nil
}

// writeback implements the single persistence point (§4.9, §7): compare
// the newly computed error text against the persisted one, transition
// state to normal if the rule reached row extraction from a
// not_supported start, emit a state event on transition, and apply the
// diff to the cache exactly once -- all only when something actually
// changed, so a repeat invocation with an unchanged catalog is a no-op.
func (o *Orchestrator) writeback(ctx context.Context, rule models.Rule, errText string, reachedExtraction bool) error {
	newState := rule.State
	if reachedExtraction && rule.State == models.StateNotSupported {
		newState = models.StateNormal
	}

	stateChanged := newState != rule.State
	errChanged := errText != rule.LastError
	if !stateChanged && !errChanged {
		return nil
	}

	if stateChanged && newState == models.StateNormal {
		o.deps.Emitter.Emit(rule.ID, newState.String())
		o.deps.Emitter.ProcessEvents()
		o.deps.Emitter.CleanEvents()
		observability.EventsEmitted.Inc()
		observability.Info(ctx, "lld: rule %s transitioned to %s", rule.ID, newState)
	}

	if err := o.deps.Catalog.UpdateRuleState(ctx, rule.ID, newState, errText); err != nil {
		return err
	}
	if stateChanged {
		observability.StateTransitions.WithLabelValues(rule.ID, newState.String()).Inc()
	}

	o.deps.Cache.ApplyDiff(cache.ItemDiff{RuleID: rule.ID, State: newState, Error: errText})
	return nil
}

func joinErr(err error, warnings []string) string {
	parts := append([]string{err.Error()}, warnings...)
	return strings.Join(parts, "; ")
}
