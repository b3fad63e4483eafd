package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/lldcore/engine/internal/cache"
	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/eventbus"
	"github.com/lldcore/engine/internal/gate"
	"github.com/lldcore/engine/internal/reconcile"
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
)

type harness struct {
	t       *testing.T
	mem     *catalog.Memory
	names   *regexset.Registry
	cache   *cache.Cache
	emitter *eventbus.Emitter
	orch    *Orchestrator
	rows    []models.Row
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := catalog.NewMemory()
	names := regexset.NewRegistry()
	c := cache.New(gate.NewRegistry(), names, cache.NewStaticSource(nil))
	e := eventbus.NewEmitter(10)
	e.Start()
	t.Cleanup(e.Stop)

	h := &harness{t: t, mem: mem, names: names, cache: c, emitter: e}
	h.orch = New(Deps{
		Catalog:     mem,
		Cache:       c,
		Emitter:     e,
		Reconcilers: reconcile.NewLoggingFanOut(),
	})
	return h
}

func (h *harness) createRule(rule models.Rule) models.Rule {
	h.t.Helper()
	created, err := h.mem.CreateRule(context.Background(), rule)
	if err != nil {
		h.t.Fatalf("CreateRule: %v", err)
	}
	return created
}

func (h *harness) putConditions(ruleID string, conds []models.Condition) {
	h.t.Helper()
	if err := h.mem.PutConditions(context.Background(), ruleID, conds); err != nil {
		h.t.Fatalf("PutConditions: %v", err)
	}
}

func (h *harness) putMacroPaths(ruleID string, paths []models.MacroPath) {
	h.t.Helper()
	if err := h.mem.PutMacroPaths(context.Background(), ruleID, paths); err != nil {
		h.t.Fatalf("PutMacroPaths: %v", err)
	}
}

func (h *harness) process(ruleID, payload string) error {
	h.t.Helper()
	return h.orch.Process(context.Background(), ruleID, []byte(payload))
}

// Scenario 1: AND all-match.
func TestProcess_AndAllMatch(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r1", EvalType: models.EvalAnd})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "A", Value: "^x$", Operator: models.OpRegexpMatch},
		{ID: 2, Macro: "B", Value: "^y$", Operator: models.OpRegexpMatch},
	})

	payload := `[{"A":"x","B":"y"},{"A":"x","B":"z"}]`
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := h.mem.GetRule(context.Background(), rule.ID)
	if got.LastError != "" {
		t.Errorf("expected no persisted error, got %q", got.LastError)
	}
}

// Scenario 2: AND/OR grouping.
func TestProcess_AndOrGrouping(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r2", EvalType: models.EvalAndOr})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "A", Value: "^1$", Operator: models.OpRegexpMatch},
		{ID: 2, Macro: "A", Value: "^2$", Operator: models.OpRegexpMatch},
		{ID: 3, Macro: "B", Value: "^z$", Operator: models.OpRegexpMatch},
	})

	// Conditions sorted by (macro,id): A/1, A/2, B/3. Group A: 1 or 2.
	// Group B: z. Row survives iff (A in {1,2}) and (B == z).
	var surviving []string
	filter, err := loadFilter(context.Background(), h.mem, rule.ID, rule.EvalType, rule.Formula, h.names.Get, nil)
	if err != nil {
		t.Fatalf("loadFilter: %v", err)
	}
	for _, row := range []map[string]string{
		{"A": "1", "B": "z"},
		{"A": "2", "B": "z"},
		{"A": "3", "B": "z"},
		{"A": "1", "B": "q"},
	} {
		pass, err := evaluateFilter(filter, row)
		if err != nil {
			t.Fatalf("evaluateFilter: %v", err)
		}
		if pass {
			surviving = append(surviving, row["A"]+row["B"])
		}
	}
	if len(surviving) != 2 || surviving[0] != "1z" || surviving[1] != "2z" {
		t.Fatalf("unexpected survivors: %v", surviving)
	}
}

// capturingReconciler records the rows it is asked to reconcile so a
// test can assert exactly what survived filtering, without relying on
// Process's return value (a dropped row never becomes a returned error;
// it only affects the persisted LastError and the reconciled row set).
type capturingReconciler struct {
	rows []models.Row
}

func (c *capturingReconciler) ReconcileItems(_ context.Context, _ string, rows []models.Row) error {
	c.rows = rows
	return nil
}
func (c *capturingReconciler) ReconcileTriggers(context.Context, string, []models.Row) error {
	return nil
}
func (c *capturingReconciler) ReconcileGraphs(context.Context, string, []models.Row) error {
	return nil
}
func (c *capturingReconciler) ReconcileHosts(context.Context, string, []models.Row) error {
	return nil
}

// Scenario 3: expression mode. Formula {100} and not {101} over
// conditions 100 (A matches "yes") and 101 (B matches "yes"); only the
// first payload element (A=yes, B=no) satisfies it.
func TestProcess_ExpressionMode(t *testing.T) {
	h := newHarness(t)
	recorder := &capturingReconciler{}
	h.orch = New(Deps{
		Catalog:     h.mem,
		Cache:       h.cache,
		Emitter:     h.emitter,
		Reconcilers: reconcile.FanOut{Items: recorder, Triggers: recorder, Graphs: recorder, Hosts: recorder},
	})

	rule := h.createRule(models.Rule{ID: "r3", EvalType: models.EvalExpression, Formula: "{100} and not {101}"})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 100, Macro: "A", Value: "^yes$", Operator: models.OpRegexpMatch},
		{ID: 101, Macro: "B", Value: "^yes$", Operator: models.OpRegexpMatch},
	})

	payload := `[{"A":"yes","B":"no"},{"A":"yes","B":"yes"}]`
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(recorder.rows) != 1 || recorder.rows[0].Fields["A"] != "yes" || recorder.rows[0].Fields["B"] != "no" {
		t.Fatalf("expected exactly the first element to survive, got %+v", recorder.rows)
	}

	got, _ := h.mem.GetRule(context.Background(), rule.ID)
	if got.LastError != "" {
		t.Errorf("expected no persisted error, got %q", got.LastError)
	}
}

// Scenario 4: path projection.
func TestProcess_PathProjection(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r4", EvalType: models.EvalAnd})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "#NAME", Value: "^srv-", Operator: models.OpRegexpMatch},
	})
	h.putMacroPaths(rule.ID, []models.MacroPath{{Macro: "#NAME", Path: `$.metadata.name`}})

	payload := `[{"metadata":{"name":"srv-1"}},{"metadata":{"name":"db-1"}}]`
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := h.mem.GetRule(context.Background(), rule.ID)
	if got.LastError != "" {
		t.Errorf("expected no missing-macro warning, got %q", got.LastError)
	}
}

// Scenario 5: missing-macro warning.
func TestProcess_MissingMacroWarning(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r5", EvalType: models.EvalAnd})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "#X", Value: ".*", Operator: models.OpRegexpMatch},
	})

	payload := `[{"Y":"a"}]`
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := h.mem.GetRule(context.Background(), rule.ID)
	if !strings.Contains(got.LastError, `no value received for macro "#X"`) {
		t.Errorf("expected missing-macro diagnostic, got %q", got.LastError)
	}
}

// Scenario 6: state transition.
func TestProcess_StateTransition(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r6", EvalType: models.EvalAnd, State: models.StateNotSupported, LastError: "prev"})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "A", Value: "^x$", Operator: models.OpRegexpMatch},
	})

	payload := `[{"A":"x"}]`
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := h.mem.GetRule(context.Background(), rule.ID)
	if got.State != models.StateNormal {
		t.Errorf("expected state normal, got %s", got.State)
	}
	if got.LastError != "" {
		t.Errorf("expected cleared error, got %q", got.LastError)
	}

	// Idempotence: second invocation with unchanged catalog performs no
	// further writeback -- there is nothing to observe directly since the
	// values are already at rest, but Process must not error or panic and
	// must leave state/error exactly as they are.
	if err := h.process(rule.ID, payload); err != nil {
		t.Fatalf("second Process: %v", err)
	}
	again, _ := h.mem.GetRule(context.Background(), rule.ID)
	if again.State != models.StateNormal || again.LastError != "" {
		t.Errorf("expected unchanged state after idempotent rerun, got %+v", again)
	}
}

// Round-trip: first matching element of a payload with duplicate macro
// values is the one that survives.
func TestProcess_RoundTripPreservesFirstMatch(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r7", EvalType: models.EvalAnd})
	h.putConditions(rule.ID, []models.Condition{
		{ID: 1, Macro: "macro1", Value: "^v1$", Operator: models.OpRegexpMatch},
	})

	filter, err := loadFilter(context.Background(), h.mem, rule.ID, rule.EvalType, rule.Formula, h.names.Get, nil)
	if err != nil {
		t.Fatalf("loadFilter: %v", err)
	}
	rows, _, err := extractRows([]byte(`[{"macro1":"v1"},{"macro1":"v2"}]`), filter, nil)
	if err != nil {
		t.Fatalf("extractRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Fields["macro1"] != "v1" {
		t.Fatalf("expected exactly the first row to survive, got %+v", rows)
	}
}

func TestProcess_RuleLocked(t *testing.T) {
	h := newHarness(t)
	rule := h.createRule(models.Rule{ID: "r8", EvalType: models.EvalAnd})
	h.putConditions(rule.ID, nil)

	if !h.cache.TryLockRule(rule.ID) {
		t.Fatal("expected initial lock to succeed")
	}
	defer h.cache.UnlockRule(rule.ID)

	err := h.process(rule.ID, `[]`)
	if err != ErrRuleLocked {
		t.Fatalf("expected ErrRuleLocked, got %v", err)
	}
}

func TestProcess_RuleMissingAbortsSilently(t *testing.T) {
	h := newHarness(t)
	if err := h.process("does-not-exist", `[]`); err != nil {
		t.Fatalf("expected silent abort, got %v", err)
	}
}
