package api

import (
	"encoding/json"
	"net/http"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/observability"
	"github.com/lldcore/engine/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RuleBundle is a rule together with its conditions and macro paths, the
// unit the admin API reads and writes as a whole.
type RuleBundle struct {
	Rule       models.Rule        `json:"rule"`
	Conditions []models.Condition `json:"conditions,omitempty"`
	MacroPaths []models.MacroPath `json:"macroPaths,omitempty"`
}

// RuleHandlers provides HTTP handlers for the rule admin API.
type RuleHandlers struct {
	store  catalog.AdminStore
	tracer trace.Tracer
}

// NewRuleHandlers creates rule API handlers.
func NewRuleHandlers(store catalog.AdminStore, tracer trace.Tracer) *RuleHandlers {
	return &RuleHandlers{store: store, tracer: tracer}
}

func (h *RuleHandlers) startSpan(r *http.Request, name string) (*http.Request, trace.Span) {
	if h.tracer == nil {
		return r, nil
	}
	ctx, span := h.tracer.Start(r.Context(), name)
	return r.WithContext(ctx), span
}

func endSpan(span trace.Span) {
	if span != nil {
		span.End()
	}
}

// GetRules handles GET /rules.
func (h *RuleHandlers) GetRules(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "GetRules")
	defer endSpan(span)
	ctx := r.Context()

	rules, err := h.store.ListRules(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules: "+err.Error())
		return
	}
	if span != nil {
		span.SetAttributes(attribute.Int("rules.count", len(rules)))
	}
	reportRulesActive(rules)
	respondJSON(w, http.StatusOK, rules)
}

// reportRulesActive recomputes the active-rules-by-state gauge from a
// fresh listing, since the admin API is the only place that sees every
// rule at once.
func reportRulesActive(rules []models.Rule) {
	counts := map[models.RuleState]int{}
	for _, r := range rules {
		counts[r.State]++
	}
	for state, count := range counts {
		observability.RulesActive.WithLabelValues(state.String()).Set(float64(count))
	}
}

// GetRuleByID handles GET /rules/{id}, returning the rule plus its
// conditions and macro paths.
func (h *RuleHandlers) GetRuleByID(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "GetRuleByID")
	defer endSpan(span)
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	rule, err := h.store.GetRule(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found: "+id)
		return
	}
	conditions, err := h.store.Conditions(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load conditions: "+err.Error())
		return
	}
	macroPaths, err := h.store.MacroPaths(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load macro paths: "+err.Error())
		return
	}

	if span != nil {
		span.SetAttributes(attribute.String("rule.id", rule.ID))
	}
	respondJSON(w, http.StatusOK, RuleBundle{Rule: rule, Conditions: conditions, MacroPaths: macroPaths})
}

// CreateRule handles POST /rules.
func (h *RuleHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "CreateRule")
	defer endSpan(span)
	ctx := r.Context()

	var bundle RuleBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if bundle.Rule.Key == "" {
		respondError(w, http.StatusBadRequest, "missing required field: rule.key")
		return
	}
	if problems := validateBundle(bundle); len(problems) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string][]string{"problems": problems})
		return
	}

	created, err := h.store.CreateRule(ctx, bundle.Rule)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create rule: "+err.Error())
		return
	}
	if err := h.store.PutConditions(ctx, created.ID, bundle.Conditions); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store conditions: "+err.Error())
		return
	}
	if err := h.store.PutMacroPaths(ctx, created.ID, bundle.MacroPaths); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store macro paths: "+err.Error())
		return
	}

	if span != nil {
		span.SetAttributes(attribute.String("rule.id", created.ID))
	}
	respondJSON(w, http.StatusCreated, RuleBundle{Rule: created, Conditions: bundle.Conditions, MacroPaths: bundle.MacroPaths})
}

// UpdateRule handles PUT /rules/{id}.
func (h *RuleHandlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "UpdateRule")
	defer endSpan(span)
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	var bundle RuleBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if problems := validateBundle(bundle); len(problems) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string][]string{"problems": problems})
		return
	}

	updated, err := h.store.UpdateRule(ctx, id, bundle.Rule)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found: "+id)
		return
	}
	if err := h.store.PutConditions(ctx, id, bundle.Conditions); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store conditions: "+err.Error())
		return
	}
	if err := h.store.PutMacroPaths(ctx, id, bundle.MacroPaths); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store macro paths: "+err.Error())
		return
	}

	if span != nil {
		span.SetAttributes(attribute.String("rule.id", updated.ID))
	}
	respondJSON(w, http.StatusOK, RuleBundle{Rule: updated, Conditions: bundle.Conditions, MacroPaths: bundle.MacroPaths})
}

// DeleteRule handles DELETE /rules/{id}.
func (h *RuleHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "DeleteRule")
	defer endSpan(span)
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing rule id")
		return
	}

	if err := h.store.DeleteRule(ctx, id); err != nil {
		respondError(w, http.StatusNotFound, "rule not found: "+id)
		return
	}

	if span != nil {
		span.SetAttributes(attribute.String("rule.id", id))
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "message": "rule deleted"})
}
