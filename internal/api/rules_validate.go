package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lldcore/engine/internal/docpath"
	"github.com/lldcore/engine/internal/formula"
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// ValidateRuleRequest is the request body for rule validation.
type ValidateRuleRequest struct {
	Rule       models.Rule        `json:"rule"`
	Conditions []models.Condition `json:"conditions,omitempty"`
	MacroPaths []models.MacroPath `json:"macroPaths,omitempty"`
}

// ValidateRuleResponse reports whether a bundle would load cleanly.
type ValidateRuleResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// ValidateRule handles POST /rules/validate: compiles every condition
// pattern, parses every macro path, and (for expression evaltype) checks
// the formula, without persisting anything.
func (h *RuleHandlers) ValidateRule(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "ValidateRule")
	defer endSpan(span)

	var req ValidateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	problems := validateBundle(RuleBundle{Rule: req.Rule, Conditions: req.Conditions, MacroPaths: req.MacroPaths})

	if span != nil {
		span.SetAttributes(attribute.Bool("validation.valid", len(problems) == 0))
	}
	respondJSON(w, http.StatusOK, ValidateRuleResponse{Valid: len(problems) == 0, Problems: problems})
}

// validateBundle checks a rule bundle the same way the filter loader and
// macro-path loader would, surfacing every problem instead of stopping at
// the first one.
func validateBundle(bundle RuleBundle) []string {
	var problems []string

	for _, c := range bundle.Conditions {
		if strings.HasPrefix(c.Value, "@") {
			continue // named-expression reference, resolved at load time against the registry
		}
		if _, err := regexset.Compile(c.Value); err != nil {
			problems = append(problems, fmt.Sprintf("condition %d: %v", c.ID, err))
		}
	}

	for _, p := range bundle.MacroPaths {
		if err := docpath.Validate(p.Path); err != nil {
			problems = append(problems, fmt.Sprintf("macro path %q: %v", p.Macro, err))
		}
	}

	if bundle.Rule.EvalType == models.EvalExpression && bundle.Rule.Formula != "" {
		results := make(map[uint64]bool, len(bundle.Conditions))
		for _, c := range bundle.Conditions {
			results[c.ID] = false
		}
		if _, err := formula.Evaluate(bundle.Rule.Formula, results); err != nil {
			problems = append(problems, fmt.Sprintf("formula: %v", err))
		}
	}

	return problems
}
