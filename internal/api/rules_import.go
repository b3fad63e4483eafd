package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/lldcore/engine/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// YAMLRuleFile is the structure accepted by bulk import.
type YAMLRuleFile struct {
	Rules []YAMLRule `yaml:"rules"`
}

// YAMLRule is a single rule in YAML bundle form.
type YAMLRule struct {
	ID           string          `yaml:"id"`
	HostID       string          `yaml:"hostId"`
	Key          string          `yaml:"key"`
	EvalType     string          `yaml:"evalType"`
	Formula      string          `yaml:"formula,omitempty"`
	LifetimeSpec string          `yaml:"lifetimeSpec,omitempty"`
	Conditions   []YAMLCondition `yaml:"conditions,omitempty"`
	MacroPaths   []YAMLMacroPath `yaml:"macroPaths,omitempty"`
}

// YAMLCondition is a single condition in YAML bundle form.
type YAMLCondition struct {
	Macro    string `yaml:"macro"`
	Value    string `yaml:"value"`
	Operator string `yaml:"operator"`
}

// YAMLMacroPath is a single macro-path mapping in YAML bundle form.
type YAMLMacroPath struct {
	Macro string `yaml:"macro"`
	Path  string `yaml:"path"`
}

// ImportResults is the response from bulk import.
type ImportResults struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []ImportError `json:"errors,omitempty"`
	Imported  []models.Rule `json:"imported"`
}

// ImportError is a single import failure.
type ImportError struct {
	Index   int    `json:"index"`
	RuleID  string `json:"ruleId,omitempty"`
	Message string `json:"message"`
}

// ImportRules handles POST /rules/import: accepts a YAML document with
// multiple rule/condition/macro-path bundles and creates each in turn,
// collecting per-rule failures rather than aborting on the first one.
func (h *RuleHandlers) ImportRules(w http.ResponseWriter, r *http.Request) {
	r, span := h.startSpan(r, "ImportRules")
	defer endSpan(span)
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	var yamlFile YAMLRuleFile
	if err := yaml.Unmarshal(body, &yamlFile); err != nil {
		respondError(w, http.StatusBadRequest, "invalid YAML format: "+err.Error())
		return
	}
	if len(yamlFile.Rules) == 0 {
		respondError(w, http.StatusBadRequest, "no rules found in YAML file")
		return
	}

	results := ImportResults{
		Total:    len(yamlFile.Rules),
		Errors:   make([]ImportError, 0),
		Imported: make([]models.Rule, 0),
	}

	for i, yr := range yamlFile.Rules {
		bundle, err := yr.toBundle()
		if err != nil {
			results.Failed++
			results.Errors = append(results.Errors, ImportError{Index: i, RuleID: yr.ID, Message: err.Error()})
			continue
		}
		if problems := validateBundle(bundle); len(problems) > 0 {
			results.Failed++
			results.Errors = append(results.Errors, ImportError{Index: i, RuleID: yr.ID, Message: fmt.Sprintf("%v", problems)})
			continue
		}

		created, err := h.store.CreateRule(ctx, bundle.Rule)
		if err != nil {
			results.Failed++
			results.Errors = append(results.Errors, ImportError{Index: i, RuleID: yr.ID, Message: "failed to create rule: " + err.Error()})
			continue
		}
		if err := h.store.PutConditions(ctx, created.ID, bundle.Conditions); err != nil {
			results.Failed++
			results.Errors = append(results.Errors, ImportError{Index: i, RuleID: created.ID, Message: "failed to store conditions: " + err.Error()})
			continue
		}
		if err := h.store.PutMacroPaths(ctx, created.ID, bundle.MacroPaths); err != nil {
			results.Failed++
			results.Errors = append(results.Errors, ImportError{Index: i, RuleID: created.ID, Message: "failed to store macro paths: " + err.Error()})
			continue
		}

		results.Succeeded++
		results.Imported = append(results.Imported, created)
	}

	if span != nil {
		span.SetAttributes(
			attribute.Int("import.total", results.Total),
			attribute.Int("import.succeeded", results.Succeeded),
			attribute.Int("import.failed", results.Failed),
		)
	}

	if results.Failed > 0 {
		respondJSON(w, http.StatusMultiStatus, results)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (yr YAMLRule) toBundle() (RuleBundle, error) {
	if yr.Key == "" {
		return RuleBundle{}, fmt.Errorf("missing required field: key")
	}
	evalType, ok := models.ParseEvalType(yr.EvalType)
	if !ok {
		return RuleBundle{}, fmt.Errorf("unknown evalType %q", yr.EvalType)
	}

	conditions := make([]models.Condition, 0, len(yr.Conditions))
	for _, c := range yr.Conditions {
		op, ok := models.ParseOperator(c.Operator)
		if !ok {
			return RuleBundle{}, fmt.Errorf("condition %q: unknown operator %q", c.Macro, c.Operator)
		}
		conditions = append(conditions, models.Condition{Macro: c.Macro, Value: c.Value, Operator: op})
	}

	macroPaths := make([]models.MacroPath, 0, len(yr.MacroPaths))
	for _, p := range yr.MacroPaths {
		macroPaths = append(macroPaths, models.MacroPath{Macro: p.Macro, Path: p.Path})
	}

	return RuleBundle{
		Rule: models.Rule{
			ID:           yr.ID,
			HostID:       yr.HostID,
			Key:          yr.Key,
			EvalType:     evalType,
			Formula:      yr.Formula,
			LifetimeSpec: yr.LifetimeSpec,
		},
		Conditions: conditions,
		MacroPaths: macroPaths,
	}, nil
}
