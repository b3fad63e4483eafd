package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/pkg/models"
)

func TestGetRules_Success(t *testing.T) {
	store := catalog.NewMemory()
	handlers := NewRuleHandlers(store, nil)

	store.CreateRule(context.Background(), models.Rule{Key: "rule-1", EvalType: models.EvalAnd})
	store.CreateRule(context.Background(), models.Rule{Key: "rule-2", EvalType: models.EvalOr})

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	w := httptest.NewRecorder()
	handlers.GetRules(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var rules []models.Rule
	if err := json.NewDecoder(w.Body).Decode(&rules); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("expected 2 rules, got %d", len(rules))
	}
}

func TestGetRules_EmptyStore(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	w := httptest.NewRecorder()
	handlers.GetRules(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var rules []models.Rule
	if err := json.NewDecoder(w.Body).Decode(&rules); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected 0 rules, got %d", len(rules))
	}
}

func TestGetRuleByID_Success(t *testing.T) {
	store := catalog.NewMemory()
	handlers := NewRuleHandlers(store, nil)

	store.CreateRule(context.Background(), models.Rule{ID: "test-123", Key: "rule-1", EvalType: models.EvalAnd})
	store.PutConditions(context.Background(), "test-123", []models.Condition{
		{Macro: "A", Value: "^x$", Operator: models.OpRegexpMatch},
	})

	req := httptest.NewRequest(http.MethodGet, "/rules/test-123", nil)
	req.SetPathValue("id", "test-123")
	w := httptest.NewRecorder()
	handlers.GetRuleByID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var bundle RuleBundle
	if err := json.NewDecoder(w.Body).Decode(&bundle); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if bundle.Rule.ID != "test-123" || len(bundle.Conditions) != 1 {
		t.Errorf("unexpected bundle: %+v", bundle)
	}
}

func TestGetRuleByID_NotFound(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	req := httptest.NewRequest(http.MethodGet, "/rules/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	handlers.GetRuleByID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestCreateRule_Success(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	body := RuleBundle{
		Rule: models.Rule{Key: "rule-1", EvalType: models.EvalAnd},
		Conditions: []models.Condition{
			{Macro: "A", Value: "^x$", Operator: models.OpRegexpMatch},
		},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handlers.CreateRule(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created RuleBundle
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.Rule.ID == "" {
		t.Error("expected a generated rule id")
	}
}

func TestCreateRule_MissingKey(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	body := RuleBundle{Rule: models.Rule{EvalType: models.EvalAnd}}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handlers.CreateRule(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCreateRule_InvalidCondition(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	body := RuleBundle{
		Rule: models.Rule{Key: "rule-1", EvalType: models.EvalAnd},
		Conditions: []models.Condition{
			{Macro: "A", Value: "(unterminated", Operator: models.OpRegexpMatch},
		},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/rules", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handlers.CreateRule(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", w.Code)
	}
}

func TestUpdateRule_Success(t *testing.T) {
	store := catalog.NewMemory()
	handlers := NewRuleHandlers(store, nil)

	created, _ := store.CreateRule(context.Background(), models.Rule{Key: "rule-1", EvalType: models.EvalAnd})

	body := RuleBundle{Rule: models.Rule{Key: "rule-1-renamed", EvalType: models.EvalOr}}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPut, "/rules/"+created.ID, bytes.NewReader(raw))
	req.SetPathValue("id", created.ID)
	w := httptest.NewRecorder()
	handlers.UpdateRule(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateRule_NotFound(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	body := RuleBundle{Rule: models.Rule{Key: "rule-1", EvalType: models.EvalAnd}}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPut, "/rules/missing", bytes.NewReader(raw))
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	handlers.UpdateRule(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteRule_Success(t *testing.T) {
	store := catalog.NewMemory()
	handlers := NewRuleHandlers(store, nil)

	created, _ := store.CreateRule(context.Background(), models.Rule{Key: "rule-1", EvalType: models.EvalAnd})

	req := httptest.NewRequest(http.MethodDelete, "/rules/"+created.ID, nil)
	req.SetPathValue("id", created.ID)
	w := httptest.NewRecorder()
	handlers.DeleteRule(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	if _, err := store.GetRule(context.Background(), created.ID); err == nil {
		t.Error("expected rule to be gone")
	}
}

func TestValidateRule_ReportsProblems(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	body := ValidateRuleRequest{
		Rule: models.Rule{EvalType: models.EvalAnd},
		Conditions: []models.Condition{
			{ID: 1, Macro: "A", Value: "(unterminated", Operator: models.OpRegexpMatch},
		},
		MacroPaths: []models.MacroPath{
			{Macro: "#X", Path: "not-a-path"},
		},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/rules/validate", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handlers.ValidateRule(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp ValidateRuleResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Valid || len(resp.Problems) != 2 {
		t.Errorf("expected 2 problems, got %+v", resp)
	}
}

func TestImportRules_PartialFailure(t *testing.T) {
	handlers := NewRuleHandlers(catalog.NewMemory(), nil)

	yamlBody := `
rules:
  - key: good-rule
    evalType: and
    conditions:
      - macro: A
        value: "^x$"
        operator: regexp-match
  - key: bad-rule
    evalType: not-a-real-evaltype
`
	req := httptest.NewRequest(http.MethodPost, "/rules/import", bytes.NewBufferString(yamlBody))
	w := httptest.NewRecorder()
	handlers.ImportRules(w, req)

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("expected status 207, got %d: %s", w.Code, w.Body.String())
	}
	var results ImportResults
	if err := json.NewDecoder(w.Body).Decode(&results); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if results.Succeeded != 1 || results.Failed != 1 {
		t.Errorf("expected 1 succeeded and 1 failed, got %+v", results)
	}
}
