package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRule_JSONMarshaling(t *testing.T) {
	rule := Rule{
		ID:           "rule-123",
		HostID:       "host-1",
		Key:          "net.if.discovery",
		State:        StateNormal,
		EvalType:     EvalAndOr,
		LifetimeSpec: "30d",
		CreatedAt:    time.Now().Truncate(time.Second),
		UpdatedAt:    time.Now().Truncate(time.Second),
	}

	data, err := json.Marshal(rule)
	if err != nil {
		t.Fatalf("Failed to marshal rule: %v", err)
	}

	var decoded Rule
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal rule: %v", err)
	}

	if decoded.ID != rule.ID {
		t.Errorf("Expected ID %s, got %s", rule.ID, decoded.ID)
	}
	if decoded.State != rule.State {
		t.Errorf("Expected State %v, got %v", rule.State, decoded.State)
	}
	if decoded.EvalType != rule.EvalType {
		t.Errorf("Expected EvalType %v, got %v", rule.EvalType, decoded.EvalType)
	}
}

func TestRuleState_JSONRoundTrip(t *testing.T) {
	for _, s := range []RuleState{StateNormal, StateNotSupported} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var decoded RuleState
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", s, err)
		}
		if decoded != s {
			t.Errorf("expected %v, got %v", s, decoded)
		}
	}
}

func TestRuleState_UnmarshalUnknown(t *testing.T) {
	var s RuleState
	if err := json.Unmarshal([]byte(`"bogus"`), &s); err == nil {
		t.Error("expected error for unknown rule state")
	}
}

func TestEvalType_JSONRoundTrip(t *testing.T) {
	for _, e := range []EvalType{EvalAndOr, EvalAnd, EvalOr, EvalExpression} {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal %v: %v", e, err)
		}
		var decoded EvalType
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %v: %v", e, err)
		}
		if decoded != e {
			t.Errorf("expected %v, got %v", e, decoded)
		}
	}
}

func TestEvalType_UnmarshalUnknown(t *testing.T) {
	var e EvalType
	if err := json.Unmarshal([]byte(`"bogus"`), &e); err == nil {
		t.Error("expected error for unknown evaltype")
	}
}

func TestCondition_JSONMarshaling(t *testing.T) {
	cond := Condition{
		ID:       1,
		RuleID:   "rule-123",
		Macro:    "#IFNAME",
		Value:    "^eth",
		Operator: OpRegexpMatch,
	}

	data, err := json.Marshal(cond)
	if err != nil {
		t.Fatalf("Failed to marshal condition: %v", err)
	}

	var decoded Condition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal condition: %v", err)
	}

	if decoded.Macro != cond.Macro {
		t.Errorf("Expected Macro %s, got %s", cond.Macro, decoded.Macro)
	}
	if decoded.Operator != cond.Operator {
		t.Errorf("Expected Operator %v, got %v", cond.Operator, decoded.Operator)
	}
}

func TestMacroPath_JSONMarshaling(t *testing.T) {
	path := MacroPath{RuleID: "rule-123", Macro: "#IFALIAS", Path: "$.metadata.alias"}

	data, err := json.Marshal(path)
	if err != nil {
		t.Fatalf("Failed to marshal macro path: %v", err)
	}

	var decoded MacroPath
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal macro path: %v", err)
	}

	if decoded.Path != path.Path {
		t.Errorf("Expected Path %s, got %s", path.Path, decoded.Path)
	}
}
