package formula

import "testing"

func TestSubstitute_ReplacesMatchedTokens(t *testing.T) {
	source := "{100} and not {101}"
	got := Substitute(source, map[uint64]bool{100: true, 101: false})
	want := "true and not false"
	if got != want {
		t.Errorf("Substitute() = %q, want %q", got, want)
	}
}

func TestSubstitute_UnmatchedTokenUnchanged(t *testing.T) {
	source := "{100} and {999}"
	got := Substitute(source, map[uint64]bool{100: true})
	if got[len(got)-5:] != "{999}" {
		t.Errorf("expected unmatched token left literal, got %q", got)
	}
}

func TestEvaluate_AndNot(t *testing.T) {
	pass, err := Evaluate("{100} and not {101}", map[uint64]bool{100: true, 101: false})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !pass {
		t.Error("expected pass")
	}
}

func TestEvaluate_Fails(t *testing.T) {
	pass, err := Evaluate("{100} and not {101}", map[uint64]bool{100: true, 101: true})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if pass {
		t.Error("expected fail")
	}
}

func TestEvaluate_OrCombinator(t *testing.T) {
	pass, err := Evaluate("{1} or {2}", map[uint64]bool{1: false, 2: true})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !pass {
		t.Error("expected pass since {2} is true")
	}
}

// A formula referencing a condition id that isn't in results leaves a
// literal {id} token behind, which is not valid expr-lang syntax --
// Evaluate surfaces that as a compile error rather than silently
// passing or failing.
func TestEvaluate_UnmatchedTokenErrors(t *testing.T) {
	_, err := Evaluate("{100} and {999}", map[uint64]bool{100: true})
	if err == nil {
		t.Fatal("expected an error for the unmatched {999} token")
	}
}
