package pipeline

import (
	"github.com/lldcore/engine/internal/formula"
	"github.com/lldcore/engine/pkg/models"
)

// evaluateFilter implements the filter evaluator (§4.7), dispatching on
// evaltype against a row's already-resolved field view.
func evaluateFilter(f *loadedFilter, fields map[string]string) (bool, error) {
	switch f.EvalType {
	case models.EvalAnd:
		return evaluateAnd(f, fields), nil
	case models.EvalOr:
		return evaluateOr(f, fields), nil
	case models.EvalAndOr:
		return evaluateAndOr(f, fields), nil
	case models.EvalExpression:
		return evaluateExpression(f, fields)
	default:
		return false, nil
	}
}

func evaluateAnd(f *loadedFilter, fields map[string]string) bool {
	for _, c := range f.Conditions {
		if !matchCondition(fields, c) {
			return false
		}
	}
	return true
}

func evaluateOr(f *loadedFilter, fields map[string]string) bool {
	for _, c := range f.Conditions {
		if matchCondition(fields, c) {
			return true
		}
	}
	return false
}

// evaluateAndOr scans conditions in macro-sorted order, maintaining a
// running group result (disjunctive within a macro group) that is
// conjoined into the accumulator each time a new macro group begins.
func evaluateAndOr(f *loadedFilter, fields map[string]string) bool {
	if len(f.Conditions) == 0 {
		return true
	}

	accumulator := true
	currentMacro := f.Conditions[0].Macro
	groupResult := false

	for _, c := range f.Conditions {
		if c.Macro != currentMacro {
			if !groupResult {
				return false
			}
			accumulator = accumulator && groupResult
			currentMacro = c.Macro
			groupResult = false
		}
		if matchCondition(fields, c) {
			groupResult = true
		}
	}
	accumulator = accumulator && groupResult
	return accumulator
}

func evaluateExpression(f *loadedFilter, fields map[string]string) (bool, error) {
	results := make(map[uint64]bool, len(f.Conditions))
	for _, c := range f.Conditions {
		results[c.ID] = matchCondition(fields, c)
	}
	return formula.Evaluate(f.Formula, results)
}
