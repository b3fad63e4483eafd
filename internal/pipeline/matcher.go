package pipeline

import (
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
)

// matchCondition implements the condition matcher (§4.6): resolve the
// condition's macro against the row's flattened field view, match the
// resolved value against the compiled alternatives, and map the
// three-way match outcome to pass/fail by operator. A macro absent from
// fields fails the condition; this does not itself produce a
// diagnostic -- the row extractor accumulates missing-macro warnings
// separately, once per macro per row, before filter evaluation runs.
func matchCondition(fields map[string]string, c loadedCondition) bool {
	value, ok := fields[c.Macro]
	if !ok {
		return false
	}

	result := c.Set.Match(value)
	switch c.Operator {
	case models.OpRegexpMatch:
		return result == regexset.Matched
	case models.OpRegexpNotMatch:
		return result == regexset.NotMatched
	default:
		return false
	}
}
