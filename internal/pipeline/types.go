package pipeline

import (
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
)

// loadedCondition pairs a catalog condition row with the compiled
// regular-expression alternatives the filter loader resolved for it.
type loadedCondition struct {
	models.Condition
	Set *regexset.CompiledSet
}

// loadedFilter is the fully-resolved, ready-to-evaluate form of a rule's
// filter: conditions carry compiled regex state, and -- for and_or --
// are sorted by (macro, id) so group boundaries are deterministic.
type loadedFilter struct {
	EvalType   models.EvalType
	Formula    string
	Conditions []loadedCondition
}

// macros returns the distinct macro names referenced by the filter's
// conditions, in first-seen order.
func (f *loadedFilter) macros() []string {
	seen := make(map[string]struct{}, len(f.Conditions))
	out := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		if _, ok := seen[c.Macro]; ok {
			continue
		}
		seen[c.Macro] = struct{}{}
		out = append(out, c.Macro)
	}
	return out
}
