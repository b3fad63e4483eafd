package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/regexset"
	"github.com/lldcore/engine/pkg/models"
)

// loadFilter implements the filter loader (§4.3): fetch every condition
// for the rule, resolve each to compiled regex alternatives -- either a
// named-expression registry lookup or a freshly compiled literal
// pattern, interpolated with host-scoped macros first -- and, for
// and_or filters, sort conditions by (macro, id) so group boundaries
// and intra-group order are deterministic across reloads.
func loadFilter(ctx context.Context, reader catalog.ConditionReader, ruleID string, evalType models.EvalType, formula string, lookupNamed func(name string) *regexset.CompiledSet, hostFields map[string]string) (*loadedFilter, error) {
	conditions, err := reader.Conditions(ctx, ruleID)
	if err != nil {
		return nil, newError(KindUnknownNamedExpression, err)
	}

	loaded := make([]loadedCondition, 0, len(conditions))
	for _, c := range conditions {
		set, err := resolveConditionSet(c, lookupNamed, hostFields)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, loadedCondition{Condition: c, Set: set})
	}

	if evalType == models.EvalAndOr {
		sort.Slice(loaded, func(i, j int) bool {
			if loaded[i].Macro != loaded[j].Macro {
				return loaded[i].Macro < loaded[j].Macro
			}
			return loaded[i].ID < loaded[j].ID
		})
	}

	return &loadedFilter{EvalType: evalType, Formula: formula, Conditions: loaded}, nil
}

func resolveConditionSet(c models.Condition, lookupNamed func(name string) *regexset.CompiledSet, hostFields map[string]string) (*regexset.CompiledSet, error) {
	if strings.HasPrefix(c.Value, "@") {
		set := lookupNamed(c.Value[1:])
		if set == nil {
			return nil, newError(KindUnknownNamedExpression, fmt.Errorf("condition %d: no named expression %q", c.ID, c.Value))
		}
		return set, nil
	}

	pattern := substituteHostMacros(c.Value, hostFields)
	set, err := regexset.Compile(pattern)
	if err != nil {
		return nil, newError(KindUnknownNamedExpression, fmt.Errorf("condition %d: %w", c.ID, err))
	}
	return set, nil
}
