package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/pkg/models"
)

// maxLifetime is the clamp applied to an unparsable lifetime spec
// (§4.2): 25 years.
const maxLifetime = 25 * 365 * 24 * time.Hour

// loadRule implements the rule loader (§4.2): fetch the catalog row,
// translating a not-found result into ErrRuleMissing so the
// orchestrator can abort silently without a writeback.
func loadRule(ctx context.Context, reader catalog.RuleReader, ruleID string) (models.Rule, error) {
	rule, err := reader.Rule(ctx, ruleID)
	if err != nil {
		return models.Rule{}, newError(KindRuleMissing, err)
	}
	return rule, nil
}

// resolveLifetime interpolates host macros into the rule's lifetime
// spec and parses it as a Go duration. An unparsable spec is clamped to
// maxLifetime and reported as a warning rather than aborting the run.
func resolveLifetime(spec string, hostFields map[string]string) (time.Duration, string) {
	if spec == "" {
		return maxLifetime, ""
	}
	interpolated := substituteHostMacros(spec, hostFields)
	d, err := time.ParseDuration(interpolated)
	if err != nil {
		return maxLifetime, fmt.Sprintf("lifetime-invalid: %q clamped to %s", spec, maxLifetime)
	}
	if d > maxLifetime {
		return maxLifetime, ""
	}
	return d, ""
}
