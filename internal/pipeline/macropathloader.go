package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/lldcore/engine/internal/catalog"
	"github.com/lldcore/engine/internal/docpath"
	"github.com/lldcore/engine/pkg/models"
)

// loadMacroPaths implements the macro-path loader (§4.4): fetch the
// rule's macro-to-path mappings, validate each against the path
// grammar, and ensure the result is sorted by macro so the resolver
// can binary-search it.
func loadMacroPaths(ctx context.Context, reader catalog.MacroPathReader, ruleID string) ([]models.MacroPath, error) {
	paths, err := reader.MacroPaths(ctx, ruleID)
	if err != nil {
		return nil, newError(KindBadPath, err)
	}

	for _, p := range paths {
		if err := docpath.Validate(p.Path); err != nil {
			return nil, newError(KindBadPath, fmt.Errorf("macro %q: %w", p.Macro, err))
		}
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i].Macro < paths[j].Macro })
	return paths, nil
}
