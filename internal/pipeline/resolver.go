package pipeline

import (
	"fmt"
	"sort"

	"github.com/lldcore/engine/internal/docpath"
	"github.com/lldcore/engine/pkg/models"
)

// resolveMacro implements the macro resolver (§4.5): binary-search the
// rule's macro-paths for macro; if present, project the value out of
// doc along that path. Otherwise fall back to a direct field lookup on
// the decoded object. The third return value distinguishes a
// path-registered macro (true) from a direct-field one (false), used by
// the row extractor to phrase its missing-macro diagnostic.
func resolveMacro(doc map[string]any, macro string, paths []models.MacroPath) (value string, ok bool, viaPath bool) {
	i := sort.Search(len(paths), func(i int) bool { return paths[i].Macro >= macro })
	if i < len(paths) && paths[i].Macro == macro {
		v, found, err := docpath.ResolveExpr(doc, paths[i].Path)
		if err != nil {
			return "", false, true
		}
		return v, found, true
	}

	v, found := doc[macro]
	if !found {
		return "", false, false
	}
	s, ok := stringifyField(v)
	return s, ok, false
}

func stringifyField(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
