package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/lldcore/engine/pkg/models"
)

// extractRows implements the row extractor (§4.8): decode the wire
// payload, enumerate its rows, resolve every filter-referenced macro
// (warning, not failing, on a miss), evaluate the filter, and collect
// the surviving rows in payload order.
func extractRows(payload []byte, filter *loadedFilter, macroPaths []models.MacroPath) ([]models.Row, []string, error) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, nil, newError(KindNotAnArray, err)
	}

	elements, err := topLevelArray(raw)
	if err != nil {
		return nil, nil, err
	}

	macros := filter.macros()
	var rows []models.Row
	var warnings []string

	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}

		fields := make(map[string]string, len(macros))
		for _, macro := range macros {
			value, found, viaPath := resolveMacro(obj, macro, macroPaths)
			if !found {
				kind := "direct field"
				if viaPath {
					kind = "path"
				}
				warnings = append(warnings, fmt.Sprintf("no value received for macro %q (%s)", macro, kind))
				continue
			}
			fields[macro] = value
		}

		pass, err := evaluateFilter(filter, fields)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("filter evaluation failed: %v", err))
			continue
		}
		if pass {
			rows = append(rows, models.Row{Fields: fields, Document: obj})
		}
	}

	return rows, warnings, nil
}

// topLevelArray accepts either a bare top-level array or the legacy
// {"data": [...]} envelope and returns the enumerable row elements.
func topLevelArray(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		data, ok := v["data"]
		if !ok {
			return nil, newError(KindNotAnArray, fmt.Errorf("object payload has no %q field", "data"))
		}
		arr, ok := data.([]any)
		if !ok {
			return nil, newError(KindNotAnArray, fmt.Errorf("legacy %q field is not an array", "data"))
		}
		return arr, nil
	default:
		return nil, newError(KindNotAnArray, fmt.Errorf("payload top level is neither an array nor an object"))
	}
}
