package docpath

import (
	"fmt"
	"strconv"
)

// Validate parses a path expression and reports whether it is
// well-formed, without resolving it against any document.
func Validate(expr string) error {
	_, err := Parse(expr)
	if err != nil {
		return fmt.Errorf("docpath: invalid path %q: %w", expr, err)
	}
	return nil
}

// Resolve walks doc (the result of decoding a JSON row into an `any`)
// along path and returns the value found there rendered as text, or false
// if the path does not resolve against this particular document.
func Resolve(doc any, path *Path) (string, bool) {
	cur := doc
	for _, step := range path.Steps {
		switch {
		case step.Field != nil:
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = obj[*step.Field]
			if !ok {
				return "", false
			}
		case step.Key != nil:
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = obj[*step.Key]
			if !ok {
				return "", false
			}
		case step.Index != nil:
			arr, ok := cur.([]any)
			if !ok || *step.Index < 0 || *step.Index >= len(arr) {
				return "", false
			}
			cur = arr[*step.Index]
		}
	}
	return stringify(cur)
}

// ResolveExpr parses and resolves in one call; used by callers that do
// not cache the parsed path.
func ResolveExpr(doc any, expr string) (string, bool, error) {
	p, err := Parse(expr)
	if err != nil {
		return "", false, fmt.Errorf("docpath: invalid path %q: %w", expr, err)
	}
	v, ok := Resolve(doc, p)
	return v, ok, nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
