package pipeline

import "strings"

// substituteHostMacros interpolates host-scoped macros of the form
// {HOST.FIELD} into s using the item metadata fields resolved for the
// rule's host. Tokens for fields the item metadata does not carry are
// left untouched -- this is the "lld-filter" substitution mode used by
// both the lifetime spec and literal regex patterns (§4.2, §4.3).
func substituteHostMacros(s string, fields map[string]string) string {
	if len(fields) == 0 || !strings.Contains(s, "{HOST.") {
		return s
	}
	for name, value := range fields {
		s = strings.ReplaceAll(s, "{HOST."+name+"}", value)
	}
	return s
}
