// Package formula evaluates expression-mode filter formulas: a boolean
// expression over tokens {<condition_id>}, each substituted with the
// literal word true (pass) or false (fail) before being handed to the
// external boolean expression evaluator. Tokens are rewritten by a
// single regexp pass rather than substituted in place at fixed width --
// the alternative the token scheme was designed to allow, since a
// condition's match word ("true"/"false") does not fit the byte width
// of every {id} token it replaces.
package formula

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/expr-lang/expr"
)

var tokenPattern = regexp.MustCompile(`\{(\d+)\}`)

// Substitute rewrites every occurrence of a literal token {id}, for each
// id present in results, with the word true or false according to the
// boolean value. A token whose id has no entry in results is left
// untouched.
func Substitute(source string, results map[uint64]bool) string {
	return tokenPattern.ReplaceAllStringFunc(source, func(token string) string {
		id, err := strconv.ParseUint(token[1:len(token)-1], 10, 64)
		if err != nil {
			return token
		}
		pass, ok := results[id]
		if !ok {
			return token
		}
		if pass {
			return "true"
		}
		return "false"
	})
}

// Evaluate substitutes condition results into formula and runs the
// resulting buffer through the boolean expression evaluator. A formula
// referencing a condition id absent from results leaves a literal
// {id} token in the buffer, which is not valid expr-lang syntax and
// surfaces as a compile error here.
func Evaluate(formula string, results map[uint64]bool) (bool, error) {
	substituted := Substitute(formula, results)

	program, err := expr.Compile(substituted, expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("formula: compiling %q: %w", substituted, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return false, fmt.Errorf("formula: evaluating %q: %w", substituted, err)
	}
	pass, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("formula: result of %q is not boolean (%T)", substituted, out)
	}
	return pass, nil
}
