// Package docpath implements the structured-document path expression
// language used to project an LLD macro's value out of a discovery row
// when no directly-named field carries it: expressions like
// $.metadata.name or $.items[0].labels["role"].
package docpath

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Path is the root of a parsed path expression: a leading "$" followed by
// zero or more steps.
type Path struct {
	Steps []*Step `"$" @@*`
}

// Step is either a dotted field access, a bracketed string key, or a
// bracketed numeric index.
type Step struct {
	Field   *string `( "." @Ident`
	Key     *string `| "[" @String "]"`
	Index   *int    `| "[" @Int "]" )`
}

var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[\$\.\[\]]`},
})

var pathParser = participle.MustBuild[Path](
	participle.Lexer(pathLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse parses a structured-document path expression.
func Parse(expr string) (*Path, error) {
	return pathParser.ParseString("", expr)
}
