package connectors

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Filter expressions select rows in the datastore connector. The syntax is
// a pipe-separated list of column:value conditions, for example
//
//	country:DE|country:FR|year:2024
//
// Repeated columns OR together (an IN list); distinct columns AND together.
// Values may be quoted to include separators: name:"Doe|Jr".

type filterExpr struct {
	Conditions []*filterCondition `parser:"@@ ( '|' @@ )*"`
}

type filterCondition struct {
	Column string `parser:"@Ident ':'"`
	Value  string `parser:"@(String | Ident | Number)"`
}

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Number", Pattern: `[-+]?\d+(\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},
	{Name: "Punct", Pattern: `[|:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var filterParser = participle.MustBuild[filterExpr](
	participle.Lexer(filterLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// FilterCondition is one parsed column constraint. Values holds every value
// given for the column, in input order.
type FilterCondition struct {
	Column string
	Values []string
}

// ParseFilter parses a filter expression into per-column conditions,
// grouping repeated columns. An empty expression yields no conditions.
func ParseFilter(input string) ([]FilterCondition, error) {
	if input == "" {
		return nil, nil
	}

	expr, err := filterParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", input, err)
	}

	index := make(map[string]int)
	var conditions []FilterCondition
	for _, cond := range expr.Conditions {
		if i, ok := index[cond.Column]; ok {
			conditions[i].Values = append(conditions[i].Values, cond.Value)
			continue
		}
		index[cond.Column] = len(conditions)
		conditions = append(conditions, FilterCondition{
			Column: cond.Column,
			Values: []string{cond.Value},
		})
	}
	return conditions, nil
}
