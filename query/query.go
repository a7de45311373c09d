// Package query implements the filter expression language: a lexer and
// parser for conditions like (a > 5 AND b == "x") OR c != 10, and a
// compiler that turns the parse tree into disjunctive normal form bound
// to a schema. Compilation happens once when a filter or trigger is
// installed; the compiled form is then tested per record with no
// further parsing cost.
package query

import "github.com/awesome-nfv/confluo/schema"

// FilterFromQuery compiles a textual filter expression against a schema.
// This performs the following steps:
// 1. Lexical analysis
// 2. Parsing
// 3. DNF compilation
// An empty expression yields the match-all sentinel.
func FilterFromQuery(src string, s *schema.Schema) (CompiledExpression, error) {
	lexer := NewLexer(src)
	if lexer.NextToken().Type == TokenEOF {
		return MatchAll(), nil
	}

	parser := NewParser(NewLexer(src))
	ast, err := parser.Parse()
	if err != nil {
		return CompiledExpression{}, err
	}

	return Compile(ast, s)
}
