package query

import "testing"

func TestLexerTokens(t *testing.T) {
	input := `(a >= 5 AND b == "hello world") OR c != -10.5`

	expected := []struct {
		typ     TokenType
		literal string
	}{
		{TokenLeftParen, "("},
		{TokenIdentifier, "a"},
		{TokenGreaterEqual, ">="},
		{TokenNumber, "5"},
		{TokenAnd, "AND"},
		{TokenIdentifier, "b"},
		{TokenEqual, "=="},
		{TokenString, "hello world"},
		{TokenRightParen, ")"},
		{TokenOr, "OR"},
		{TokenIdentifier, "c"},
		{TokenNotEqual, "!="},
		{TokenNumber, "-10.5"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Literal != want.literal {
			t.Fatalf("token %d: got (%v, %q), want (%v, %q)",
				i, tok.Type, tok.Literal, want.typ, want.literal)
		}
	}
}

func TestLexerOperatorAliases(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"=", TokenEqual},
		{"==", TokenEqual},
		{"&&", TokenAnd},
		{"||", TokenOr},
		{"!", TokenNot},
		{"not", TokenNot},
		{"and", TokenAnd},
		{"or", TokenOr},
		{"<", TokenLess},
		{"<=", TokenLessEqual},
	}
	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.typ {
			t.Errorf("lexing %q: got type %v, want %v", tt.input, tok.Type, tt.typ)
		}
	}
}

func TestLexerSingleQuotedString(t *testing.T) {
	l := NewLexer("b == 'x'")
	l.NextToken()
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != TokenString || tok.Literal != "x" {
		t.Errorf("got (%v, %q), want string x", tok.Type, tok.Literal)
	}
}

func TestLexerIllegal(t *testing.T) {
	tok := NewLexer("a # b").NextToken()
	if tok.Type != TokenIdentifier {
		t.Fatalf("first token: %v", tok.Type)
	}
	tok = NewLexer("#").NextToken()
	if tok.Type != TokenIllegal {
		t.Errorf("got %v, want TokenIllegal", tok.Type)
	}
}

func TestLexerLineColumn(t *testing.T) {
	l := NewLexer("a\nb")
	a := l.NextToken()
	b := l.NextToken()
	if a.Line != 1 {
		t.Errorf("a on line %d, want 1", a.Line)
	}
	if b.Line != 2 {
		t.Errorf("b on line %d, want 2", b.Line)
	}
}
