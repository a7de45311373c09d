package query

import (
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenIdentifier TokenType = iota
	TokenString
	TokenNumber
	TokenLeftParen    // '('
	TokenRightParen   // ')'
	TokenComma        // ','
	TokenEqual        // '==' or '='
	TokenNotEqual     // '!='
	TokenGreater      // '>'
	TokenGreaterEqual // '>='
	TokenLess         // '<'
	TokenLessEqual    // '<='
	TokenAnd          // 'AND' / '&&'
	TokenOr           // 'OR' / '||'
	TokenNot          // 'NOT' / '!'
	TokenEOF
	TokenIllegal
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case '(':
		tok.Type, tok.Literal = TokenLeftParen, "("
	case ')':
		tok.Type, tok.Literal = TokenRightParen, ")"
	case ',':
		tok.Type, tok.Literal = TokenComma, ","
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenEqual, "=="
		} else {
			tok.Type, tok.Literal = TokenEqual, "="
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenNotEqual, "!="
		} else {
			tok.Type, tok.Literal = TokenNot, "!"
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok.Type, tok.Literal = TokenAnd, "&&"
		} else {
			tok.Type, tok.Literal = TokenIllegal, "&"
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type, tok.Literal = TokenOr, "||"
		} else {
			tok.Type, tok.Literal = TokenIllegal, "|"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenGreaterEqual, ">="
		} else {
			tok.Type, tok.Literal = TokenGreater, ">"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = TokenLessEqual, "<="
		} else {
			tok.Type, tok.Literal = TokenLess, "<"
		}
	case '"', '\'':
		tok.Type = TokenString
		tok.Literal = l.readString(l.ch)
		return tok
	case 0:
		tok.Type, tok.Literal = TokenEOF, ""
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = lookupIdentifier(tok.Literal)
			return tok
		} else if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			tok.Type = TokenNumber
			tok.Literal = l.readNumber()
			return tok
		}
		tok.Type, tok.Literal = TokenIllegal, string(l.ch)
	}

	l.readChar()
	return tok
}

func lookupIdentifier(ident string) TokenType {
	switch strings.ToUpper(ident) {
	case "AND":
		return TokenAnd
	case "OR":
		return TokenOr
	case "NOT":
		return TokenNot
	default:
		return TokenIdentifier
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) readString(quote byte) string {
	position := l.position + 1
	for {
		l.readChar()
		if l.ch == quote || l.ch == 0 {
			break
		}
	}
	s := l.input[position:l.position]
	l.readChar()
	return s
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
