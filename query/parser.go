package query

import (
	"fmt"
	"strings"

	"github.com/awesome-nfv/confluo/types"
)

// Node is a parsed filter expression tree. After Parse returns, the tree
// contains only ComparisonNode, AndNode, OrNode and FunctionNode values:
// NOT is eliminated by pushing negations down to the comparisons.
type Node interface {
	String() string
}

// ComparisonNode is a leaf comparison: field op literal. The operator is
// kept as its source symbol; the compiler validates and binds it.
type ComparisonNode struct {
	Op      string
	Field   string
	Literal string
}

func (n *ComparisonNode) String() string {
	return fmt.Sprintf("%s%s%s", n.Field, n.Op, n.Literal)
}

type AndNode struct {
	Left  Node
	Right Node
}

func (n *AndNode) String() string {
	return fmt.Sprintf("AND(%s, %s)", n.Left.String(), n.Right.String())
}

type OrNode struct {
	Left  Node
	Right Node
}

func (n *OrNode) String() string {
	return fmt.Sprintf("OR(%s, %s)", n.Left.String(), n.Right.String())
}

// NotNode only exists between parsing and normalization.
type NotNode struct {
	Expr Node
}

func (n *NotNode) String() string {
	return fmt.Sprintf("NOT(%s)", n.Expr.String())
}

// FunctionNode is a call-shaped construct such as length(msg). The grammar
// accepts it so the compiler can reject it with a descriptive error.
type FunctionNode struct {
	Name      string
	Arguments []string
}

func (n *FunctionNode) String() string {
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(n.Arguments, ", "))
}

type Parser struct {
	lexer        *Lexer
	currentToken Token
	peekToken    Token
}

func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// Parse consumes the whole input and returns the normalized expression
// tree. Trailing tokens after a complete expression are an error.
func (p *Parser) Parse() (Node, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected token %q at line %d column %d",
			p.currentToken.Literal, p.currentToken.Line, p.currentToken.Column)
	}
	return pushNegations(node, false)
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.currentToken.Type == TokenOr {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.currentToken.Type == TokenAnd {
		p.nextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.currentToken.Type == TokenNot {
		p.nextToken()
		expr, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotNode{Expr: expr}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.currentToken.Type {
	case TokenLeftParen:
		return p.parseGroupedExpression()
	case TokenIdentifier:
		if p.peekToken.Type == TokenLeftParen {
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			// A comparison against a call, like length(msg) > 5, is
			// swallowed here so the compiler can name the function in
			// its error instead of failing on a stray token.
			if isComparisonOperator(p.currentToken.Type) {
				p.nextToken()
				p.nextToken()
			}
			return fn, nil
		}
		return p.parseComparison()
	default:
		return nil, fmt.Errorf("unexpected token %q at line %d column %d",
			p.currentToken.Literal, p.currentToken.Line, p.currentToken.Column)
	}
}

func (p *Parser) parseGroupedExpression() (Node, error) {
	p.nextToken() // consume '('
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != TokenRightParen {
		return nil, fmt.Errorf("expected ')', got %q", p.currentToken.Literal)
	}
	p.nextToken() // consume ')'
	return expr, nil
}

func (p *Parser) parseComparison() (Node, error) {
	field := p.currentToken.Literal
	p.nextToken()

	if !isComparisonOperator(p.currentToken.Type) {
		return nil, fmt.Errorf("expected comparison operator after %q, got %q",
			field, p.currentToken.Literal)
	}
	op := p.currentToken.Literal
	p.nextToken()

	switch p.currentToken.Type {
	case TokenNumber, TokenString, TokenIdentifier:
		literal := p.currentToken.Literal
		p.nextToken()
		return &ComparisonNode{Op: op, Field: field, Literal: literal}, nil
	default:
		return nil, fmt.Errorf("expected literal after %q %s, got %q",
			field, op, p.currentToken.Literal)
	}
}

func (p *Parser) parseFunction() (Node, error) {
	name := p.currentToken.Literal
	p.nextToken() // consume name
	p.nextToken() // consume '('

	args := []string{}
	for p.currentToken.Type != TokenRightParen {
		if p.currentToken.Type == TokenEOF {
			return nil, fmt.Errorf("expected ')' after arguments of %s", name)
		}
		args = append(args, p.currentToken.Literal)
		p.nextToken()
		if p.currentToken.Type == TokenComma {
			p.nextToken()
		}
	}
	p.nextToken() // consume ')'

	return &FunctionNode{Name: name, Arguments: args}, nil
}

func isComparisonOperator(t TokenType) bool {
	return t == TokenEqual || t == TokenNotEqual ||
		t == TokenGreater || t == TokenGreaterEqual ||
		t == TokenLess || t == TokenLessEqual
}

// pushNegations rewrites the tree so that NOT never appears in the
// result: De Morgan over AND/OR, operator inversion at the leaves.
func pushNegations(node Node, negated bool) (Node, error) {
	switch n := node.(type) {
	case *NotNode:
		return pushNegations(n.Expr, !negated)
	case *AndNode:
		left, err := pushNegations(n.Left, negated)
		if err != nil {
			return nil, err
		}
		right, err := pushNegations(n.Right, negated)
		if err != nil {
			return nil, err
		}
		if negated {
			return &OrNode{Left: left, Right: right}, nil
		}
		return &AndNode{Left: left, Right: right}, nil
	case *OrNode:
		left, err := pushNegations(n.Left, negated)
		if err != nil {
			return nil, err
		}
		right, err := pushNegations(n.Right, negated)
		if err != nil {
			return nil, err
		}
		if negated {
			return &AndNode{Left: left, Right: right}, nil
		}
		return &OrNode{Left: left, Right: right}, nil
	case *ComparisonNode:
		if !negated {
			return n, nil
		}
		op, err := types.ParseOp(n.Op)
		if err != nil {
			return nil, err
		}
		return &ComparisonNode{Op: op.Negate().String(), Field: n.Field, Literal: n.Literal}, nil
	default:
		// Functions cannot be negated away; the compiler rejects them
		// with a descriptive error either way.
		return node, nil
	}
}
