package types

import "fmt"

// Op identifies a relational comparison operator.
type Op int

const (
	EQ Op = iota
	NEQ
	LT
	GT
	LE
	GE
)

func (op Op) String() string {
	switch op {
	case EQ:
		return "=="
	case NEQ:
		return "!="
	case LT:
		return "<"
	case GT:
		return ">"
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// ParseOp maps an operator symbol to its Op. A single "=" is accepted as
// an alias for "==".
func ParseOp(sym string) (Op, error) {
	switch sym {
	case "==", "=":
		return EQ, nil
	case "!=":
		return NEQ, nil
	case "<":
		return LT, nil
	case ">":
		return GT, nil
	case "<=":
		return LE, nil
	case ">=":
		return GE, nil
	default:
		return 0, fmt.Errorf("unrecognized operator %q", sym)
	}
}

// Negate returns the operator whose result is the logical complement:
// NOT (a < b) is (a >= b), and so on.
func (op Op) Negate() Op {
	switch op {
	case EQ:
		return NEQ
	case NEQ:
		return EQ
	case LT:
		return GE
	case GT:
		return LE
	case LE:
		return GT
	default:
		return LT
	}
}

// Compare applies op to two values of the same type. Both operands must
// carry the same TypeID; the compiler guarantees this by binding literals
// to the field's declared type before any comparison happens.
func Compare(op Op, a, b Value) bool {
	c := order(a, b)
	switch op {
	case EQ:
		return c == 0
	case NEQ:
		return c != 0
	case LT:
		return c < 0
	case GT:
		return c > 0
	case LE:
		return c <= 0
	case GE:
		return c >= 0
	default:
		return false
	}
}

func order(a, b Value) int {
	switch a.t.ID {
	case FloatType, DoubleType:
		switch {
		case a.f < b.f:
			return -1
		case a.f > b.f:
			return 1
		}
		return 0
	case StringType:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		}
		return 0
	default:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
}
