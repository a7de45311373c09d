package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/awesome-nfv/confluo/schema"
	"github.com/awesome-nfv/confluo/types"
)

// Compilation errors. All of them surface at compile time; evaluating a
// successfully compiled expression cannot fail.
var (
	ErrUnknownField         = errors.New("unknown field")
	ErrBadLiteral           = errors.New("bad literal")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrUnrecognizedOperator = errors.New("unrecognized operator")
)

// CompiledPredicate is one bound comparison: a schema field, a relational
// operator and a literal already parsed into the field's declared type.
// Its canonical string form, cached at construction, is the ordering and
// deduplication key.
type CompiledPredicate struct {
	fieldName string
	fieldIdx  int
	op        types.Op
	value     types.Value
	canon     string
}

func newPredicate(field, opSym, literal string, s *schema.Schema) (CompiledPredicate, error) {
	op, err := types.ParseOp(opSym)
	if err != nil {
		return CompiledPredicate{}, fmt.Errorf("%w: %q", ErrUnrecognizedOperator, opSym)
	}
	f, ok := s.Lookup(field)
	if !ok {
		return CompiledPredicate{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	v, err := types.Parse(literal, f.Type)
	if err != nil {
		return CompiledPredicate{}, fmt.Errorf("%w: field %q: %v", ErrBadLiteral, f.Name, err)
	}
	return CompiledPredicate{
		fieldName: f.Name,
		fieldIdx:  f.Idx,
		op:        op,
		value:     v,
		canon:     f.Name + op.String() + v.String(),
	}, nil
}

func (p CompiledPredicate) FieldName() string  { return p.fieldName }
func (p CompiledPredicate) FieldIdx() int      { return p.fieldIdx }
func (p CompiledPredicate) Op() types.Op       { return p.op }
func (p CompiledPredicate) Value() types.Value { return p.value }

// Test evaluates the predicate against a decoded record.
func (p CompiledPredicate) Test(r schema.Record) bool {
	return types.Compare(p.op, r.At(p.fieldIdx), p.value)
}

// TestRaw evaluates the predicate against raw record bytes through a
// schema snapshot, without materializing the record.
func (p CompiledPredicate) TestRaw(snap schema.Snapshot, data []byte) bool {
	return types.Compare(p.op, snap.Get(data, p.fieldIdx), p.value)
}

func (p CompiledPredicate) String() string { return p.canon }

// CompiledMinterm is a conjunction of predicates, kept sorted by
// canonical form with duplicates collapsed. An empty minterm is
// vacuously true.
type CompiledMinterm struct {
	preds []CompiledPredicate
}

// Add inserts a predicate in canonical order. Adding a predicate equal
// to one already present is a no-op.
func (m *CompiledMinterm) Add(p CompiledPredicate) {
	i := sort.Search(len(m.preds), func(i int) bool {
		return m.preds[i].canon >= p.canon
	})
	if i < len(m.preds) && m.preds[i].canon == p.canon {
		return
	}
	m.preds = append(m.preds, CompiledPredicate{})
	copy(m.preds[i+1:], m.preds[i:])
	m.preds[i] = p
}

// Clone returns an independent copy. Minterms are copied, never shared,
// as they flow through the compiler.
func (m CompiledMinterm) Clone() CompiledMinterm {
	return CompiledMinterm{preds: append([]CompiledPredicate(nil), m.preds...)}
}

func (m CompiledMinterm) NumPredicates() int { return len(m.preds) }

// Predicates returns the predicates in canonical order, as a copy.
func (m CompiledMinterm) Predicates() []CompiledPredicate {
	return append([]CompiledPredicate(nil), m.preds...)
}

// Test is the AND over all predicates, short-circuiting on the first
// false result. Evaluation order is ascending canonical order.
func (m CompiledMinterm) Test(r schema.Record) bool {
	for _, p := range m.preds {
		if !p.Test(r) {
			return false
		}
	}
	return true
}

func (m CompiledMinterm) TestRaw(snap schema.Snapshot, data []byte) bool {
	for _, p := range m.preds {
		if !p.TestRaw(snap, data) {
			return false
		}
	}
	return true
}

func (m CompiledMinterm) String() string {
	parts := make([]string, len(m.preds))
	for i, p := range m.preds {
		parts[i] = p.canon
	}
	return strings.Join(parts, " and ")
}

// CompiledExpression is the DNF root: a disjunction of minterms, kept
// sorted by canonical form with duplicates collapsed. The empty
// expression is the no-filter sentinel and matches every record.
type CompiledExpression struct {
	keys     []string
	minterms []CompiledMinterm
}

// MatchAll returns the empty expression, which matches everything.
func MatchAll() CompiledExpression { return CompiledExpression{} }

func (e *CompiledExpression) insert(m CompiledMinterm) {
	key := m.String()
	i := sort.SearchStrings(e.keys, key)
	if i < len(e.keys) && e.keys[i] == key {
		return
	}
	e.keys = append(e.keys, "")
	copy(e.keys[i+1:], e.keys[i:])
	e.keys[i] = key
	e.minterms = append(e.minterms, CompiledMinterm{})
	copy(e.minterms[i+1:], e.minterms[i:])
	e.minterms[i] = m
}

// union merges two expressions into a fresh one, deduplicating by
// minterm canonical form. Neither operand is mutated.
func (e CompiledExpression) union(other CompiledExpression) CompiledExpression {
	var out CompiledExpression
	out.keys = append([]string(nil), e.keys...)
	out.minterms = append([]CompiledMinterm(nil), e.minterms...)
	for _, m := range other.minterms {
		out.insert(m)
	}
	return out
}

func (e CompiledExpression) NumMinterms() int { return len(e.minterms) }

// Minterms returns the minterms in canonical order, as a copy.
func (e CompiledExpression) Minterms() []CompiledMinterm {
	return append([]CompiledMinterm(nil), e.minterms...)
}

// Test is the OR over all minterms, short-circuiting on the first true
// result. The empty expression matches every record.
func (e CompiledExpression) Test(r schema.Record) bool {
	if len(e.minterms) == 0 {
		return true
	}
	for _, m := range e.minterms {
		if m.Test(r) {
			return true
		}
	}
	return false
}

// TestRaw is Test over raw record bytes via a schema snapshot.
func (e CompiledExpression) TestRaw(snap schema.Snapshot, data []byte) bool {
	if len(e.minterms) == 0 {
		return true
	}
	for _, m := range e.minterms {
		if m.TestRaw(snap, data) {
			return true
		}
	}
	return false
}

func (e CompiledExpression) String() string {
	return strings.Join(e.keys, " or ")
}

// Compile transforms a parsed expression tree into disjunctive normal
// form over the given schema. Literals are bound to their field's
// declared type here, exactly once; the result is immutable and safe for
// concurrent Test calls.
func Compile(node Node, s *schema.Schema) (CompiledExpression, error) {
	var e CompiledExpression
	switch n := node.(type) {
	case *ComparisonNode:
		p, err := newPredicate(n.Field, n.Op, n.Literal, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		var m CompiledMinterm
		m.Add(p)
		e.insert(m)
		return e, nil
	case *OrNode:
		left, err := Compile(n.Left, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		right, err := Compile(n.Right, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		return left.union(right), nil
	case *AndNode:
		// Distribute: (m1 or m2 or ...) and R
		// = (m1 and R) or (m2 and R) or ...
		left, err := Compile(n.Left, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		for _, m := range left.minterms {
			tmp, err := expand(m, n.Right, s)
			if err != nil {
				return CompiledExpression{}, err
			}
			e = e.union(tmp)
		}
		return e, nil
	case *FunctionNode:
		return CompiledExpression{}, fmt.Errorf("%w: function %q", ErrUnsupportedConstruct, n.Name)
	default:
		return CompiledExpression{}, fmt.Errorf("%w: %T", ErrUnsupportedConstruct, node)
	}
}

// expand conjoins an already built minterm with a not yet compiled
// subtree. It recurses in the same shape as Compile but carries the
// accumulated minterm forward instead of starting fresh, which is what
// makes deeply right-nested AND/OR combinations distribute correctly.
func expand(base CompiledMinterm, node Node, s *schema.Schema) (CompiledExpression, error) {
	var e CompiledExpression
	switch n := node.(type) {
	case *ComparisonNode:
		p, err := newPredicate(n.Field, n.Op, n.Literal, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		m := base.Clone()
		m.Add(p)
		e.insert(m)
		return e, nil
	case *OrNode:
		// The shared conjunct distributes into both disjuncts.
		left, err := expand(base, n.Left, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		right, err := expand(base, n.Right, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		return left.union(right), nil
	case *AndNode:
		left, err := expand(base, n.Left, s)
		if err != nil {
			return CompiledExpression{}, err
		}
		for _, m := range left.minterms {
			tmp, err := expand(m, n.Right, s)
			if err != nil {
				return CompiledExpression{}, err
			}
			e = e.union(tmp)
		}
		return e, nil
	case *FunctionNode:
		return CompiledExpression{}, fmt.Errorf("%w: function %q", ErrUnsupportedConstruct, n.Name)
	default:
		return CompiledExpression{}, fmt.Errorf("%w: %T", ErrUnsupportedConstruct, node)
	}
}
