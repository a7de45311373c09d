package types

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is an immutable typed scalar. Integral kinds (bool, char, short,
// int, long) share the i field, floating kinds share f, and strings use s.
// A Value is bound to its Type at construction and never changes afterward.
type Value struct {
	t Type
	i int64
	f float64
	s string
}

func (v Value) Type() Type { return v.t }

func BoolValue(b bool) Value {
	n := int64(0)
	if b {
		n = 1
	}
	return Value{t: Bool(), i: n}
}

func IntValue(t Type, n int64) Value     { return Value{t: t, i: n} }
func FloatValue(t Type, f float64) Value { return Value{t: t, f: f} }

func StringValue(t Type, s string) Value { return Value{t: t, s: s} }

// Parse converts a textual literal into a value of the given type. It is
// the single point where untyped query literals become typed; it happens
// once at compile time, never on the evaluation path.
func Parse(literal string, t Type) (Value, error) {
	switch t.ID {
	case BoolType:
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as bool", literal)
		}
		return BoolValue(b), nil
	case CharType:
		if len(literal) != 1 {
			return Value{}, fmt.Errorf("cannot parse %q as char", literal)
		}
		return Value{t: t, i: int64(literal[0])}, nil
	case ShortType, IntType, LongType:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as %s", literal, t)
		}
		if err := checkIntRange(t, n); err != nil {
			return Value{}, err
		}
		return Value{t: t, i: n}, nil
	case FloatType, DoubleType:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return Value{}, fmt.Errorf("cannot parse %q as %s", literal, t)
		}
		if t.ID == FloatType {
			// Round to storage precision so bound literals compare equal
			// to values decoded from the log.
			f = float64(float32(f))
		}
		return Value{t: t, f: f}, nil
	case StringType:
		if len(literal) > t.Size {
			return Value{}, fmt.Errorf("string %q exceeds field capacity %d", literal, t.Size)
		}
		return Value{t: t, s: literal}, nil
	default:
		return Value{}, fmt.Errorf("unknown type %v", t.ID)
	}
}

func checkIntRange(t Type, n int64) error {
	var lo, hi int64
	switch t.ID {
	case ShortType:
		lo, hi = math.MinInt16, math.MaxInt16
	case IntType:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return fmt.Errorf("value %d out of range for %s", n, t)
	}
	return nil
}

// FromAny converts a decoded JSON value (string, float64 or bool) into a
// typed value. Used on the ingest path where records arrive as JSON.
func FromAny(v any, t Type) (Value, error) {
	switch x := v.(type) {
	case string:
		return Parse(x, t)
	case bool:
		if t.ID != BoolType {
			return Value{}, fmt.Errorf("cannot use bool for %s field", t)
		}
		return BoolValue(x), nil
	case float64:
		switch t.ID {
		case FloatType:
			return Value{t: t, f: float64(float32(x))}, nil
		case DoubleType:
			return Value{t: t, f: x}, nil
		case ShortType, IntType, LongType:
			if x != math.Trunc(x) {
				return Value{}, fmt.Errorf("cannot use %v for %s field", x, t)
			}
			n := int64(x)
			if err := checkIntRange(t, n); err != nil {
				return Value{}, err
			}
			return Value{t: t, i: n}, nil
		default:
			return Value{}, fmt.Errorf("cannot use number for %s field", t)
		}
	case int:
		return FromAny(int64(x), t)
	case int64:
		// Kept whole: routing through float64 would round values above
		// 2^53 before they reach the integral kinds.
		switch t.ID {
		case ShortType, IntType, LongType:
			if err := checkIntRange(t, x); err != nil {
				return Value{}, err
			}
			return Value{t: t, i: x}, nil
		case FloatType:
			return Value{t: t, f: float64(float32(x))}, nil
		case DoubleType:
			return Value{t: t, f: float64(x)}, nil
		default:
			return Value{}, fmt.Errorf("cannot use number for %s field", t)
		}
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// String renders the value in its canonical textual form. Predicate
// ordering and deduplication key on this rendering, so it must be stable.
func (v Value) String() string {
	switch v.t.ID {
	case BoolType:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case CharType:
		return string(rune(v.i))
	case ShortType, IntType, LongType:
		return strconv.FormatInt(v.i, 10)
	case FloatType, DoubleType:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringType:
		return v.s
	default:
		return ""
	}
}

func (v Value) Bool() bool     { return v.i != 0 }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }

// Any returns the value as a plain Go value suitable for JSON encoding.
func (v Value) Any() any {
	switch v.t.ID {
	case BoolType:
		return v.i != 0
	case CharType:
		return string(rune(v.i))
	case ShortType, IntType, LongType:
		return v.i
	case FloatType, DoubleType:
		return v.f
	case StringType:
		return v.s
	default:
		return nil
	}
}

// Encode writes the value into buf, which must be at least v.Type().Size
// bytes. Integers are little-endian; strings are NUL-padded to capacity.
func (v Value) Encode(buf []byte) {
	switch v.t.ID {
	case BoolType, CharType:
		buf[0] = byte(v.i)
	case ShortType:
		binary.LittleEndian.PutUint16(buf, uint16(v.i))
	case IntType:
		binary.LittleEndian.PutUint32(buf, uint32(v.i))
	case LongType:
		binary.LittleEndian.PutUint64(buf, uint64(v.i))
	case FloatType:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.f)))
	case DoubleType:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.f))
	case StringType:
		n := copy(buf[:v.t.Size], v.s)
		for i := n; i < v.t.Size; i++ {
			buf[i] = 0
		}
	}
}

// Decode reads a value of type t from buf, which must be at least t.Size
// bytes. It is the inverse of Encode.
func Decode(buf []byte, t Type) Value {
	switch t.ID {
	case BoolType, CharType:
		return Value{t: t, i: int64(buf[0])}
	case ShortType:
		return Value{t: t, i: int64(int16(binary.LittleEndian.Uint16(buf)))}
	case IntType:
		return Value{t: t, i: int64(int32(binary.LittleEndian.Uint32(buf)))}
	case LongType:
		return Value{t: t, i: int64(binary.LittleEndian.Uint64(buf))}
	case FloatType:
		return Value{t: t, f: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))}
	case DoubleType:
		return Value{t: t, f: math.Float64frombits(binary.LittleEndian.Uint64(buf))}
	case StringType:
		s := string(buf[:t.Size])
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return Value{t: t, s: s}
	default:
		return Value{}
	}
}
