package types

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeID enumerates the primitive field types a schema can declare.
type TypeID int

const (
	BoolType TypeID = iota
	CharType
	ShortType
	IntType
	LongType
	FloatType
	DoubleType
	StringType
)

func (id TypeID) String() string {
	switch id {
	case BoolType:
		return "bool"
	case CharType:
		return "char"
	case ShortType:
		return "short"
	case IntType:
		return "int"
	case LongType:
		return "long"
	case FloatType:
		return "float"
	case DoubleType:
		return "double"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// Type describes a field type together with its fixed on-disk width in
// bytes. Strings are fixed-capacity and NUL-padded, so their width is part
// of the type rather than of the data.
type Type struct {
	ID   TypeID
	Size int
}

func Bool() Type   { return Type{BoolType, 1} }
func Char() Type   { return Type{CharType, 1} }
func Short() Type  { return Type{ShortType, 2} }
func Int() Type    { return Type{IntType, 4} }
func Long() Type   { return Type{LongType, 8} }
func Float() Type  { return Type{FloatType, 4} }
func Double() Type { return Type{DoubleType, 8} }

// String returns a string type with the given fixed capacity.
func String(size int) Type { return Type{StringType, size} }

func (t Type) String() string {
	if t.ID == StringType {
		return fmt.Sprintf("string(%d)", t.Size)
	}
	return t.ID.String()
}

// ParseType parses a textual type name such as "int", "double" or
// "string(64)" into a Type. Used when schemas arrive over the API.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "string(") && strings.HasSuffix(name, ")") {
		n, err := strconv.Atoi(name[len("string(") : len(name)-1])
		if err != nil || n <= 0 {
			return Type{}, fmt.Errorf("invalid string capacity in %q", s)
		}
		return String(n), nil
	}
	switch name {
	case "bool":
		return Bool(), nil
	case "char":
		return Char(), nil
	case "short":
		return Short(), nil
	case "int":
		return Int(), nil
	case "long":
		return Long(), nil
	case "float":
		return Float(), nil
	case "double":
		return Double(), nil
	case "string":
		return Type{}, fmt.Errorf("string type requires a capacity, e.g. string(64)")
	default:
		return Type{}, fmt.Errorf("unknown type %q", s)
	}
}
