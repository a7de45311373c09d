package types

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		literal string
		typ     Type
		want    string
		wantErr bool
	}{
		{"true", Bool(), "true", false},
		{"false", Bool(), "false", false},
		{"yes", Bool(), "", true},
		{"x", Char(), "x", false},
		{"xy", Char(), "", true},
		{"42", Short(), "42", false},
		{"70000", Short(), "", true},
		{"42", Int(), "42", false},
		{"-7", Long(), "-7", false},
		{"2147483648", Int(), "", true},
		{"2147483648", Long(), "2147483648", false},
		{"3.5", Double(), "3.5", false},
		{"3.5", Float(), "3.5", false},
		{"abc", Double(), "", true},
		{"hello", String(8), "hello", false},
		{"toolongvalue", String(8), "", true},
	}

	for _, tt := range tests {
		v, err := Parse(tt.literal, tt.typ)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q, %v): expected error", tt.literal, tt.typ)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q, %v): %v", tt.literal, tt.typ, err)
			continue
		}
		if v.String() != tt.want {
			t.Errorf("Parse(%q, %v) = %q, want %q", tt.literal, tt.typ, v.String(), tt.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		literal string
		typ     Type
	}{
		{"true", Bool()},
		{"z", Char()},
		{"-123", Short()},
		{"100000", Int()},
		{"-9876543210", Long()},
		{"2.5", Float()},
		{"3.14159", Double()},
		{"record", String(16)},
	}

	for _, tt := range tests {
		v, err := Parse(tt.literal, tt.typ)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.literal, err)
		}
		buf := make([]byte, tt.typ.Size)
		v.Encode(buf)
		got := Decode(buf, tt.typ)
		if !Compare(EQ, got, v) {
			t.Errorf("round trip of %q as %v: got %q", tt.literal, tt.typ, got.String())
		}
	}
}

func TestFromAnyLargeInt(t *testing.T) {
	// Values above 2^53 are not representable as float64, so the ingest
	// path must keep int64 inputs whole.
	big := int64(1<<60 + 1)

	v, err := FromAny(big, Long())
	if err != nil {
		t.Fatalf("FromAny(%d): %v", big, err)
	}
	if v.Int() != big {
		t.Fatalf("FromAny(%d) = %d", big, v.Int())
	}

	buf := make([]byte, Long().Size)
	v.Encode(buf)
	if got := Decode(buf, Long()); got.Int() != big {
		t.Errorf("round trip of %d: got %d", big, got.Int())
	}

	if _, err := FromAny(big, Int()); err == nil {
		t.Error("expected range error converting large int64 to int")
	}
	if _, err := FromAny(big, String(8)); err == nil {
		t.Error("expected error converting int64 to string field")
	}
}

func TestCompare(t *testing.T) {
	five, _ := Parse("5", Int())
	ten, _ := Parse("10", Int())
	abc, _ := Parse("abc", String(8))
	abd, _ := Parse("abd", String(8))

	tests := []struct {
		op   Op
		a, b Value
		want bool
	}{
		{EQ, five, five, true},
		{EQ, five, ten, false},
		{NEQ, five, ten, true},
		{LT, five, ten, true},
		{LT, ten, five, false},
		{GT, ten, five, true},
		{LE, five, five, true},
		{GE, five, ten, false},
		{LT, abc, abd, true},
		{EQ, abc, abc, true},
	}

	for _, tt := range tests {
		if got := Compare(tt.op, tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v, %v) = %v, want %v", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOpNegate(t *testing.T) {
	pairs := map[Op]Op{EQ: NEQ, NEQ: EQ, LT: GE, GE: LT, GT: LE, LE: GT}
	for op, want := range pairs {
		if got := op.Negate(); got != want {
			t.Errorf("%v.Negate() = %v, want %v", op, got, want)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"int", Int(), false},
		{"DOUBLE", Double(), false},
		{"string(64)", String(64), false},
		{"string", Type{}, true},
		{"string(0)", Type{}, true},
		{"blob", Type{}, true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseType(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseType(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
