package types

import (
	"bytes"
	"testing"

	"queryproc/pkg/primitives"
)

// ============================================================================
// Field behaviour
// ============================================================================

func TestIntField_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Field
		op       primitives.Predicate
		expected bool
	}{
		{"equal ints", NewIntField(5), NewIntField(5), primitives.Equals, true},
		{"less than", NewIntField(3), NewIntField(5), primitives.LessThan, true},
		{"greater than false", NewIntField(3), NewIntField(5), primitives.GreaterThan, false},
		{"not equal", NewIntField(3), NewIntField(5), primitives.NotEqual, true},
		{"int vs float", NewIntField(2), NewFloatField(2.5), primitives.LessThan, true},
		{"int vs string", NewIntField(2), NewStringField("2", 4), primitives.Equals, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Compare(tt.op, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Compare(%v %v %v) = %v, want %v", tt.a, tt.op, tt.b, got, tt.expected)
			}
		})
	}
}

func TestStringField_Truncates(t *testing.T) {
	f := NewStringField("abcdefgh", 4)
	if f.Value != "abcd" {
		t.Errorf("expected truncated value abcd, got %q", f.Value)
	}
	if f.Length() != 8 {
		t.Errorf("expected length 8, got %d", f.Length())
	}
}

func TestCompareFields(t *testing.T) {
	tests := []struct {
		name string
		a, b Field
		sign int
	}{
		{"ints ascending", NewIntField(1), NewIntField(2), -1},
		{"ints equal", NewIntField(7), NewIntField(7), 0},
		{"floats descending", NewFloatField(3.5), NewFloatField(1.25), 1},
		{"int and float equal", NewIntField(2), NewFloatField(2), 0},
		{"strings", NewStringField("apple", 8), NewStringField("banana", 8), -1},
		{"nil first", nil, NewIntField(0), -1},
		{"mixed types order by type", NewStringField("a", 4), NewIntField(9), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareFields(tt.a, tt.b)
			if sign(got) != tt.sign {
				t.Errorf("CompareFields = %d, want sign %d", got, tt.sign)
			}
		})
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// ============================================================================
// Serialization
// ============================================================================

func TestParseField_RoundTrip(t *testing.T) {
	fields := []struct {
		field Field
		width uint32
	}{
		{NewIntField(-42), 0},
		{NewFloatField(3.25), 0},
		{NewStringField("hello", 10), 10},
		{NewStringField("", 6), 6},
	}

	for _, tc := range fields {
		var buf bytes.Buffer
		if err := tc.field.Serialize(&buf); err != nil {
			t.Fatalf("serialize %v: %v", tc.field, err)
		}

		parsed, err := ParseField(&buf, tc.field.Type(), tc.width)
		if err != nil {
			t.Fatalf("parse %v: %v", tc.field, err)
		}
		if !parsed.Equals(tc.field) {
			t.Errorf("round trip mismatch: got %v, want %v", parsed, tc.field)
		}
		if buf.Len() != 0 {
			t.Errorf("expected reader to be drained, %d bytes left", buf.Len())
		}
	}
}

func TestParseField_ShortInput(t *testing.T) {
	_, err := ParseField(bytes.NewReader([]byte{0, 1}), IntType, 0)
	if err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestParseField_StringLongerThanColumn(t *testing.T) {
	var buf bytes.Buffer
	if err := NewStringField("abcdefgh", 8).Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseField(&buf, StringType, 4); err == nil {
		t.Fatal("expected error for a length prefix wider than the column")
	}
}

func TestHash_FollowsEquals(t *testing.T) {
	pairs := []struct{ a, b Field }{
		{NewIntField(7), NewIntField(7)},
		{NewFloatField(-1.5), NewFloatField(-1.5)},
		{NewStringField("x", 4), NewStringField("x", 16)},
	}
	for _, p := range pairs {
		ha, _ := p.a.Hash()
		hb, _ := p.b.Hash()
		if ha != hb {
			t.Errorf("Hash(%v) = %d, Hash(%v) = %d", p.a, ha, p.b, hb)
		}
	}

	h1, _ := NewIntField(1).Hash()
	h2, _ := NewIntField(2).Hash()
	if h1 == h2 {
		t.Error("distinct integers hashed alike")
	}
}

func TestParseConstant(t *testing.T) {
	f, err := ParseConstant(IntType, " 17 ", 0)
	if err != nil || !f.Equals(NewIntField(17)) {
		t.Errorf("ParseConstant int = %v, %v", f, err)
	}

	if _, err := ParseConstant(IntType, "x", 0); err == nil {
		t.Error("expected error for malformed integer")
	}

	f, err = ParseConstant(StringType, "abc", 2)
	if err != nil || f.String() != "ab" {
		t.Errorf("ParseConstant string = %v, %v", f, err)
	}
}
