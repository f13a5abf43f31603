package types

import (
	"cmp"
	"io"
	"strconv"

	"queryproc/pkg/primitives"
)

// IntField represents a 64-bit signed integer field
type IntField struct {
	Value int64
}

func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	return writeUint(w, uint64(f.Value), 8) // #nosec G115
}

// Compare applies op between f and other. Integers compare against floats by
// widening to float64; any other type yields false.
func (f *IntField) Compare(op primitives.Predicate, other Field) (bool, error) {
	switch o := other.(type) {
	case *IntField:
		return holds(cmp.Compare(f.Value, o.Value), op), nil
	case *FloatField:
		return holds(cmp.Compare(float64(f.Value), o.Value), op), nil
	default:
		return false, nil
	}
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(f.Value, 10)
}

func (f *IntField) Equals(other Field) bool {
	o, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == o.Value
}

func (f *IntField) Hash() (primitives.HashCode, error) {
	return hashUint(uint64(f.Value)), nil // #nosec G115
}

func (f *IntField) Length() uint32 {
	return 8
}
