package types

import (
	"cmp"
	"io"
	"math"
	"strconv"

	"queryproc/pkg/primitives"
)

type FloatField struct {
	Value float64
}

func NewFloatField(value float64) *FloatField {
	return &FloatField{Value: value}
}

func (f *FloatField) Serialize(w io.Writer) error {
	return writeUint(w, math.Float64bits(f.Value), 8)
}

func (f *FloatField) Compare(op primitives.Predicate, other Field) (bool, error) {
	switch o := other.(type) {
	case *FloatField:
		return holds(cmp.Compare(f.Value, o.Value), op), nil
	case *IntField:
		return holds(cmp.Compare(f.Value, float64(o.Value)), op), nil
	default:
		return false, nil
	}
}

func (f *FloatField) Type() Type {
	return FloatType
}

// String returns string representation of the float64
func (f *FloatField) String() string {
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f *FloatField) Equals(other Field) bool {
	o, ok := other.(*FloatField)
	if !ok {
		return false
	}
	return f.Value == o.Value
}

func (f *FloatField) Hash() (primitives.HashCode, error) {
	return hashUint(math.Float64bits(f.Value)), nil
}

func (f *FloatField) Length() uint32 {
	return 8
}
