package types

import (
	"cmp"
	"strings"
)

// CompareFields returns a three-way comparison of a and b: negative when a
// sorts before b, zero when they are equal and positive otherwise.
//
// Numeric fields compare by value across Int and Float. A nil field sorts
// before any value. Fields of incomparable types order by their Type so the
// result is still a total order.
func CompareFields(a, b Field) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case *IntField:
		switch bv := b.(type) {
		case *IntField:
			return cmp.Compare(av.Value, bv.Value)
		case *FloatField:
			return cmp.Compare(float64(av.Value), bv.Value)
		}
	case *FloatField:
		switch bv := b.(type) {
		case *FloatField:
			return cmp.Compare(av.Value, bv.Value)
		case *IntField:
			return cmp.Compare(av.Value, float64(bv.Value))
		}
	case *StringField:
		if bv, ok := b.(*StringField); ok {
			return strings.Compare(av.Value, bv.Value)
		}
	}
	return cmp.Compare(a.Type(), b.Type())
}
