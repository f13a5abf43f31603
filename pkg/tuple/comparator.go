package tuple

import (
	"queryproc/pkg/primitives"
	"queryproc/pkg/types"
)

// SortKey is one component of an ordering: a field position and a direction.
type SortKey struct {
	Field      primitives.ColumnID
	Descending bool
}

// Ascending builds ascending sort keys over the given positions.
func Ascending(fields ...primitives.ColumnID) []SortKey {
	keys := make([]SortKey, len(fields))
	for i, f := range fields {
		keys[i] = SortKey{Field: f}
	}
	return keys
}

// AllFields returns the positions 0..n-1.
func AllFields(n int) []primitives.ColumnID {
	fields := make([]primitives.ColumnID, n)
	for i := range fields {
		fields[i] = primitives.ColumnID(i) // #nosec G115
	}
	return fields
}

// Comparator orders tuples of one schema field by field over its keys.
type Comparator struct {
	keys []SortKey
}

func NewComparator(keys []SortKey) Comparator {
	k := make([]SortKey, len(keys))
	copy(k, keys)
	return Comparator{keys: k}
}

// Compare returns a negative value when a sorts before b, zero when they are
// equal on every key and a positive value otherwise.
func (c Comparator) Compare(a, b *Tuple) int {
	for _, k := range c.keys {
		r := types.CompareFields(a.fields[k.Field], b.fields[k.Field])
		if r == 0 {
			continue
		}
		if k.Descending {
			return -r
		}
		return r
	}
	return 0
}

// Keys returns a copy of the sort keys.
func (c Comparator) Keys() []SortKey {
	k := make([]SortKey, len(c.keys))
	copy(k, c.keys)
	return k
}

// CompareOn compares a on aFields against b on bFields, pairwise and
// ascending. The tuples may have different schemas; both field lists must have
// the same length. Joins use it to compare keys across their two inputs.
func CompareOn(a *Tuple, aFields []primitives.ColumnID, b *Tuple, bFields []primitives.ColumnID) int {
	for i := range aFields {
		if r := types.CompareFields(a.fields[aFields[i]], b.fields[bFields[i]]); r != 0 {
			return r
		}
	}
	return 0
}
