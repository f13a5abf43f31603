package join

import (
	"fmt"
	"strings"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// Condition is a conjunction of equalities between fields of the left input
// and fields of the right input: LeftFields[i] = RightFields[i] for every i.
// An empty condition matches every pair.
type Condition struct {
	LeftFields  []primitives.ColumnID
	RightFields []primitives.ColumnID
}

// On builds the single equality left = right.
func On(left, right primitives.ColumnID) Condition {
	return Condition{
		LeftFields:  []primitives.ColumnID{left},
		RightFields: []primitives.ColumnID{right},
	}
}

// And returns c extended by the equality left = right.
func (c Condition) And(left, right primitives.ColumnID) Condition {
	return Condition{
		LeftFields:  append(append([]primitives.ColumnID(nil), c.LeftFields...), left),
		RightFields: append(append([]primitives.ColumnID(nil), c.RightFields...), right),
	}
}

// Len returns the number of equalities.
func (c Condition) Len() int {
	return len(c.LeftFields)
}

// Validate checks the field positions against both input schemas.
func (c Condition) Validate(left, right *tuple.TupleDescription) error {
	if len(c.LeftFields) != len(c.RightFields) {
		return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
			"join condition has %d left fields and %d right fields", len(c.LeftFields), len(c.RightFields))
	}
	for i := range c.LeftFields {
		if int(c.LeftFields[i]) >= left.NumFields() {
			return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
				"left join field %d out of bounds (schema has %d fields)", c.LeftFields[i], left.NumFields())
		}
		if int(c.RightFields[i]) >= right.NumFields() {
			return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
				"right join field %d out of bounds (schema has %d fields)", c.RightFields[i], right.NumFields())
		}
	}
	return nil
}

// Match reports whether l and r satisfy every equality.
func (c Condition) Match(l, r *tuple.Tuple) bool {
	return c.Compare(l, r) == 0
}

// Compare orders the join key of a left tuple against the join key of a
// right tuple.
func (c Condition) Compare(l, r *tuple.Tuple) int {
	return tuple.CompareOn(l, c.LeftFields, r, c.RightFields)
}

// compareLeft orders two left tuples by their join keys.
func (c Condition) compareLeft(a, b *tuple.Tuple) int {
	return tuple.CompareOn(a, c.LeftFields, b, c.LeftFields)
}

func (c Condition) String() string {
	if c.Len() == 0 {
		return "true"
	}
	parts := make([]string, c.Len())
	for i := range c.LeftFields {
		parts[i] = fmt.Sprintf("L$%d = R$%d", c.LeftFields[i], c.RightFields[i])
	}
	return strings.Join(parts, " AND ")
}
