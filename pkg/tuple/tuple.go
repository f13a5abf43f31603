package tuple

import (
	"fmt"
	"strings"

	"queryproc/pkg/primitives"
	"queryproc/pkg/types"
)

// Tuple represents a row of data. Tuples are immutable once built and may be
// shared between pages and operators.
type Tuple struct {
	TupleDesc *TupleDescription // Schema of this tuple
	fields    []types.Field     // The actual field values
}

// NewTuple builds a tuple over td from the given field values, validating
// arity and types.
func NewTuple(td *TupleDescription, fields ...types.Field) (*Tuple, error) {
	if len(fields) != td.NumFields() {
		return nil, fmt.Errorf("tuple arity mismatch: expected %d fields, got %d", td.NumFields(), len(fields))
	}

	for i, f := range fields {
		if f == nil {
			continue
		}
		if f.Type() != td.Types[i] {
			return nil, fmt.Errorf("field %d type mismatch: expected %v, got %v", i, td.Types[i], f.Type())
		}
	}

	values := make([]types.Field, len(fields))
	copy(values, fields)
	return &Tuple{TupleDesc: td, fields: values}, nil
}

// GetField returns the value of the ith field
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Field returns the value at a position already validated against the schema.
func (t *Tuple) Field(i primitives.ColumnID) types.Field {
	return t.fields[i]
}

// NumFields returns the arity of the tuple.
func (t *Tuple) NumFields() int {
	return len(t.fields)
}

// String returns a string representation of this tuple
// Format: field1\tfield2\tfield3\t...\tfieldN
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t")
}

// Equals reports whether two tuples hold equal values position by position.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || len(t.fields) != len(other.fields) {
		return false
	}
	for i := range t.fields {
		if types.CompareFields(t.fields[i], other.fields[i]) != 0 {
			return false
		}
	}
	return true
}

// CombineTuples concatenates two tuples under td, which must be the combined
// schema of both inputs. This is the output record of every join.
func CombineTuples(t1, t2 *Tuple, td *TupleDescription) (*Tuple, error) {
	if t1 == nil || t2 == nil {
		return nil, fmt.Errorf("cannot combine nil tuples")
	}
	if td == nil {
		td = Combine(t1.TupleDesc, t2.TupleDesc)
	}
	if td.NumFields() != len(t1.fields)+len(t2.fields) {
		return nil, fmt.Errorf("combined schema has %d fields, inputs have %d",
			td.NumFields(), len(t1.fields)+len(t2.fields))
	}

	values := make([]types.Field, 0, td.NumFields())
	values = append(values, t1.fields...)
	values = append(values, t2.fields...)
	return &Tuple{TupleDesc: td, fields: values}, nil
}

// Project returns a new tuple holding the given positions under td, which
// must be the projected schema.
func (t *Tuple) Project(fields []primitives.ColumnID, td *TupleDescription) (*Tuple, error) {
	values := make([]types.Field, len(fields))
	for i, f := range fields {
		if int(f) >= len(t.fields) {
			return nil, fmt.Errorf("field index %d out of bounds [0, %d)", f, len(t.fields))
		}
		values[i] = t.fields[f]
	}
	return &Tuple{TupleDesc: td, fields: values}, nil
}
