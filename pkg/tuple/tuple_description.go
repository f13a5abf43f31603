package tuple

import (
	"fmt"
	"strings"

	"queryproc/pkg/primitives"
	"queryproc/pkg/types"
)

// FieldDesc describes one field of a schema.
type FieldDesc struct {
	Name string
	Type types.Type
	// Width is the payload width in bytes of a string field. Zero selects
	// types.StringMaxSize. Ignored for numeric fields.
	Width uint32
	// PrimaryKey marks the field as the key of its base table.
	PrimaryKey bool
}

// TupleDescription describes the schema of a tuple.
// It is read-only once built: operators share descriptors freely.
type TupleDescription struct {
	// Types contains the data type of each field in order
	Types []types.Type
	// FieldNames contains the name of each field (optional, may be nil)
	FieldNames []string
	// Widths contains the declared payload width of each field (0 = default)
	Widths []uint32
	// Keys flags the primary key field(s)
	Keys []bool
}

// NewTupleDesc creates a new TupleDescription given field types and optional field names.
// If fieldNames is nil, fields will have no names.
//
// Parameters:
//   - fieldTypes: slice of field types (must contain at least one element)
//   - fieldNames: optional slice of field names (must match fieldTypes length if provided)
//
// Returns:
//   - *TupleDescription: newly created tuple descriptor
//   - error: if fieldTypes is empty or fieldNames length doesn't match fieldTypes length
func NewTupleDesc(fieldTypes []types.Type, fieldNames []string) (*TupleDescription, error) {
	if len(fieldTypes) < 1 {
		return nil, fmt.Errorf("must provide at least one field type")
	}
	if fieldNames != nil && len(fieldNames) != len(fieldTypes) {
		return nil, fmt.Errorf("field names length (%d) must match field types length (%d)",
			len(fieldNames), len(fieldTypes))
	}

	fields := make([]FieldDesc, len(fieldTypes))
	for i, t := range fieldTypes {
		fields[i].Type = t
		if fieldNames != nil {
			fields[i].Name = fieldNames[i]
		}
	}
	td, err := NewSchema(fields...)
	if err != nil {
		return nil, err
	}
	if fieldNames == nil {
		td.FieldNames = nil
	}
	return td, nil
}

// NewSchema builds a TupleDescription from full field descriptors.
func NewSchema(fields ...FieldDesc) (*TupleDescription, error) {
	if len(fields) < 1 {
		return nil, fmt.Errorf("must provide at least one field")
	}

	td := &TupleDescription{
		Types:      make([]types.Type, len(fields)),
		FieldNames: make([]string, len(fields)),
		Widths:     make([]uint32, len(fields)),
		Keys:       make([]bool, len(fields)),
	}
	for i, f := range fields {
		if f.Type.Size() == 0 {
			return nil, fmt.Errorf("field %d (%s): unsupported type %v", i, f.Name, f.Type)
		}
		td.Types[i] = f.Type
		td.FieldNames[i] = f.Name
		td.Widths[i] = f.Width
		td.Keys[i] = f.PrimaryKey
	}
	return td, nil
}

// MustSchema is like NewSchema but panics on error. Intended for tests and
// static schemas.
func MustSchema(fields ...FieldDesc) *TupleDescription {
	td, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return td
}

// NumFields returns the number of fields in this tuple descriptor.
func (td *TupleDescription) NumFields() int {
	return len(td.Types)
}

// Field returns the full descriptor of the ith field.
func (td *TupleDescription) Field(i int) FieldDesc {
	f := FieldDesc{Type: td.Types[i]}
	if td.FieldNames != nil {
		f.Name = td.FieldNames[i]
	}
	if td.Widths != nil {
		f.Width = td.Widths[i]
	}
	if td.Keys != nil {
		f.PrimaryKey = td.Keys[i]
	}
	return f
}

// GetFieldName returns the name of the ith field.
//
// Parameters:
//   - i: zero-based index of the field
//
// Returns:
//   - string: field name, or empty string if no names were provided
//   - error: if index is out of bounds
func (td *TupleDescription) GetFieldName(i int) (string, error) {
	if i < 0 || i >= len(td.Types) {
		return "", fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}

	if td.FieldNames == nil {
		return "", nil
	}

	return td.FieldNames[i], nil
}

// TypeAtIndex returns the type of the ith field.
func (td *TupleDescription) TypeAtIndex(i int) (types.Type, error) {
	if i < 0 || i >= len(td.Types) {
		return 0, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(td.Types))
	}
	return td.Types[i], nil
}

// PayloadWidth returns the declared string payload width of field i, with the
// default applied. Numeric fields report 0.
func (td *TupleDescription) PayloadWidth(i int) uint32 {
	if td.Types[i] != types.StringType {
		return 0
	}
	if td.Widths != nil && td.Widths[i] > 0 {
		return td.Widths[i]
	}
	return types.StringMaxSize
}

// FieldSize returns the serialized size in bytes of field i.
func (td *TupleDescription) FieldSize(i int) uint32 {
	if td.Types[i] == types.StringType {
		return 4 + td.PayloadWidth(i)
	}
	return td.Types[i].Size()
}

// GetSize returns the size in bytes of tuples corresponding to this TupleDescription.
// This is the sum of all serialized field sizes.
func (td *TupleDescription) GetSize() uint32 {
	var size uint32
	for i := range td.Types {
		size += td.FieldSize(i)
	}
	return size
}

// PrimaryKeyIndex returns the position of the first primary-key field, or -1
// when the schema has none.
func (td *TupleDescription) PrimaryKeyIndex() int {
	for i, k := range td.Keys {
		if k {
			return i
		}
	}
	return -1
}

// Equals checks if two TupleDescriptions are equal.
// Two descriptors are equal if they have the same field types and sizes in the same order.
// Field names are not compared.
func (td *TupleDescription) Equals(other *TupleDescription) bool {
	if other == nil {
		return false
	}

	if len(td.Types) != len(other.Types) {
		return false
	}

	for i, fieldType := range td.Types {
		if fieldType != other.Types[i] || td.FieldSize(i) != other.FieldSize(i) {
			return false
		}
	}
	return true
}

// String returns a string representation of this TupleDescription.
// Format: "Type1(fieldName1),Type2(fieldName2),..."
// If a field has no name, "null" is used as the name.
func (td *TupleDescription) String() string {
	parts := make([]string, 0, len(td.Types))

	for i, fieldType := range td.Types {
		fieldName := "null"
		if td.FieldNames != nil && i < len(td.FieldNames) {
			fieldName = td.FieldNames[i]
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", fieldType.String(), fieldName))
	}

	return strings.Join(parts, ",")
}

// FindFieldIndex locates a field by name in the tuple descriptor.
// Performs case-sensitive linear search through the schema definition.
// A bare column name ("a") also matches a qualified field name ("R.a") when
// it is unambiguous.
//
// Parameters:
//   - fieldName: name of the field to find
//
// Returns:
//   - int: zero-based index of the field
//   - error: if the field is not found or is ambiguous
func (td *TupleDescription) FindFieldIndex(fieldName string) (int, error) {
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		if name == fieldName {
			return i, nil
		}
	}

	if strings.Contains(fieldName, ".") {
		return -1, fmt.Errorf("column %s not found", fieldName)
	}

	found := -1
	for i := 0; i < td.NumFields(); i++ {
		name, _ := td.GetFieldName(i)
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 && name[dot+1:] == fieldName {
			if found >= 0 {
				return -1, fmt.Errorf("column %s is ambiguous", fieldName)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("column %s not found", fieldName)
	}
	return found, nil
}

// Project returns the descriptor of the given field positions, in order.
func (td *TupleDescription) Project(fields []primitives.ColumnID) (*TupleDescription, error) {
	out := make([]FieldDesc, len(fields))
	for i, f := range fields {
		if int(f) >= td.NumFields() {
			return nil, fmt.Errorf("field index %d out of bounds [0, %d)", f, td.NumFields())
		}
		out[i] = td.Field(int(f))
	}
	return NewSchema(out...)
}

// Combine merges two TupleDescriptions into one.
// The resulting descriptor contains all fields from td1 followed by all fields from td2.
// If either descriptor is nil, returns the other descriptor.
// If both are nil, returns nil.
func Combine(td1, td2 *TupleDescription) *TupleDescription {
	if td1 == nil && td2 == nil {
		return nil
	}
	if td1 == nil {
		return td2
	}
	if td2 == nil {
		return td1
	}

	fields := make([]FieldDesc, 0, td1.NumFields()+td2.NumFields())
	for i := 0; i < td1.NumFields(); i++ {
		fields = append(fields, td1.Field(i))
	}
	for i := 0; i < td2.NumFields(); i++ {
		fields = append(fields, td2.Field(i))
	}

	combined, _ := NewSchema(fields...)
	return combined
}
