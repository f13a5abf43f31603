package tuple

import (
	"fmt"

	"queryproc/pkg/types"
)

// Builder provides a fluent interface for constructing tuples
type Builder struct {
	td     *TupleDescription
	fields []types.Field
	err    error
}

// NewBuilder creates a new tuple builder with the given schema
func NewBuilder(td *TupleDescription) *Builder {
	return &Builder{
		td:     td,
		fields: make([]types.Field, 0, td.NumFields()),
	}
}

// AddInt adds an integer field at the current index
func (b *Builder) AddInt(value int64) *Builder {
	return b.AddField(types.NewIntField(value))
}

// AddString adds a string field at the current index, sized to the column width
func (b *Builder) AddString(value string) *Builder {
	if b.err != nil {
		return b
	}
	i := len(b.fields)
	if i >= b.td.NumFields() {
		return b.AddField(types.NewStringField(value, types.StringMaxSize))
	}
	return b.AddField(types.NewStringField(value, int(b.td.PayloadWidth(i))))
}

// AddFloat adds a float field at the current index
func (b *Builder) AddFloat(value float64) *Builder {
	return b.AddField(types.NewFloatField(value))
}

// AddField adds an arbitrary field at the current index
func (b *Builder) AddField(field types.Field) *Builder {
	if b.err != nil {
		return b
	}
	i := len(b.fields)
	if i >= b.td.NumFields() {
		b.err = fmt.Errorf("field %d: beyond schema arity %d", i, b.td.NumFields())
		return b
	}
	if field != nil && field.Type() != b.td.Types[i] {
		b.err = fmt.Errorf("field %d: type mismatch: expected %v, got %v", i, b.td.Types[i], field.Type())
		return b
	}
	b.fields = append(b.fields, field)
	return b
}

// Build validates and returns the constructed tuple
func (b *Builder) Build() (*Tuple, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewTuple(b.td, b.fields...)
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Tuple {
	t, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build tuple: %v", err))
	}
	return t
}
