package query

import (
	"fmt"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

// Condition compares one field against a constant.
type Condition struct {
	Field primitives.ColumnID
	Op    primitives.Predicate
	Value types.Field
}

func (c Condition) String() string {
	return fmt.Sprintf("$%d %s %v", c.Field, c.Op, c.Value)
}

// Select passes through the tuples satisfying its condition, repacking them
// into full pages.
type Select struct {
	*iterator.UnaryOperator
	cond     Condition
	capacity int
	input    *iterator.TupleCursor
}

// NewSelect creates a selection of child on cond.
func NewSelect(child iterator.Operator, cond Condition, env *execution.Env) (*Select, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	td := child.GetTupleDesc()
	if int(cond.Field) >= td.NumFields() {
		return nil, dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
			"select field %d out of bounds (schema has %d fields)", cond.Field, td.NumFields())
	}
	if cond.Value == nil {
		return nil, fmt.Errorf("select condition needs a constant")
	}

	s := &Select{cond: cond, capacity: env.PageCapacity(td)}
	unary, err := iterator.NewUnaryOperator(child, s.readNext)
	if err != nil {
		return nil, err
	}
	s.UnaryOperator = unary
	return s, nil
}

func (s *Select) Open() error {
	if err := s.UnaryOperator.Open(); err != nil {
		return err
	}
	s.input = iterator.NewTupleCursor(s.GetChild())
	return nil
}

func (s *Select) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(s.capacity)
	for !out.IsFull() {
		t, err := s.input.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}

		ok, err := t.Field(s.cond.Field).Compare(s.cond.Op, s.cond.Value)
		if err != nil {
			return nil, fmt.Errorf("predicate evaluation failed: %w", err)
		}
		if ok {
			if err := out.Add(t); err != nil {
				return nil, err
			}
		}
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}
