package query

import (
	"fmt"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// Project keeps the listed fields of every input tuple, in the listed order.
type Project struct {
	*iterator.UnaryOperator
	fields   []primitives.ColumnID
	td       *tuple.TupleDescription
	capacity int
	input    *iterator.TupleCursor
}

// NewProject creates a projection of child onto fields.
func NewProject(child iterator.Operator, fields []primitives.ColumnID, env *execution.Env) (*Project, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("projection needs at least one field")
	}

	td, err := child.GetTupleDesc().Project(fields)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryLogical, dberror.CodeInvalidField, "NewProject", "Project")
	}

	p := &Project{
		fields:   append([]primitives.ColumnID(nil), fields...),
		td:       td,
		capacity: env.PageCapacity(td),
	}
	unary, err := iterator.NewUnaryOperator(child, p.readNext)
	if err != nil {
		return nil, err
	}
	p.UnaryOperator = unary
	return p, nil
}

func (p *Project) Open() error {
	if err := p.UnaryOperator.Open(); err != nil {
		return err
	}
	p.input = iterator.NewTupleCursor(p.GetChild())
	return nil
}

func (p *Project) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(p.capacity)
	for !out.IsFull() {
		t, err := p.input.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}

		projected, err := t.Project(p.fields, p.td)
		if err != nil {
			return nil, err
		}
		if err := out.Add(projected); err != nil {
			return nil, err
		}
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

func (p *Project) GetTupleDesc() *tuple.TupleDescription {
	return p.td
}
