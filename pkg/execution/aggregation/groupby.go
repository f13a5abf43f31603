// Package aggregation implements grouping by sorting.
package aggregation

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/extsort"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// GroupBy emits one projected tuple per distinct value of its group-by fields.
//
// The input is sorted on the group-by fields followed by the remaining
// fields, so groups arrive contiguously. The first tuple of each group is
// projected onto the output fields and emitted; the rest of the group is
// skipped.
type GroupBy struct {
	*iterator.UnaryOperator
	sorted   *extsort.ExternalSort
	groupBy  []primitives.ColumnID
	project  []primitives.ColumnID
	td       *tuple.TupleDescription
	capacity int
	input    *iterator.TupleCursor
	last     *tuple.Tuple
}

// NewGroupBy creates a grouping of child on groupBy that outputs the project
// fields, with a sort budget of numBuff pages.
//
// Every projected field must be a group-by field, unless the primary key of
// the input is among the group-by fields: then each group is a single tuple
// and any field may be projected.
func NewGroupBy(child iterator.Operator, groupBy, project []primitives.ColumnID, numBuff int, env *execution.Env) (*GroupBy, error) {
	if child == nil {
		return nil, errors.New("child operator cannot be nil")
	}
	in := child.GetTupleDesc()
	if len(groupBy) == 0 {
		return nil, dberror.New(dberror.ErrCategoryLogical, dberror.CodeInvalidGroupBy, "group by needs at least one field")
	}
	if err := validateGroupBy(in, groupBy, project); err != nil {
		return nil, err
	}

	td, err := in.Project(project)
	if err != nil {
		return nil, dberror.NewWithCause(dberror.ErrCategoryLogical, dberror.CodeInvalidField, err, "invalid group by projection")
	}

	sorted, err := extsort.New(child, tuple.Ascending(sortOrder(in.NumFields(), groupBy)...), numBuff, env)
	if err != nil {
		return nil, err
	}

	g := &GroupBy{
		sorted:   sorted,
		groupBy:  slices.Clone(groupBy),
		project:  slices.Clone(project),
		td:       td,
		capacity: env.PageCapacity(td),
	}
	unary, err := iterator.NewUnaryOperator(sorted, g.readNext)
	if err != nil {
		return nil, err
	}
	g.UnaryOperator = unary
	return g, nil
}

func validateGroupBy(td *tuple.TupleDescription, groupBy, project []primitives.ColumnID) error {
	for _, f := range append(append([]primitives.ColumnID(nil), groupBy...), project...) {
		if int(f) >= td.NumFields() {
			return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
				"group by field %d out of bounds (schema has %d fields)", f, td.NumFields())
		}
	}

	if pk := td.PrimaryKeyIndex(); pk >= 0 && slices.Contains(groupBy, primitives.ColumnID(pk)) { // #nosec G115
		return nil
	}
	for _, f := range project {
		if !slices.Contains(groupBy, f) {
			name, _ := td.GetFieldName(int(f))
			return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidGroupBy,
				"projected field %s is neither grouped nor determined by the primary key", name)
		}
	}
	return nil
}

// sortOrder lists the group-by fields first, then every other field.
func sortOrder(numFields int, groupBy []primitives.ColumnID) []primitives.ColumnID {
	order := slices.Clone(groupBy)
	for _, f := range tuple.AllFields(numFields) {
		if !slices.Contains(order, f) {
			order = append(order, f)
		}
	}
	return order
}

// Open sorts the input.
func (g *GroupBy) Open() error {
	if err := g.UnaryOperator.Open(); err != nil {
		return err
	}
	g.input = iterator.NewTupleCursor(g.sorted)
	g.last = nil
	return nil
}

func (g *GroupBy) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(g.capacity)
	for !out.IsFull() {
		t, err := g.input.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		if g.last != nil && tuple.CompareOn(g.last, g.groupBy, t, g.groupBy) == 0 {
			continue
		}

		projected, err := t.Project(g.project, g.td)
		if err != nil {
			return nil, fmt.Errorf("failed to project group: %w", err)
		}
		if err := out.Add(projected); err != nil {
			return nil, err
		}
		g.last = t
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

// GetTupleDesc returns the schema of the projected output.
func (g *GroupBy) GetTupleDesc() *tuple.TupleDescription {
	return g.td
}
