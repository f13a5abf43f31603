// Package setops implements duplicate elimination.
package setops

import (
	"github.com/cockroachdb/errors"

	"queryproc/pkg/execution"
	"queryproc/pkg/execution/extsort"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// Distinct removes tuples that are equal on a key from its input stream.
//
// Implementation:
//   - Wraps an ExternalSort on the key, so it runs within the sort's page
//     budget regardless of the number of distinct values
//   - Streams over the sorted output: a tuple is emitted only when its key
//     differs from the key of the last emitted tuple
//   - Memory usage: one input page and one output page beyond the sort
//
// The output holds one representative per key, in ascending key order, with
// the input schema unchanged.
type Distinct struct {
	*iterator.UnaryOperator
	sorted   *extsort.ExternalSort
	cmp      tuple.Comparator
	capacity int
	input    *iterator.TupleCursor
	last     *tuple.Tuple
}

// NewDistinct creates a duplicate elimination of child on fields with a sort
// budget of numBuff pages. No fields means all fields.
func NewDistinct(child iterator.Operator, fields []primitives.ColumnID, numBuff int, env *execution.Env) (*Distinct, error) {
	if child == nil {
		return nil, errors.New("child operator cannot be nil")
	}

	sorted, err := extsort.New(child, tuple.Ascending(fields...), numBuff, env)
	if err != nil {
		return nil, err
	}

	d := &Distinct{
		sorted:   sorted,
		cmp:      sorted.Comparator(),
		capacity: env.PageCapacity(child.GetTupleDesc()),
	}
	unary, err := iterator.NewUnaryOperator(sorted, d.readNext)
	if err != nil {
		return nil, err
	}
	d.UnaryOperator = unary
	return d, nil
}

// Open sorts the input.
func (d *Distinct) Open() error {
	if err := d.UnaryOperator.Open(); err != nil {
		return err
	}
	d.input = iterator.NewTupleCursor(d.sorted)
	d.last = nil
	return nil
}

func (d *Distinct) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(d.capacity)
	for !out.IsFull() {
		t, err := d.input.Next()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		if d.last != nil && d.cmp.Compare(d.last, t) == 0 {
			continue
		}
		if err := out.Add(t); err != nil {
			return nil, err
		}
		d.last = t
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}
