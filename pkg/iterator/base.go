package iterator

import (
	dberror "queryproc/pkg/error"
	"queryproc/pkg/tuple"
)

// ReadNextFunc produces the next output page of an operator, or nil at end
// of stream. It may return empty pages; BaseIterator skips them.
type ReadNextFunc func() (*tuple.Page, error)

// BaseIterator implements the state handling shared by all operators: it
// rejects Next before Open, never emits empty pages, latches end of stream
// and fails closed by remembering the first error.
type BaseIterator struct {
	readNext ReadNextFunc
	opened   bool
	closed   bool
	done     bool
	err      error
}

// NewBaseIterator creates a base around the operator's read function.
func NewBaseIterator(readNext ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNext: readNext}
}

// MarkOpened allows Next to be called.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
	it.closed = false
}

// IsOpen reports whether the operator is between Open and Close.
func (it *BaseIterator) IsOpen() bool {
	return it.opened && !it.closed
}

// Fail latches err: every later Next returns it. Fail returns err for
// convenient use in return statements.
func (it *BaseIterator) Fail(err error) error {
	if err != nil && it.err == nil {
		it.err = err
	}
	return err
}

// Err returns the latched error, if any.
func (it *BaseIterator) Err() error {
	return it.err
}

// Next returns the next non-empty page from readNext, or nil once the stream
// is exhausted.
func (it *BaseIterator) Next() (*tuple.Page, error) {
	if it.err != nil {
		return nil, it.err
	}
	if !it.IsOpen() {
		return nil, dberror.NewWithCause(dberror.ErrCategoryLogical, dberror.CodeOperatorState,
			dberror.ErrNotOpen, "Next called on an operator that is not open")
	}

	for !it.done {
		page, err := it.readNext()
		if err != nil {
			return nil, it.Fail(err)
		}
		if page == nil {
			it.done = true
			break
		}
		if !page.IsEmpty() {
			return page, nil
		}
	}
	return nil, nil
}

// Close marks the iterator closed. It is idempotent.
func (it *BaseIterator) Close() error {
	it.closed = true
	return nil
}
