package iterator

import (
	"fmt"

	"queryproc/pkg/tuple"
)

// UnaryOperator provides a base implementation for operators with a single
// child: it opens and closes the child and delegates Next to its BaseIterator.
// Operators embedding it only implement their read function, and override
// Open or Close when they hold extra resources.
type UnaryOperator struct {
	*BaseIterator
	child       Operator
	childClosed bool
}

// NewUnaryOperator creates a new unary operator base with the given child and read function.
func NewUnaryOperator(child Operator, readNext ReadNextFunc) (*UnaryOperator, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	return &UnaryOperator{
		BaseIterator: NewBaseIterator(readNext),
		child:        child,
	}, nil
}

// Open opens the child operator and marks this operator as ready.
func (u *UnaryOperator) Open() error {
	if err := u.child.Open(); err != nil {
		return u.Fail(fmt.Errorf("failed to open child operator: %w", err))
	}
	u.childClosed = false
	u.MarkOpened()
	return nil
}

// CloseChild closes the child early, e.g. once a blocking operator has
// consumed it. Close does not close it again.
func (u *UnaryOperator) CloseChild() error {
	if u.childClosed {
		return nil
	}
	u.childClosed = true
	return u.child.Close()
}

// Close closes the child operator and releases resources. It is idempotent.
func (u *UnaryOperator) Close() error {
	err := u.CloseChild()
	_ = u.BaseIterator.Close()
	return err
}

// FetchPage reads the next page from the child; nil at end of stream.
func (u *UnaryOperator) FetchPage() (*tuple.Page, error) {
	page, err := u.child.Next()
	if err != nil {
		return nil, fmt.Errorf("error getting next page from child: %w", err)
	}
	return page, nil
}

// GetTupleDesc returns the child's tuple description.
// Operators that transform the schema should override this method.
func (u *UnaryOperator) GetTupleDesc() *tuple.TupleDescription {
	return u.child.GetTupleDesc()
}

// GetChild returns the child operator (useful for inspection/testing).
func (u *UnaryOperator) GetChild() Operator {
	return u.child
}
