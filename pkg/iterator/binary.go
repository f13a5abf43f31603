package iterator

import (
	"errors"
	"fmt"

	"queryproc/pkg/tuple"
)

// BinaryOperator provides a base implementation for operators with two
// children, such as joins. The output schema is the concatenation of the left
// and right schemas.
type BinaryOperator struct {
	*BaseIterator
	leftChild   Operator
	rightChild  Operator
	leftClosed  bool
	rightClosed bool
	td          *tuple.TupleDescription
}

// NewBinaryOperator creates a new binary operator base with the given children and read function.
func NewBinaryOperator(leftChild, rightChild Operator, readNext ReadNextFunc) (*BinaryOperator, error) {
	if leftChild == nil {
		return nil, fmt.Errorf("left child operator cannot be nil")
	}
	if rightChild == nil {
		return nil, fmt.Errorf("right child operator cannot be nil")
	}

	return &BinaryOperator{
		BaseIterator: NewBaseIterator(readNext),
		leftChild:    leftChild,
		rightChild:   rightChild,
		td:           tuple.Combine(leftChild.GetTupleDesc(), rightChild.GetTupleDesc()),
	}, nil
}

// Open opens both child operators and marks this operator as ready.
func (b *BinaryOperator) Open() error {
	if err := b.OpenRight(); err != nil {
		return err
	}
	if err := b.OpenLeft(); err != nil {
		return err
	}
	b.MarkOpened()
	return nil
}

// OpenLeft opens only the left child.
func (b *BinaryOperator) OpenLeft() error {
	if err := b.leftChild.Open(); err != nil {
		return b.Fail(fmt.Errorf("failed to open left child: %w", err))
	}
	b.leftClosed = false
	return nil
}

// OpenRight opens only the right child.
func (b *BinaryOperator) OpenRight() error {
	if err := b.rightChild.Open(); err != nil {
		return b.Fail(fmt.Errorf("failed to open right child: %w", err))
	}
	b.rightClosed = false
	return nil
}

// CloseRight closes the right child early, once it has been fully consumed.
func (b *BinaryOperator) CloseRight() error {
	if b.rightClosed {
		return nil
	}
	b.rightClosed = true
	return b.rightChild.Close()
}

// Close closes both children, reporting every failure. It is idempotent.
func (b *BinaryOperator) Close() error {
	var errs []error
	if !b.leftClosed {
		b.leftClosed = true
		if err := b.leftChild.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close left child: %w", err))
		}
	}
	if err := b.CloseRight(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close right child: %w", err))
	}
	_ = b.BaseIterator.Close()
	return errors.Join(errs...)
}

// GetTupleDesc returns the combined schema (left fields ++ right fields).
func (b *BinaryOperator) GetTupleDesc() *tuple.TupleDescription {
	return b.td
}

// GetLeftChild returns the left child operator.
func (b *BinaryOperator) GetLeftChild() Operator {
	return b.leftChild
}

// GetRightChild returns the right child operator.
func (b *BinaryOperator) GetRightChild() Operator {
	return b.rightChild
}
