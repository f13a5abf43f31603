// Package join implements the physical join operators: block nested loop,
// page nested loop and sort-merge. All of them emit left fields followed by
// right fields and run within a fixed page budget.
package join

import (
	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
)

// New creates the join operator implementing method with a budget of numBuff
// pages.
func New(method primitives.JoinMethod, left, right iterator.Operator, cond Condition, numBuff int, env *execution.Env) (iterator.Operator, error) {
	switch method {
	case primitives.SortMergeJoin:
		return NewSortMergeJoin(left, right, cond, numBuff, env)
	case primitives.BlockNestedJoin:
		return NewBlockNestedLoopJoin(left, right, cond, numBuff, env)
	case primitives.NestedLoopJoin:
		return NewNestedLoopJoin(left, right, cond, env)
	default:
		return nil, dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeUnknownOperator,
			"unknown join method %d", int(method))
	}
}
