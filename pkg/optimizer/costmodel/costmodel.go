// Package costmodel estimates the I/O cost and output cardinality of logical
// plans. Costs are counted in page reads and writes; cardinalities come from
// table statistics and the usual uniformity and independence assumptions.
package costmodel

import (
	"math"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/logging"
	"queryproc/pkg/optimizer/buffer"
	"queryproc/pkg/optimizer/statistics"
	"queryproc/pkg/plan"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// StatsSource supplies base-table statistics. *statistics.Catalog is the
// production implementation.
type StatsSource interface {
	Table(name string, numFields int) (*statistics.TableStats, error)
}

// Result is the estimate for one plan. An infeasible plan has Cost
// math.MaxInt64 and Feasible false.
type Result struct {
	Cost        int64
	Cardinality int64
	Feasible    bool
}

// Infeasible is the result of a plan that cannot run or cannot be estimated.
var Infeasible = Result{Cost: math.MaxInt64}

// Model costs plans under one buffer partition and page size.
type Model struct {
	stats    StatsSource
	buffers  *buffer.Manager
	pageSize int
}

func New(stats StatsSource, buffers *buffer.Manager, pageSize int) *Model {
	return &Model{stats: stats, buffers: buffers, pageSize: pageSize}
}

// estimate describes the output of a subtree.
type estimate struct {
	tuples   int64
	td       *tuple.TupleDescription
	distinct map[string]int64 // by qualified attribute name
}

// costing accumulates the cost of one plan walk.
type costing struct {
	m    *Model
	cost int64
}

// Cost estimates root. Statistics that are missing or malformed are returned
// as errors; every other reason a plan cannot be estimated makes it
// infeasible.
func (m *Model) Cost(root plan.Node) (Result, error) {
	c := &costing{m: m}
	est, err := c.visit(root)
	if err != nil {
		if dberror.HasCategory(err, dberror.ErrCategoryInfeasible) {
			logging.WithComponent("PlanCost").Debug("plan infeasible", "reason", err.Error())
			return Infeasible, nil
		}
		return Result{}, err
	}
	return Result{Cost: c.cost, Cardinality: est.tuples, Feasible: true}, nil
}

func (c *costing) visit(n plan.Node) (*estimate, error) {
	switch n := n.(type) {
	case *plan.ScanNode:
		return c.scan(n)
	case *plan.SelectNode:
		return c.selection(n)
	case *plan.ProjectNode:
		in, err := c.visit(n.Child)
		if err != nil {
			return nil, err
		}
		return &estimate{tuples: in.tuples, td: n.Schema(), distinct: in.distinct}, nil
	case *plan.JoinNode:
		return c.join(n)
	case *plan.DistinctNode:
		return c.sorted(n.Child, n.Schema())
	case *plan.GroupByNode:
		return c.sorted(n.Child, n.Schema())
	case *plan.SortNode:
		return c.sorted(n.Child, n.Schema())
	default:
		return nil, infeasible("unknown plan node %T", n)
	}
}

func (c *costing) scan(n *plan.ScanNode) (*estimate, error) {
	stats, err := c.m.stats.Table(n.Table, n.Desc.NumFields())
	if err != nil {
		return nil, err
	}
	est := &estimate{
		tuples:   stats.Tuples,
		td:       n.Desc,
		distinct: make(map[string]int64, n.Desc.NumFields()),
	}
	for i := range stats.Distinct {
		est.distinct[n.Desc.Field(i).Name] = stats.Distinct[i]
	}
	c.add(c.m.pages(est.tuples, est.td))
	return est, nil
}

func (c *costing) selection(n *plan.SelectNode) (*estimate, error) {
	in, err := c.visit(n.Child)
	if err != nil {
		return nil, err
	}
	d, ok := in.distinct[n.Attr]
	if !ok {
		return nil, infeasible("no distinct count for %s", n.Attr)
	}
	d = max(d, 1)

	tuples := float64(in.tuples)
	var out int64
	switch n.Op {
	case primitives.Equals:
		out = ceil(tuples / float64(d))
	case primitives.NotEqual:
		out = ceil(tuples - tuples/float64(d))
	default:
		out = ceil(0.5 * tuples)
	}

	distinct := make(map[string]int64, len(in.distinct))
	for attr, v := range in.distinct {
		if in.tuples > 0 {
			v = ceil(float64(v) * float64(out) / tuples)
		}
		distinct[attr] = min(max(v, 1), out)
	}
	return &estimate{tuples: out, td: in.td, distinct: distinct}, nil
}

func (c *costing) join(n *plan.JoinNode) (*estimate, error) {
	left, err := c.visit(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.visit(n.Right)
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]int64, len(left.distinct)+len(right.distinct))
	for attr, v := range left.distinct {
		distinct[attr] = v
	}
	for attr, v := range right.distinct {
		distinct[attr] = v
	}

	tuples := float64(left.tuples) * float64(right.tuples)
	for _, cond := range n.Conditions {
		dl, ok := left.distinct[cond.Left]
		if !ok {
			return nil, infeasible("no distinct count for %s", cond.Left)
		}
		dr, ok := right.distinct[cond.Right]
		if !ok {
			return nil, infeasible("no distinct count for %s", cond.Right)
		}
		if d := max(dl, dr); d > 0 {
			tuples /= float64(d)
		}
		distinct[cond.Left] = min(dl, dr)
		distinct[cond.Right] = min(dl, dr)
	}

	joinCost, err := c.m.joinCost(n.Method, left, right)
	if err != nil {
		return nil, err
	}
	c.add(joinCost)

	return &estimate{tuples: ceil(tuples), td: n.Schema(), distinct: distinct}, nil
}

// sorted costs the operators built on an external sort of their whole input.
// They use every buffer of the query and leave the cardinality unchanged.
func (c *costing) sorted(child plan.Node, td *tuple.TupleDescription) (*estimate, error) {
	in, err := c.visit(child)
	if err != nil {
		return nil, err
	}
	cost, err := sortCost(c.m.pages(in.tuples, in.td), c.m.buffers.Total())
	if err != nil {
		return nil, err
	}
	c.add(cost)
	return &estimate{tuples: in.tuples, td: td, distinct: in.distinct}, nil
}

func (m *Model) joinCost(method primitives.JoinMethod, left, right *estimate) (int64, error) {
	buffers := m.buffers.BuffersPerJoin()
	leftPages := m.pages(left.tuples, left.td)
	rightPages := m.pages(right.tuples, right.td)

	switch method {
	case primitives.NestedLoopJoin:
		perPage := int64(tuple.PageCapacity(m.pageSize, left.td))
		return satAdd(leftPages, satMul(satMul(leftPages, perPage), rightPages)), nil

	case primitives.BlockNestedJoin:
		if buffers < 3 {
			return 0, tooFewBuffers("block nested loop join", buffers)
		}
		blocks := ceilDiv(rightPages, int64(buffers))
		return satAdd(leftPages, satMul(blocks, rightPages)), nil

	case primitives.SortMergeJoin:
		leftSort, err := sortCost(leftPages, buffers)
		if err != nil {
			return 0, err
		}
		rightSort, err := sortCost(rightPages, buffers)
		if err != nil {
			return 0, err
		}
		return satAdd(satAdd(leftSort, rightSort), satAdd(leftPages, rightPages)), nil

	default:
		return 0, infeasible("unknown join method %d", method)
	}
}

// pages returns how many pages tuples records of td occupy.
func (m *Model) pages(tuples int64, td *tuple.TupleDescription) int64 {
	return ceilDiv(tuples, int64(tuple.PageCapacity(m.pageSize, td)))
}

// sortCost is the I/O of an external sort of pages pages with buffers
// buffers: run generation plus one read and write of everything per merge
// pass.
func sortCost(pages int64, buffers int) (int64, error) {
	if pages == 0 {
		return 0, nil
	}
	if buffers < 3 {
		return 0, tooFewBuffers("external sort", buffers)
	}
	passes := int64(0)
	for runs := ceilDiv(pages, int64(buffers)); runs > 1; runs = ceilDiv(runs, int64(buffers-1)) {
		passes++
	}
	return satMul(satMul(2, pages), 1+passes), nil
}

func (c *costing) add(cost int64) {
	c.cost = satAdd(c.cost, cost)
}

func infeasible(format string, args ...any) error {
	return dberror.Newf(dberror.ErrCategoryInfeasible, dberror.CodeNoEstimate, format, args...)
}

func tooFewBuffers(op string, buffers int) error {
	return dberror.NewWithCause(dberror.ErrCategoryInfeasible, dberror.CodeBufferTooSmall, dberror.ErrBufferTooSmall,
		"%s needs 3 buffers, has %d", op, buffers)
}

func ceil(v float64) int64 {
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Ceil(v))
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		b = 1
	}
	return (a + b - 1) / b
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}
