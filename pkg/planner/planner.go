// Package planner turns a logical plan into a tree of physical operators.
// Joins receive an even share of the query's page budget; the operators
// built on a sort of their whole input (Distinct, GroupBy, Sort) run alone at
// the top of a plan and receive all of it.
package planner

import (
	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/aggregation"
	"queryproc/pkg/execution/extsort"
	"queryproc/pkg/execution/join"
	"queryproc/pkg/execution/query"
	"queryproc/pkg/execution/setops"
	"queryproc/pkg/iterator"
	"queryproc/pkg/optimizer/buffer"
	"queryproc/pkg/plan"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

// Builder creates operators for plans over a fixed set of tables.
type Builder struct {
	env     *execution.Env
	buffers *buffer.Manager
	tables  map[string]query.TableSource
}

func New(env *execution.Env, buffers *buffer.Manager, tables map[string]query.TableSource) *Builder {
	return &Builder{env: env, buffers: buffers, tables: tables}
}

// Build returns the root operator of root. The operators are not opened.
func (b *Builder) Build(root plan.Node) (iterator.Operator, error) {
	switch n := root.(type) {
	case *plan.ScanNode:
		src, ok := b.tables[n.Table]
		if !ok {
			return nil, dberror.Newf(dberror.ErrCategoryResource, dberror.CodeTableData, "no data source for table %s", n.Table)
		}
		return query.NewScan(src, b.env)

	case *plan.SelectNode:
		child, err := b.Build(n.Child)
		if err != nil {
			return nil, err
		}
		return b.buildSelect(child, n)

	case *plan.ProjectNode:
		child, err := b.Build(n.Child)
		if err != nil {
			return nil, err
		}
		fields, err := resolve(child.GetTupleDesc(), n, n.Attrs)
		if err != nil {
			return nil, err
		}
		return query.NewProject(child, fields, b.env)

	case *plan.JoinNode:
		return b.buildJoin(n)

	case *plan.DistinctNode:
		child, err := b.Build(n.Child)
		if err != nil {
			return nil, err
		}
		fields, err := resolve(child.GetTupleDesc(), n, n.Attrs)
		if err != nil {
			return nil, err
		}
		return setops.NewDistinct(child, fields, b.buffers.Total(), b.env)

	case *plan.GroupByNode:
		child, err := b.Build(n.Child)
		if err != nil {
			return nil, err
		}
		td := child.GetTupleDesc()
		groupBy, err := resolve(td, n, n.GroupBy)
		if err != nil {
			return nil, err
		}
		project, err := resolve(td, n, n.Project)
		if err != nil {
			return nil, err
		}
		return aggregation.NewGroupBy(child, groupBy, project, b.buffers.Total(), b.env)

	case *plan.SortNode:
		child, err := b.Build(n.Child)
		if err != nil {
			return nil, err
		}
		keys := make([]tuple.SortKey, len(n.Keys))
		for i, k := range n.Keys {
			f, err := resolve(child.GetTupleDesc(), n, []string{k.Attr})
			if err != nil {
				return nil, err
			}
			keys[i] = tuple.SortKey{Field: f[0], Descending: k.Descending}
		}
		return extsort.New(child, keys, b.buffers.Total(), b.env)

	default:
		return nil, dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeUnknownOperator, "unknown plan node %T", root)
	}
}

func (b *Builder) buildSelect(child iterator.Operator, n *plan.SelectNode) (iterator.Operator, error) {
	td := child.GetTupleDesc()
	fields, err := resolve(td, n, []string{n.Attr})
	if err != nil {
		return nil, err
	}
	field := fields[0]

	value, err := types.ParseConstant(td.Types[field], n.Value, td.PayloadWidth(int(field)))
	if err != nil {
		return nil, dberror.NewWithCause(dberror.ErrCategoryFormat, dberror.CodePlanFormat, err,
			"%s: bad constant %q for %s", n, n.Value, n.Attr)
	}
	return query.NewSelect(child, query.Condition{Field: field, Op: n.Op, Value: value}, b.env)
}

func (b *Builder) buildJoin(n *plan.JoinNode) (iterator.Operator, error) {
	left, err := b.Build(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.Build(n.Right)
	if err != nil {
		return nil, err
	}

	var cond join.Condition
	for _, c := range n.Conditions {
		l, err := resolve(left.GetTupleDesc(), n, []string{c.Left})
		if err != nil {
			return nil, err
		}
		r, err := resolve(right.GetTupleDesc(), n, []string{c.Right})
		if err != nil {
			return nil, err
		}
		cond = cond.And(l[0], r[0])
	}
	return join.New(n.Method, left, right, cond, b.buffers.BuffersPerJoin(), b.env)
}

// resolve maps qualified attribute names to positions in td.
func resolve(td *tuple.TupleDescription, n plan.Node, attrs []string) ([]primitives.ColumnID, error) {
	fields := make([]primitives.ColumnID, len(attrs))
	for i, a := range attrs {
		idx, err := td.FindFieldIndex(a)
		if err != nil {
			return nil, dberror.NewWithCause(dberror.ErrCategoryLogical, dberror.CodeInvalidField, err,
				"%s references %s", n, a)
		}
		fields[i] = primitives.ColumnID(idx) // #nosec G115
	}
	return fields, nil
}
