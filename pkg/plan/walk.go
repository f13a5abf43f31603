package plan

import (
	"fmt"
	"strings"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/tuple"
)

// Walk calls fn for every node of the tree in pre-order, stopping early when
// fn returns false.
func Walk(root Node, fn func(Node) bool) bool {
	if root == nil {
		return true
	}
	if !fn(root) {
		return false
	}
	for _, c := range root.GetChildren() {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// Joins returns the join nodes of the tree in pre-order.
func Joins(root Node) []*JoinNode {
	var joins []*JoinNode
	Walk(root, func(n Node) bool {
		if j, ok := n.(*JoinNode); ok {
			joins = append(joins, j)
		}
		return true
	})
	return joins
}

// CountJoins returns the number of join nodes in the tree.
func CountJoins(root Node) int {
	return len(Joins(root))
}

// NumberJoins assigns indices 0..n-1 to the joins in pre-order and returns n.
func NumberJoins(root Node) int {
	joins := Joins(root)
	for i, j := range joins {
		j.Index = i
	}
	return len(joins)
}

// FindJoin returns the join with the given index, or nil.
func FindJoin(root Node, index int) *JoinNode {
	var found *JoinNode
	Walk(root, func(n Node) bool {
		if j, ok := n.(*JoinNode); ok && j.Index == index {
			found = j
			return false
		}
		return true
	})
	return found
}

// Tables returns the names of the base tables under root, left to right.
func Tables(root Node) []string {
	var names []string
	Walk(root, func(n Node) bool {
		if s, ok := n.(*ScanNode); ok {
			names = append(names, s.Table)
		}
		return true
	})
	return names
}

// HasAttr reports whether attr resolves in the output schema of n.
func HasAttr(n Node, attr string) bool {
	td := n.Schema()
	if td == nil {
		return false
	}
	_, err := td.FindFieldIndex(attr)
	return err == nil
}

// Validate checks that every attribute referenced by the tree resolves in
// the schema it is evaluated against, and that join conditions reference the
// left input on their left side.
func Validate(root Node) error {
	var err error
	Walk(root, func(n Node) bool {
		err = validateNode(n)
		return err == nil
	})
	return err
}

func validateNode(n Node) error {
	switch n := n.(type) {
	case *ScanNode:
		if n.Desc == nil {
			return planError("scan of %s has no schema", n.Table)
		}
		return nil
	case *SelectNode:
		return resolveAll(n.Child.Schema(), n, n.Attr)
	case *ProjectNode:
		if len(n.Attrs) == 0 {
			return planError("%s projects no attributes", n)
		}
		return resolveAll(n.Child.Schema(), n, n.Attrs...)
	case *JoinNode:
		for _, c := range n.Conditions {
			if err := resolveAll(n.Left.Schema(), n, c.Left); err != nil {
				return err
			}
			if err := resolveAll(n.Right.Schema(), n, c.Right); err != nil {
				return err
			}
		}
		return nil
	case *DistinctNode:
		return resolveAll(n.Child.Schema(), n, n.Attrs...)
	case *GroupByNode:
		if len(n.GroupBy) == 0 || len(n.Project) == 0 {
			return planError("%s needs group-by and output attributes", n)
		}
		if err := resolveAll(n.Child.Schema(), n, n.GroupBy...); err != nil {
			return err
		}
		return resolveAll(n.Child.Schema(), n, n.Project...)
	case *SortNode:
		for _, k := range n.Keys {
			if err := resolveAll(n.Child.Schema(), n, k.Attr); err != nil {
				return err
			}
		}
		return nil
	default:
		return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeUnknownOperator, "unknown plan node %T", n)
	}
}

func resolveAll(td *tuple.TupleDescription, n Node, attrs ...string) error {
	if td == nil {
		return planError("input of %s has no schema", n)
	}
	for _, a := range attrs {
		if _, err := td.FindFieldIndex(a); err != nil {
			return dberror.NewWithCause(dberror.ErrCategoryLogical, dberror.CodeInvalidField, err,
				"%s references %s", n, a)
		}
	}
	return nil
}

func planError(format string, args ...any) error {
	return dberror.Newf(dberror.ErrCategoryLogical, dberror.CodePlanFormat, format, args...)
}

// Format renders the tree one node per line, children indented below their
// parent.
func Format(root Node) string {
	var b strings.Builder
	var visit func(n Node, depth int)
	visit = func(n Node, depth int) {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), n)
		for _, c := range n.GetChildren() {
			visit(c, depth+1)
		}
	}
	if root != nil {
		visit(root, 0)
	}
	return b.String()
}
