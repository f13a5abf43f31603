// Package plan defines the operator trees the optimizer rewrites and the
// cost model scores. Nodes reference fields by qualified name ("R.a") so that
// a tree stays valid when joins are reordered; the planner resolves names to
// positions only when it builds physical operators.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
)

// Kind identifies the variant of a plan node.
type Kind int

const (
	KindScan Kind = iota
	KindSelect
	KindProject
	KindJoin
	KindDistinct
	KindGroupBy
	KindSort
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "Scan"
	case KindSelect:
		return "Select"
	case KindProject:
		return "Project"
	case KindJoin:
		return "Join"
	case KindDistinct:
		return "Distinct"
	case KindGroupBy:
		return "GroupBy"
	case KindSort:
		return "Sort"
	default:
		return "Unknown"
	}
}

// Node is one operator of a plan tree. A node exclusively owns its children.
type Node interface {
	Kind() Kind

	// GetChildren returns the inputs of the node, left to right.
	GetChildren() []Node

	// Schema returns the output schema. It is recomputed from the children,
	// so it always reflects the current shape of the tree.
	Schema() *tuple.TupleDescription

	// Clone deep-copies the subtree rooted at the node.
	Clone() Node

	String() string
}

// ScanNode reads a base table.
type ScanNode struct {
	Table string
	Desc  *tuple.TupleDescription
}

func NewScan(table string, desc *tuple.TupleDescription) *ScanNode {
	return &ScanNode{Table: table, Desc: desc}
}

func (s *ScanNode) Kind() Kind                      { return KindScan }
func (s *ScanNode) GetChildren() []Node             { return nil }
func (s *ScanNode) Schema() *tuple.TupleDescription { return s.Desc }

// Clone copies the node. The schema is read-only and shared.
func (s *ScanNode) Clone() Node {
	c := *s
	return &c
}

func (s *ScanNode) String() string {
	return fmt.Sprintf("Scan(%s)", s.Table)
}

// SelectNode filters its input on Attr Op Value, where Value is the literal
// text of a constant of the attribute's type.
type SelectNode struct {
	Child Node
	Attr  string
	Op    primitives.Predicate
	Value string
}

func NewSelect(child Node, attr string, op primitives.Predicate, value string) *SelectNode {
	return &SelectNode{Child: child, Attr: attr, Op: op, Value: value}
}

func (s *SelectNode) Kind() Kind                      { return KindSelect }
func (s *SelectNode) GetChildren() []Node             { return []Node{s.Child} }
func (s *SelectNode) Schema() *tuple.TupleDescription { return s.Child.Schema() }

func (s *SelectNode) Clone() Node {
	c := *s
	c.Child = s.Child.Clone()
	return &c
}

func (s *SelectNode) String() string {
	return fmt.Sprintf("Select(%s %s %s)", s.Attr, s.Op, s.Value)
}

// ProjectNode keeps the named attributes, in order.
type ProjectNode struct {
	Child Node
	Attrs []string
}

func NewProject(child Node, attrs ...string) *ProjectNode {
	return &ProjectNode{Child: child, Attrs: attrs}
}

func (p *ProjectNode) Kind() Kind          { return KindProject }
func (p *ProjectNode) GetChildren() []Node { return []Node{p.Child} }

func (p *ProjectNode) Schema() *tuple.TupleDescription {
	return subSchema(p.Child.Schema(), p.Attrs)
}

func (p *ProjectNode) Clone() Node {
	c := *p
	c.Child = p.Child.Clone()
	c.Attrs = slices.Clone(p.Attrs)
	return &c
}

func (p *ProjectNode) String() string {
	return fmt.Sprintf("Project(%s)", strings.Join(p.Attrs, ", "))
}

// Condition is the equality Left = Right between an attribute of the left
// input and an attribute of the right input of a join.
type Condition struct {
	Left  string
	Right string
}

// Flip swaps the sides of the condition.
func (c Condition) Flip() Condition {
	return Condition{Left: c.Right, Right: c.Left}
}

func (c Condition) String() string {
	return c.Left + " = " + c.Right
}

// JoinNode joins its inputs on the conjunction of its conditions with the
// physical algorithm Method. Index numbers the joins of a tree; rewrite
// rules address joins by index and keep indices unique.
type JoinNode struct {
	Left       Node
	Right      Node
	Conditions []Condition
	Method     primitives.JoinMethod
	Index      int
}

func NewJoin(left, right Node, method primitives.JoinMethod, conds ...Condition) *JoinNode {
	return &JoinNode{Left: left, Right: right, Conditions: conds, Method: method}
}

func (j *JoinNode) Kind() Kind          { return KindJoin }
func (j *JoinNode) GetChildren() []Node { return []Node{j.Left, j.Right} }

func (j *JoinNode) Schema() *tuple.TupleDescription {
	return tuple.Combine(j.Left.Schema(), j.Right.Schema())
}

func (j *JoinNode) Clone() Node {
	c := *j
	c.Left = j.Left.Clone()
	c.Right = j.Right.Clone()
	c.Conditions = slices.Clone(j.Conditions)
	return &c
}

// FlipConditions swaps the sides of every condition.
func (j *JoinNode) FlipConditions() {
	for i, c := range j.Conditions {
		j.Conditions[i] = c.Flip()
	}
}

func (j *JoinNode) String() string {
	conds := make([]string, len(j.Conditions))
	for i, c := range j.Conditions {
		conds[i] = c.String()
	}
	return fmt.Sprintf("Join#%d[%s](%s)", j.Index, j.Method, strings.Join(conds, " AND "))
}

// DistinctNode eliminates duplicates on Attrs, or on all attributes when
// Attrs is empty.
type DistinctNode struct {
	Child Node
	Attrs []string
}

func NewDistinct(child Node, attrs ...string) *DistinctNode {
	return &DistinctNode{Child: child, Attrs: attrs}
}

func (d *DistinctNode) Kind() Kind                      { return KindDistinct }
func (d *DistinctNode) GetChildren() []Node             { return []Node{d.Child} }
func (d *DistinctNode) Schema() *tuple.TupleDescription { return d.Child.Schema() }

func (d *DistinctNode) Clone() Node {
	c := *d
	c.Child = d.Child.Clone()
	c.Attrs = slices.Clone(d.Attrs)
	return &c
}

func (d *DistinctNode) String() string {
	if len(d.Attrs) == 0 {
		return "Distinct(*)"
	}
	return fmt.Sprintf("Distinct(%s)", strings.Join(d.Attrs, ", "))
}

// GroupByNode groups on GroupBy and outputs the Project attributes.
type GroupByNode struct {
	Child   Node
	GroupBy []string
	Project []string
}

func NewGroupBy(child Node, groupBy, project []string) *GroupByNode {
	return &GroupByNode{Child: child, GroupBy: groupBy, Project: project}
}

func (g *GroupByNode) Kind() Kind          { return KindGroupBy }
func (g *GroupByNode) GetChildren() []Node { return []Node{g.Child} }

func (g *GroupByNode) Schema() *tuple.TupleDescription {
	return subSchema(g.Child.Schema(), g.Project)
}

func (g *GroupByNode) Clone() Node {
	c := *g
	c.Child = g.Child.Clone()
	c.GroupBy = slices.Clone(g.GroupBy)
	c.Project = slices.Clone(g.Project)
	return &c
}

func (g *GroupByNode) String() string {
	return fmt.Sprintf("GroupBy(%s; %s)", strings.Join(g.GroupBy, ", "), strings.Join(g.Project, ", "))
}

// SortKey orders on one attribute.
type SortKey struct {
	Attr       string
	Descending bool
}

// SortNode orders its input (ORDER BY).
type SortNode struct {
	Child Node
	Keys  []SortKey
}

func NewSort(child Node, keys ...SortKey) *SortNode {
	return &SortNode{Child: child, Keys: keys}
}

func (s *SortNode) Kind() Kind                      { return KindSort }
func (s *SortNode) GetChildren() []Node             { return []Node{s.Child} }
func (s *SortNode) Schema() *tuple.TupleDescription { return s.Child.Schema() }

func (s *SortNode) Clone() Node {
	c := *s
	c.Child = s.Child.Clone()
	c.Keys = slices.Clone(s.Keys)
	return &c
}

func (s *SortNode) String() string {
	keys := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		keys[i] = k.Attr
		if k.Descending {
			keys[i] += " DESC"
		}
	}
	return fmt.Sprintf("Sort(%s)", strings.Join(keys, ", "))
}

// subSchema projects td onto the named attributes, skipping names that do
// not resolve. Validate reports those.
func subSchema(td *tuple.TupleDescription, attrs []string) *tuple.TupleDescription {
	if td == nil {
		return nil
	}
	fields := make([]tuple.FieldDesc, 0, len(attrs))
	for _, a := range attrs {
		if i, err := td.FindFieldIndex(a); err == nil {
			fields = append(fields, td.Field(i))
		}
	}
	out, err := tuple.NewSchema(fields...)
	if err != nil {
		return nil
	}
	return out
}
