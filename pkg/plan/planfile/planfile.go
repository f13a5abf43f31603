// Package planfile reads query descriptions from YAML: the schemas of the
// base tables and the initial operator tree.
//
//	tables:
//	  - name: R
//	    columns:
//	      - {name: a, type: int, key: true}
//	      - {name: s, type: string, width: 16}
//	plan:
//	  join:
//	    method: bnlj
//	    on: [[R.a, S.a]]
//	    left: {scan: R}
//	    right: {scan: S}
package planfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/plan"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

// File is the YAML document.
type File struct {
	Tables []TableDef `yaml:"tables"`
	Plan   NodeDef    `yaml:"plan"`
}

type TableDef struct {
	Name    string      `yaml:"name"`
	Columns []ColumnDef `yaml:"columns"`
}

type ColumnDef struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Width uint32 `yaml:"width,omitempty"`
	Key   bool   `yaml:"key,omitempty"`
}

// NodeDef holds exactly one operator.
type NodeDef struct {
	Scan     string       `yaml:"scan,omitempty"`
	Select   *SelectDef   `yaml:"select,omitempty"`
	Project  *ProjectDef  `yaml:"project,omitempty"`
	Join     *JoinDef     `yaml:"join,omitempty"`
	Distinct *DistinctDef `yaml:"distinct,omitempty"`
	GroupBy  *GroupByDef  `yaml:"groupby,omitempty"`
	Sort     *SortDef     `yaml:"sort,omitempty"`
}

type SelectDef struct {
	Attr  string  `yaml:"attr"`
	Op    string  `yaml:"op"`
	Value string  `yaml:"value"`
	Input NodeDef `yaml:"input"`
}

type ProjectDef struct {
	Attrs []string `yaml:"attrs"`
	Input NodeDef  `yaml:"input"`
}

type JoinDef struct {
	Method string      `yaml:"method,omitempty"`
	On     [][2]string `yaml:"on"`
	Left   NodeDef     `yaml:"left"`
	Right  NodeDef     `yaml:"right"`
}

type DistinctDef struct {
	Attrs []string `yaml:"attrs,omitempty"`
	Input NodeDef  `yaml:"input"`
}

type GroupByDef struct {
	By      []string `yaml:"by"`
	Project []string `yaml:"project"`
	Input   NodeDef  `yaml:"input"`
}

type SortDef struct {
	Keys  []string `yaml:"keys"`
	Input NodeDef  `yaml:"input"`
}

// Query is a parsed plan file.
type Query struct {
	// Tables maps table names to schemas with qualified field names.
	Tables map[string]*tuple.TupleDescription
	// Root is the initial plan, validated and with its joins numbered.
	Root plan.Node
}

// Load reads and parses the plan file at path on fs.
func Load(fs afero.Fs, path string) (*Query, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodePlanFormat, "LoadPlan", "PlanFile")
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a plan file. Unknown keys are rejected.
func Parse(r io.Reader) (*Query, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, formatError(err, "invalid plan file")
	}
	return file.Build()
}

// Build converts the decoded document into schemas and a plan tree.
func (f *File) Build() (*Query, error) {
	q := &Query{Tables: make(map[string]*tuple.TupleDescription, len(f.Tables))}
	for _, t := range f.Tables {
		td, err := t.schema()
		if err != nil {
			return nil, err
		}
		if _, dup := q.Tables[t.Name]; dup {
			return nil, formatError(nil, "table %s declared twice", t.Name)
		}
		q.Tables[t.Name] = td
	}

	root, err := f.Plan.build(q.Tables)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(root); err != nil {
		return nil, err
	}
	plan.NumberJoins(root)
	q.Root = root
	return q, nil
}

func (t TableDef) schema() (*tuple.TupleDescription, error) {
	if t.Name == "" || len(t.Columns) == 0 {
		return nil, formatError(nil, "table %q needs a name and columns", t.Name)
	}
	fields := make([]tuple.FieldDesc, len(t.Columns))
	for i, c := range t.Columns {
		typ, ok := types.ParseType(strings.ToLower(c.Type))
		if !ok {
			return nil, formatError(nil, "column %s.%s has unknown type %q", t.Name, c.Name, c.Type)
		}
		fields[i] = tuple.FieldDesc{Name: t.Name + "." + c.Name, Type: typ, Width: c.Width, PrimaryKey: c.Key}
	}
	td, err := tuple.NewSchema(fields...)
	if err != nil {
		return nil, formatError(err, "table %s", t.Name)
	}
	return td, nil
}

func (n *NodeDef) build(tables map[string]*tuple.TupleDescription) (plan.Node, error) {
	switch {
	case n.Scan != "":
		td, ok := tables[n.Scan]
		if !ok {
			return nil, formatError(nil, "scan of undeclared table %s", n.Scan)
		}
		return plan.NewScan(n.Scan, td), nil

	case n.Select != nil:
		child, err := n.Select.Input.build(tables)
		if err != nil {
			return nil, err
		}
		op, ok := primitives.ParsePredicate(n.Select.Op)
		if !ok {
			return nil, formatError(nil, "unknown select operator %q", n.Select.Op)
		}
		return plan.NewSelect(child, n.Select.Attr, op, n.Select.Value), nil

	case n.Project != nil:
		child, err := n.Project.Input.build(tables)
		if err != nil {
			return nil, err
		}
		return plan.NewProject(child, n.Project.Attrs...), nil

	case n.Join != nil:
		return n.Join.build(tables)

	case n.Distinct != nil:
		child, err := n.Distinct.Input.build(tables)
		if err != nil {
			return nil, err
		}
		return plan.NewDistinct(child, n.Distinct.Attrs...), nil

	case n.GroupBy != nil:
		child, err := n.GroupBy.Input.build(tables)
		if err != nil {
			return nil, err
		}
		return plan.NewGroupBy(child, n.GroupBy.By, n.GroupBy.Project), nil

	case n.Sort != nil:
		child, err := n.Sort.Input.build(tables)
		if err != nil {
			return nil, err
		}
		keys := make([]plan.SortKey, len(n.Sort.Keys))
		for i, k := range n.Sort.Keys {
			fields := strings.Fields(k)
			if len(fields) == 0 || len(fields) > 2 {
				return nil, formatError(nil, "invalid sort key %q", k)
			}
			keys[i].Attr = fields[0]
			if len(fields) == 2 {
				switch strings.ToLower(fields[1]) {
				case "asc":
				case "desc":
					keys[i].Descending = true
				default:
					return nil, formatError(nil, "invalid sort direction in %q", k)
				}
			}
		}
		return plan.NewSort(child, keys...), nil

	default:
		return nil, formatError(nil, "plan node names no operator")
	}
}

func (j *JoinDef) build(tables map[string]*tuple.TupleDescription) (plan.Node, error) {
	left, err := j.Left.build(tables)
	if err != nil {
		return nil, err
	}
	right, err := j.Right.build(tables)
	if err != nil {
		return nil, err
	}

	method := primitives.BlockNestedJoin
	if j.Method != "" {
		m, ok := primitives.ParseJoinMethod(j.Method)
		if !ok {
			return nil, formatError(nil, "unknown join method %q", j.Method)
		}
		method = m
	}

	conds := make([]plan.Condition, len(j.On))
	for i, on := range j.On {
		conds[i] = plan.Condition{Left: on[0], Right: on[1]}
	}
	return plan.NewJoin(left, right, method, conds...), nil
}

func formatError(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return dberror.New(dberror.ErrCategoryFormat, dberror.CodePlanFormat, msg)
	}
	return dberror.NewWithCause(dberror.ErrCategoryFormat, dberror.CodePlanFormat, cause, "%s", msg)
}
