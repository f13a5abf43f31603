// Package exectest holds helpers shared by operator tests: integer tables,
// in-memory sources and failure injection.
package exectest

import (
	"fmt"
	"math/rand"

	"queryproc/pkg/execution"
	"queryproc/pkg/execution/query"
	"queryproc/pkg/iterator"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

// IntSchema builds a schema of integer fields named <table>.<col>.
func IntSchema(table string, cols ...string) *tuple.TupleDescription {
	fields := make([]tuple.FieldDesc, len(cols))
	for i, c := range cols {
		fields[i] = tuple.FieldDesc{Name: table + "." + c, Type: types.IntType}
	}
	return tuple.MustSchema(fields...)
}

// IntRows builds one tuple per row of values.
func IntRows(td *tuple.TupleDescription, rows [][]int64) []*tuple.Tuple {
	out := make([]*tuple.Tuple, len(rows))
	for i, row := range rows {
		b := tuple.NewBuilder(td)
		for _, v := range row {
			b.AddInt(v)
		}
		out[i] = b.MustBuild()
	}
	return out
}

// Column turns single values into one-field rows.
func Column(values ...int64) [][]int64 {
	rows := make([][]int64, len(values))
	for i, v := range values {
		rows[i] = []int64{v}
	}
	return rows
}

// RandomRows returns n rows of width fields drawn from [0, domain).
func RandomRows(rng *rand.Rand, n, width int, domain int64) [][]int64 {
	rows := make([][]int64, n)
	for i := range rows {
		rows[i] = make([]int64, width)
		for j := range rows[i] {
			rows[i][j] = rng.Int63n(domain)
		}
	}
	return rows
}

// Source returns a scan over an in-memory table.
func Source(env *execution.Env, name string, td *tuple.TupleDescription, rows [][]int64) *query.Scan {
	scan, err := query.NewScan(query.NewMemTable(name, td, IntRows(td, rows)), env)
	if err != nil {
		panic(err)
	}
	return scan
}

// Values extracts the integer values of tuples, row by row.
func Values(tuples []*tuple.Tuple) [][]int64 {
	out := make([][]int64, len(tuples))
	for i, t := range tuples {
		out[i] = make([]int64, t.NumFields())
		for j := range out[i] {
			f, _ := t.GetField(j)
			iv, ok := f.(*types.IntField)
			if !ok {
				panic(fmt.Sprintf("field %d of %v is not an integer", j, t))
			}
			out[i][j] = iv.Value
		}
	}
	return out
}

// Tracked wraps an operator and records its lifecycle calls.
type Tracked struct {
	iterator.Operator
	Opens  int
	Closes int
}

func Track(op iterator.Operator) *Tracked {
	return &Tracked{Operator: op}
}

func (t *Tracked) Open() error {
	t.Opens++
	return t.Operator.Open()
}

func (t *Tracked) Close() error {
	t.Closes++
	return t.Operator.Close()
}

// Failing wraps an operator and fails Next after a number of pages.
type Failing struct {
	iterator.Operator
	After int
	Err   error
	pages int
}

func FailAfter(op iterator.Operator, pages int, err error) *Failing {
	return &Failing{Operator: op, After: pages, Err: err}
}

func (f *Failing) Next() (*tuple.Page, error) {
	if f.pages >= f.After {
		return nil, f.Err
	}
	f.pages++
	return f.Operator.Next()
}

// PageSizeFor returns the page byte size holding exactly perPage tuples of td.
func PageSizeFor(td *tuple.TupleDescription, perPage int) int {
	return int(td.GetSize()) * perPage
}
