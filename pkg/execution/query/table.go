package query

import (
	"encoding/csv"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

// TableSource supplies the rows of a base table to a Scan.
type TableSource interface {
	Name() string
	TupleDesc() *tuple.TupleDescription
	Open() (RowReader, error)
}

// RowReader returns the rows of an opened table, nil once exhausted.
type RowReader interface {
	Read() (*tuple.Tuple, error)
	Close() error
}

// MemTable is a table held in memory.
type MemTable struct {
	name  string
	td    *tuple.TupleDescription
	rows  []*tuple.Tuple
	opens int
}

func NewMemTable(name string, td *tuple.TupleDescription, rows []*tuple.Tuple) *MemTable {
	return &MemTable{name: name, td: td, rows: rows}
}

func (m *MemTable) Name() string { return m.name }

func (m *MemTable) TupleDesc() *tuple.TupleDescription { return m.td }

// Opens returns how many times the table has been opened.
func (m *MemTable) Opens() int { return m.opens }

func (m *MemTable) Open() (RowReader, error) {
	m.opens++
	return &memReader{rows: m.rows}, nil
}

type memReader struct {
	rows []*tuple.Tuple
	pos  int
}

func (r *memReader) Read() (*tuple.Tuple, error) {
	if r.pos >= len(r.rows) {
		return nil, nil
	}
	t := r.rows[r.pos]
	r.pos++
	return t, nil
}

func (r *memReader) Close() error { return nil }

// CSVTable reads <dir>/<name>.csv from an afero filesystem. Each record must
// have one value per schema field; values are parsed with the field's type.
type CSVTable struct {
	fs   afero.Fs
	path string
	name string
	td   *tuple.TupleDescription
}

func NewCSVTable(fs afero.Fs, dir, name string, td *tuple.TupleDescription) *CSVTable {
	return &CSVTable{fs: fs, path: filepath.Join(dir, name+".csv"), name: name, td: td}
}

func (c *CSVTable) Name() string { return c.name }

func (c *CSVTable) TupleDesc() *tuple.TupleDescription { return c.td }

func (c *CSVTable) Open() (RowReader, error) {
	f, err := c.fs.Open(c.path)
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeTableData, "OpenTable", c.name)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = c.td.NumFields()
	r.TrimLeadingSpace = true
	r.ReuseRecord = true
	return &csvReader{f: f, r: r, table: c}, nil
}

type csvReader struct {
	f     afero.File
	r     *csv.Reader
	table *CSVTable
	line  int
}

func (r *csvReader) Read() (*tuple.Tuple, error) {
	record, err := r.r.Read()
	if err == io.EOF {
		return nil, nil
	}
	r.line++
	if err != nil {
		return nil, dberror.Wrap(err, dberror.ErrCategoryFormat, dberror.CodeTableData, "ReadRow", r.table.name)
	}

	td := r.table.td
	fields := make([]types.Field, len(record))
	for i, v := range record {
		f, err := types.ParseConstant(td.Types[i], v, td.PayloadWidth(i))
		if err != nil {
			return nil, dberror.Newf(dberror.ErrCategoryFormat, dberror.CodeTableData,
				"%s line %d column %d: %v", r.table.path, r.line, i+1, err)
		}
		fields[i] = f
	}
	return tuple.NewTuple(td, fields...)
}

func (r *csvReader) Close() error {
	return r.f.Close()
}
