package query

import (
	"fmt"

	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/tuple"
)

// Scan reads a base table and packs its rows into pages.
type Scan struct {
	*iterator.BaseIterator
	table    TableSource
	capacity int
	reader   RowReader
}

// NewScan creates a scan of table producing pages sized for env.
func NewScan(table TableSource, env *execution.Env) (*Scan, error) {
	if table == nil {
		return nil, fmt.Errorf("table source cannot be nil")
	}

	s := &Scan{
		table:    table,
		capacity: env.PageCapacity(table.TupleDesc()),
	}
	s.BaseIterator = iterator.NewBaseIterator(s.readNext)
	return s, nil
}

func (s *Scan) Open() error {
	reader, err := s.table.Open()
	if err != nil {
		return s.Fail(err)
	}
	s.reader = reader
	s.MarkOpened()
	return nil
}

func (s *Scan) readNext() (*tuple.Page, error) {
	page := tuple.NewPage(s.capacity)
	for !page.IsFull() {
		t, err := s.reader.Read()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		if err := page.Add(t); err != nil {
			return nil, err
		}
	}

	if page.IsEmpty() {
		return nil, nil
	}
	return page, nil
}

// Close releases the table reader. It is idempotent.
func (s *Scan) Close() error {
	var err error
	if s.reader != nil {
		err = s.reader.Close()
		s.reader = nil
	}
	_ = s.BaseIterator.Close()
	return err
}

func (s *Scan) GetTupleDesc() *tuple.TupleDescription {
	return s.table.TupleDesc()
}

// Table returns the scanned table.
func (s *Scan) Table() TableSource {
	return s.table
}
