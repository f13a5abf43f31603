package spill

import (
	"bufio"
	"errors"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/logging"
	"queryproc/pkg/tuple"
)

// Run is a named, disk-resident sequence of pages. The operator that created
// it owns it and must delete it through Manager.Remove.
type Run struct {
	Path    string
	Pages   int
	Records int
	Bytes   int64

	desc     *tuple.TupleDescription
	capacity int
}

// Capacity is the tuple capacity of the run's pages.
func (r *Run) Capacity() int {
	return r.capacity
}

// countingWriter tracks the number of bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer appends pages to a run file being created.
type Writer struct {
	m    *Manager
	f    afero.File
	cw   *countingWriter
	bw   *bufio.Writer
	run  *Run
	done bool
}

func newWriter(m *Manager, f afero.File, run *Run) *Writer {
	cw := &countingWriter{w: f}
	return &Writer{m: m, f: f, cw: cw, bw: bufio.NewWriter(cw), run: run}
}

// Path returns the file path of the run being written.
func (w *Writer) Path() string {
	return w.run.Path
}

// WritePage appends one page.
func (w *Writer) WritePage(p *tuple.Page) error {
	if err := tuple.WritePage(w.bw, p); err != nil {
		return dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "WritePage", component)
	}
	w.run.Pages++
	w.run.Records += p.Len()
	w.m.metrics.PagesWritten.Inc()
	return nil
}

// Finish flushes and closes the file and returns the completed run.
func (w *Writer) Finish() (*Run, error) {
	if w.done {
		return w.run, nil
	}
	w.done = true

	err := w.bw.Flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = w.m.fs.Remove(w.run.Path)
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "FinishRun", component)
	}

	w.run.Bytes = w.cw.n
	w.m.metrics.BytesWritten.Add(float64(w.cw.n))
	logging.WithRun(w.run.Path).Debug("run written",
		"pages", w.run.Pages,
		"records", w.run.Records,
		"size", humanize.Bytes(uint64(w.cw.n))) // #nosec G115
	return w.run, nil
}

// Abort closes and deletes a partially written run.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	cerr := w.f.Close()
	rerr := w.m.fs.Remove(w.run.Path)
	return errors.Join(cerr, rerr)
}

// Reader returns the pages of a run in order.
type Reader struct {
	m    *Manager
	f    afero.File
	br   *bufio.Reader
	run  *Run
	read int
}

func newReader(m *Manager, f afero.File, run *Run) *Reader {
	return &Reader{m: m, f: f, br: bufio.NewReader(f), run: run}
}

// ReadPage returns the next page of the run, or nil after the last one.
func (r *Reader) ReadPage() (*tuple.Page, error) {
	if r.read >= r.run.Pages {
		return nil, nil
	}

	p, err := tuple.ReadPage(r.br, r.run.desc, r.run.capacity)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, dberror.Wrap(err, dberror.ErrCategoryResource, dberror.CodeSpillIO, "ReadPage", component)
	}
	r.read++
	r.m.metrics.PagesRead.Inc()
	return p, nil
}

// Close closes the underlying file. It is idempotent.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
