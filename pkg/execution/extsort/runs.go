package extsort

import (
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
)

// sortedRun is either a run file or a single in-memory page; exactly one of
// the fields is set.
type sortedRun struct {
	file *spill.Run
	page *tuple.Page
}

// runBuilder packs sorted tuples into pages and defers creating a file until
// a second page is needed, so single-page runs never touch disk.
type runBuilder struct {
	s       *ExternalSort
	round   int
	first   *tuple.Page
	current *tuple.Page
	w       *spill.Writer
}

func (s *ExternalSort) newRunBuilder(round int) *runBuilder {
	return &runBuilder{s: s, round: round}
}

func (b *runBuilder) add(t *tuple.Tuple) error {
	if b.current == nil {
		b.current = tuple.NewPage(b.s.capacity)
	}
	if err := b.current.Add(t); err != nil {
		return err
	}
	if b.current.IsFull() {
		p := b.current
		b.current = nil
		return b.flush(p)
	}
	return nil
}

func (b *runBuilder) flush(p *tuple.Page) error {
	if b.w == nil && b.first == nil {
		b.first = p
		return nil
	}

	if b.w == nil {
		w, err := b.s.env.Spill.Create(b.s.namer.Next(b.round), b.s.GetTupleDesc(), b.s.capacity)
		if err != nil {
			return err
		}
		b.w = w
		if err := w.WritePage(b.first); err != nil {
			return err
		}
		b.first = nil
	}
	return b.w.WritePage(p)
}

// finish returns the completed run, or nil when no tuple was added.
func (b *runBuilder) finish() (*sortedRun, error) {
	if b.current != nil && !b.current.IsEmpty() {
		p := b.current
		b.current = nil
		if err := b.flush(p); err != nil {
			return nil, err
		}
	}

	switch {
	case b.w != nil:
		run, err := b.w.Finish()
		b.w = nil
		if err != nil {
			return nil, err
		}
		b.s.track(run)
		return &sortedRun{file: run}, nil
	case b.first != nil:
		return &sortedRun{page: b.first}, nil
	default:
		return nil, nil
	}
}

// abort deletes a partially written run file.
func (b *runBuilder) abort() {
	if b.w != nil {
		_ = b.w.Abort()
		b.w = nil
	}
}

// runCursor reads a run one tuple at a time, holding one page.
type runCursor struct {
	reader *spill.Reader
	page   *tuple.Page
	pos    int
}

func (s *ExternalSort) openCursor(r *sortedRun) (*runCursor, error) {
	if r.page != nil {
		return &runCursor{page: r.page}, nil
	}

	reader, err := s.env.Spill.Open(r.file)
	if err != nil {
		return nil, err
	}
	c := &runCursor{reader: reader}
	if err := c.fill(); err != nil {
		_ = reader.Close()
		return nil, err
	}
	return c, nil
}

func (c *runCursor) head() *tuple.Tuple {
	if c.page == nil || c.pos >= c.page.Len() {
		return nil
	}
	return c.page.Get(c.pos)
}

func (c *runCursor) advance() error {
	c.pos++
	if c.page != nil && c.pos >= c.page.Len() {
		return c.fill()
	}
	return nil
}

// fill loads the next non-empty page from disk, or clears the cursor.
func (c *runCursor) fill() error {
	c.pos = 0
	c.page = nil
	if c.reader == nil {
		return nil
	}
	for {
		p, err := c.reader.ReadPage()
		if err != nil {
			return err
		}
		if p == nil || !p.IsEmpty() {
			c.page = p
			return nil
		}
	}
}

func (c *runCursor) close() {
	if c.reader != nil {
		_ = c.reader.Close()
	}
}
