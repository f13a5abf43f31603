package tuple

import (
	"errors"
	"fmt"
)

// ErrPageFull is returned by Page.Add when the page is at capacity.
var ErrPageFull = errors.New("page is full")

// Page is a bounded, ordered sequence of tuples: the unit every operator
// produces and consumes. A page never grows past its capacity.
type Page struct {
	tuples   []*Tuple
	capacity int
}

// NewPage creates an empty page able to hold capacity tuples (minimum 1).
func NewPage(capacity int) *Page {
	capacity = max(capacity, 1)
	return &Page{
		tuples:   make([]*Tuple, 0, capacity),
		capacity: capacity,
	}
}

// PageCapacity returns how many tuples of td fit in a page of pageSize bytes:
// pageSize / tupleSize, but never less than one.
func PageCapacity(pageSize int, td *TupleDescription) int {
	size := int(td.GetSize())
	if size <= 0 || pageSize <= 0 {
		return 1
	}
	return max(pageSize/size, 1)
}

// Add appends t. It fails with ErrPageFull when the page is at capacity.
func (p *Page) Add(t *Tuple) error {
	if len(p.tuples) >= p.capacity {
		return fmt.Errorf("add tuple to page of capacity %d: %w", p.capacity, ErrPageFull)
	}
	p.tuples = append(p.tuples, t)
	return nil
}

// Get returns the tuple at position i.
func (p *Page) Get(i int) *Tuple {
	return p.tuples[i]
}

// Tuples exposes the page contents. Callers must not modify the slice.
func (p *Page) Tuples() []*Tuple {
	return p.tuples
}

func (p *Page) Len() int {
	return len(p.tuples)
}

func (p *Page) Capacity() int {
	return p.capacity
}

func (p *Page) IsFull() bool {
	return len(p.tuples) >= p.capacity
}

func (p *Page) IsEmpty() bool {
	return len(p.tuples) == 0
}

// Pack splits tuples into consecutive pages of the given capacity.
func Pack(tuples []*Tuple, capacity int) []*Page {
	var pages []*Page
	var current *Page
	for _, t := range tuples {
		if current == nil || current.IsFull() {
			current = NewPage(capacity)
			pages = append(pages, current)
		}
		current.tuples = append(current.tuples, t)
	}
	return pages
}
