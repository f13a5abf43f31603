package iterator

import "queryproc/pkg/tuple"

// TupleCursor walks an open operator one tuple at a time while holding only
// the current page in memory. It never closes the operator.
type TupleCursor struct {
	op     Operator
	tuples []*tuple.Tuple
	pos    int
	done   bool
}

// NewTupleCursor creates a cursor over op, which must already be open.
func NewTupleCursor(op Operator) *TupleCursor {
	return &TupleCursor{op: op}
}

// Peek returns the current tuple without consuming it, or nil at end of stream.
func (c *TupleCursor) Peek() (*tuple.Tuple, error) {
	for !c.done && c.pos >= len(c.tuples) {
		p, err := c.op.Next()
		if err != nil {
			return nil, err
		}
		if p == nil {
			c.done = true
			c.tuples, c.pos = nil, 0
			break
		}
		c.tuples, c.pos = p.Tuples(), 0
	}
	if c.done {
		return nil, nil
	}
	return c.tuples[c.pos], nil
}

// Advance consumes the current tuple. Peek must have returned a tuple.
func (c *TupleCursor) Advance() {
	if c.pos < len(c.tuples) {
		c.pos++
	}
}

// Next returns the current tuple and consumes it; nil at end of stream.
func (c *TupleCursor) Next() (*tuple.Tuple, error) {
	t, err := c.Peek()
	if t != nil {
		c.Advance()
	}
	return t, err
}
