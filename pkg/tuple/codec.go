package tuple

import (
	"encoding/binary"
	"fmt"
	"io"

	"queryproc/pkg/types"
)

// WritePage serializes p as a tuple count followed by each tuple's fields in
// schema order. Nil fields are not representable.
func WritePage(w io.Writer, p *Page) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(p.Len())) // #nosec G115
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	for _, t := range p.tuples {
		for i, f := range t.fields {
			if f == nil {
				return fmt.Errorf("cannot serialize null field %d", i)
			}
			if s, ok := f.(*types.StringField); ok {
				if width := int(t.TupleDesc.PayloadWidth(i)); s.MaxSize != width {
					f = types.NewStringField(s.Value, width)
				}
			}
			if err := f.Serialize(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadPage decodes one page written by WritePage. It returns io.EOF when r is
// positioned exactly at the end of the stream.
func ReadPage(r io.Reader, td *TupleDescription, capacity int) (*Page, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n > capacity {
		return nil, fmt.Errorf("page holds %d tuples, capacity is %d", n, capacity)
	}

	page := NewPage(capacity)
	for j := 0; j < n; j++ {
		fields := make([]types.Field, td.NumFields())
		for i := range fields {
			f, err := types.ParseField(r, td.Types[i], td.PayloadWidth(i))
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return nil, err
			}
			fields[i] = f
		}
		page.tuples = append(page.tuples, &Tuple{TupleDesc: td, fields: fields})
	}
	return page, nil
}
