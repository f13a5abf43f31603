package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"

	"queryproc/pkg/primitives"
)

// Fields are stored big-endian at a fixed width so every record of a schema
// has the same byte size on a page.

// writeUint writes the low size bytes of v.
func writeUint(w io.Writer, v uint64, size int) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[8-size:])
	return err
}

// readUint reads a size-byte unsigned integer.
func readUint(r io.Reader, size int) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[8-size:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func hashUint(v uint64) primitives.HashCode {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	return primitives.HashCode(h.Sum64())
}

func hashString(s string) primitives.HashCode {
	h := fnv.New64a()
	_, _ = io.WriteString(h, s)
	return primitives.HashCode(h.Sum64())
}

// holds applies op to the outcome c of a three-way comparison.
func holds(c int, op primitives.Predicate) bool {
	switch op {
	case primitives.Equals:
		return c == 0
	case primitives.NotEqual:
		return c != 0
	case primitives.LessThan:
		return c < 0
	case primitives.LessThanOrEqual:
		return c <= 0
	case primitives.GreaterThan:
		return c > 0
	case primitives.GreaterThanOrEqual:
		return c >= 0
	default:
		return false
	}
}
