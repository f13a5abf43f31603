package primitives

import "math"

// HashCode represents a hash value of a field or key.
type HashCode uint64

// ColumnID identifies a field position within a tuple.
type ColumnID uint32

// PageNumber is the ordinal of a page within a stream or run file.
type PageNumber uint64

const InvalidColumnID ColumnID = math.MaxUint32
