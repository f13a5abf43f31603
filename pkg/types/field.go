package types

import (
	"io"

	"queryproc/pkg/primitives"
)

// Field is a single typed value inside a tuple. Fields are immutable.
type Field interface {
	Serialize(w io.Writer) error

	Compare(op primitives.Predicate, other Field) (bool, error)

	Type() Type

	String() string

	Equals(other Field) bool

	Hash() (primitives.HashCode, error)
}
