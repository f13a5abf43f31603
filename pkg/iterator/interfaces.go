package iterator

import "queryproc/pkg/tuple"

// Operator is the contract of every physical operator: a pull-based stream
// of pages.
//
// Lifecycle: Open, then Next until it returns a nil page, then Close. Close
// must be called even when Open or Next failed, and must be safe to call more
// than once. Operators that own spill files delete them in Close.
type Operator interface {
	// Open acquires the operator's resources and opens its inputs. Blocking
	// operators (sorts, the build side of joins) consume their input here.
	Open() error

	// Next returns the next non-empty output page, or nil at end of stream.
	// After an error every further call returns the same error.
	Next() (*tuple.Page, error)

	// Close releases all resources, including spill files, and closes inputs.
	Close() error

	// GetTupleDesc returns the schema of the produced tuples. It may be called
	// in any state.
	GetTupleDesc() *tuple.TupleDescription
}
