package execution

import (
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
)

// DefaultPageSize is the page size in bytes used when none is configured.
const DefaultPageSize = 4096

// Env carries the settings every physical operator of one query shares: the
// page byte size that fixes page capacities and the spill manager that owns
// the temporary directory.
type Env struct {
	PageSize int
	Spill    *spill.Manager
}

// NewEnv creates an execution environment. A non-positive page size selects
// DefaultPageSize; a nil manager selects an in-memory spill filesystem.
func NewEnv(pageSize int, mgr *spill.Manager) *Env {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if mgr == nil {
		mgr = spill.NewMemManager()
	}
	return &Env{PageSize: pageSize, Spill: mgr}
}

// PageCapacity returns the number of td tuples per page.
func (e *Env) PageCapacity(td *tuple.TupleDescription) int {
	return tuple.PageCapacity(e.PageSize, td)
}
