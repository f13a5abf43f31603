// Package buffer partitions the page budget of a query among its joins.
package buffer

// DefaultPerJoin is the share reported for plans without joins: the
// smallest budget a block nested loop join accepts.
const DefaultPerJoin = 3

// Manager holds the total page budget of one query and the number of joins
// sharing it. The partition is fixed before execution starts.
type Manager struct {
	total    int
	numJoins int
}

func New(totalBuffers, numJoins int) *Manager {
	return &Manager{total: totalBuffers, numJoins: numJoins}
}

// BuffersPerJoin returns the pages each join may use: an even share of the
// total, or DefaultPerJoin when there are no joins.
func (m *Manager) BuffersPerJoin() int {
	if m.numJoins <= 0 {
		return DefaultPerJoin
	}
	return m.total / m.numJoins
}

// Total returns the whole budget. Distinct, GroupBy and Sort run alone at the
// top of a plan and use all of it.
func (m *Manager) Total() int {
	return m.total
}

// NumJoins returns the number of joins sharing the budget.
func (m *Manager) NumJoins() int {
	return m.numJoins
}
