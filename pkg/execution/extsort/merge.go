package extsort

import (
	"github.com/google/btree"

	"queryproc/pkg/tuple"
)

const mergeDegree = 8

// mergeItem is the head tuple of one run inside the merge queue. Ties on the
// key are broken by run index, so items are never equal and each merge is
// stable with respect to run order.
type mergeItem struct {
	t   *tuple.Tuple
	run int
	cmp *tuple.Comparator
}

func (a mergeItem) Less(than btree.Item) bool {
	b := than.(mergeItem)
	if c := a.cmp.Compare(a.t, b.t); c != 0 {
		return c < 0
	}
	return a.run < b.run
}

// mergeGroup k-way merges group into a new run of the given round.
func (s *ExternalSort) mergeGroup(round int, group []*sortedRun) (_ *sortedRun, err error) {
	cursors := make([]*runCursor, 0, len(group))
	defer func() {
		for _, c := range cursors {
			c.close()
		}
	}()

	queue := btree.New(mergeDegree)
	for i, r := range group {
		c, err := s.openCursor(r)
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
		if t := c.head(); t != nil {
			queue.ReplaceOrInsert(mergeItem{t: t, run: i, cmp: &s.cmp})
		}
	}

	b := s.newRunBuilder(round)
	defer func() {
		if err != nil {
			b.abort()
		}
	}()

	for queue.Len() > 0 {
		item := queue.DeleteMin().(mergeItem)
		if err := b.add(item.t); err != nil {
			return nil, err
		}

		c := cursors[item.run]
		if err := c.advance(); err != nil {
			return nil, err
		}
		if t := c.head(); t != nil {
			queue.ReplaceOrInsert(mergeItem{t: t, run: item.run, cmp: &s.cmp})
		}
	}

	return b.finish()
}
