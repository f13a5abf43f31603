package join

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/extsort"
	"queryproc/pkg/iterator"
	"queryproc/pkg/logging"
	"queryproc/pkg/tuple"
)

// position addresses one right tuple by the ordinal of its page in the
// sorted right stream and its index inside that page.
type position struct {
	page int
	idx  int
}

// mergeCursor is the resumable state of the merge phase.
type mergeCursor struct {
	right  position
	mark   position
	marked bool
}

// SortMergeJoin sorts both inputs on their join keys with an ExternalSort
// each and merges the sorted streams.
//
// Right pages are pulled one at a time. Pages at or after the mark of the
// current tied partition stay in an in-memory backup window so the right
// cursor can be rewound to the mark for every left tuple of the partition,
// even across page boundaries. The window is trimmed whenever the mark is
// dropped.
type SortMergeJoin struct {
	*iterator.BinaryOperator
	cond   Condition
	outCap int
	log    *slog.Logger

	leftSort  *extsort.ExternalSort
	rightSort *extsort.ExternalSort
	left      *iterator.TupleCursor

	backup    []*tuple.Page
	base      int
	rightDone bool
	cur       mergeCursor
}

// NewSortMergeJoin creates a join of left and right on cond. Each embedded
// sort runs with numBuff pages.
func NewSortMergeJoin(left, right iterator.Operator, cond Condition, numBuff int, env *execution.Env) (*SortMergeJoin, error) {
	if left == nil || right == nil {
		return nil, errors.New("join inputs cannot be nil")
	}
	if err := cond.Validate(left.GetTupleDesc(), right.GetTupleDesc()); err != nil {
		return nil, err
	}
	if cond.Len() == 0 {
		return nil, dberror.New(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
			"sort-merge join needs at least one equality")
	}

	leftSort, err := extsort.New(left, tuple.Ascending(cond.LeftFields...), numBuff, env)
	if err != nil {
		return nil, err
	}
	rightSort, err := extsort.New(right, tuple.Ascending(cond.RightFields...), numBuff, env)
	if err != nil {
		return nil, err
	}

	j := &SortMergeJoin{
		cond:      cond,
		leftSort:  leftSort,
		rightSort: rightSort,
		log:       logging.WithComponent("SortMergeJoin").With("condition", cond.String()),
	}
	binary, err := iterator.NewBinaryOperator(leftSort, rightSort, j.readNext)
	if err != nil {
		return nil, err
	}
	j.BinaryOperator = binary
	j.outCap = env.PageCapacity(j.GetTupleDesc())
	return j, nil
}

// Open sorts both inputs.
func (j *SortMergeJoin) Open() error {
	if err := j.BinaryOperator.Open(); err != nil {
		return err
	}
	j.left = iterator.NewTupleCursor(j.leftSort)
	j.backup = nil
	j.base = 0
	j.rightDone = false
	j.cur = mergeCursor{}

	j.log.Debug("inputs sorted",
		"left_runs", j.leftSort.Stats().InitialRuns,
		"right_runs", j.rightSort.Stats().InitialRuns)
	return nil
}

func (j *SortMergeJoin) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(j.outCap)

	for !out.IsFull() {
		l, err := j.left.Peek()
		if err != nil {
			return nil, err
		}
		if l == nil {
			break
		}
		r, err := j.rightAt(j.cur.right)
		if err != nil {
			return nil, err
		}

		if !j.cur.marked {
			if r == nil {
				break
			}
			switch c := j.cond.Compare(l, r); {
			case c < 0:
				j.left.Advance()
			case c > 0:
				j.cur.right = j.nextPosition(j.cur.right)
				j.trim(j.cur.right.page)
			default:
				j.cur.mark = j.cur.right
				j.cur.marked = true
			}
			continue
		}

		if r != nil && j.cond.Match(l, r) {
			joined, err := tuple.CombineTuples(l, r, j.GetTupleDesc())
			if err != nil {
				return nil, err
			}
			if err := out.Add(joined); err != nil {
				return nil, err
			}
			j.cur.right = j.nextPosition(j.cur.right)
			continue
		}

		// The partition is exhausted for l.
		j.left.Advance()
		next, err := j.left.Peek()
		if err != nil {
			return nil, err
		}
		if next != nil && j.cond.compareLeft(l, next) == 0 {
			j.cur.right = j.cur.mark
			continue
		}
		j.cur.marked = false
		j.trim(j.cur.right.page)
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

// rightAt returns the right tuple at pos, pulling pages from the right sort
// as needed, or nil when the right stream ends before pos.
func (j *SortMergeJoin) rightAt(pos position) (*tuple.Tuple, error) {
	for pos.page >= j.base+len(j.backup) {
		if j.rightDone {
			return nil, nil
		}
		p, err := j.rightSort.Next()
		if err != nil {
			return nil, err
		}
		if p == nil {
			j.rightDone = true
			return nil, nil
		}
		j.backup = append(j.backup, p)
	}

	p := j.backup[pos.page-j.base]
	if pos.idx >= p.Len() {
		return nil, nil
	}
	return p.Get(pos.idx), nil
}

// nextPosition returns the position after pos. pos must address a loaded
// tuple.
func (j *SortMergeJoin) nextPosition(pos position) position {
	p := j.backup[pos.page-j.base]
	if pos.idx+1 < p.Len() {
		return position{page: pos.page, idx: pos.idx + 1}
	}
	return position{page: pos.page + 1}
}

// trim drops backup pages before page ordinal keep.
func (j *SortMergeJoin) trim(keep int) {
	drop := min(keep-j.base, len(j.backup))
	if drop <= 0 {
		return
	}
	clear(j.backup[:drop])
	j.backup = j.backup[drop:]
	j.base += drop
}

// Close closes both sorts, deleting their run files. It is idempotent.
func (j *SortMergeJoin) Close() error {
	j.backup = nil
	return j.BinaryOperator.Close()
}
