package join

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/logging"
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
)

// MinBlockNestedBuffers is the smallest budget of a block nested loop join:
// one left page, one right page and one output page.
const MinBlockNestedBuffers = 3

// blockCursor is the position inside the current (left block, right page)
// pair at which the next comparison happens.
type blockCursor struct {
	leftIdx  int
	rightIdx int
}

// advanceBlockCursor moves past the pair (i, k) of a block of leftLen tuples
// and a right page of rightLen tuples. The right index runs fastest. pageDone
// reports that every pair of the current right page has been compared.
func advanceBlockCursor(i, k, leftLen, rightLen int) (next blockCursor, pageDone bool) {
	leftLast := i+1 >= leftLen
	rightLast := k+1 >= rightLen

	switch {
	case leftLast && rightLast:
		return blockCursor{}, true
	case rightLast:
		return blockCursor{leftIdx: i + 1}, false
	case leftLast:
		return blockCursor{leftIdx: i, rightIdx: k + 1}, false
	default:
		return blockCursor{leftIdx: i, rightIdx: k + 1}, false
	}
}

// BlockNestedLoopJoin joins its inputs by loading blocks of left pages into
// memory and comparing each block against every page of the right input.
//
// Open materializes the right input into one run file; each left block then
// rescans that file. Output pages are filled completely, and the position
// reached inside a block and right page is kept in a blockCursor so the next
// call resumes exactly there.
type BlockNestedLoopJoin struct {
	*iterator.BinaryOperator
	env        *execution.Env
	cond       Condition
	blockPages int
	outCap     int
	namer      *spill.Namer
	log        *slog.Logger

	right       *spill.Run
	rightReader *spill.Reader
	rightPage   *tuple.Page
	block       []*tuple.Tuple
	cursor      blockCursor
	blocks      int
}

// NewBlockNestedLoopJoin creates a join of left and right on cond using
// numBuff pages: numBuff-2 for the left block, one right page and one
// output page.
func NewBlockNestedLoopJoin(left, right iterator.Operator, cond Condition, numBuff int, env *execution.Env) (*BlockNestedLoopJoin, error) {
	if numBuff < MinBlockNestedBuffers {
		return nil, dberror.NewWithCause(dberror.ErrCategoryInfeasible, dberror.CodeBufferTooSmall,
			dberror.ErrBufferTooSmall, "block nested loop join needs at least %d buffers, got %d", MinBlockNestedBuffers, numBuff)
	}
	return newBlockJoin("BlockNestedLoopJoin", left, right, cond, numBuff-2, env)
}

// NewNestedLoopJoin creates the page-oriented nested loop join: a block
// nested loop join whose block is a single left page.
func NewNestedLoopJoin(left, right iterator.Operator, cond Condition, env *execution.Env) (*BlockNestedLoopJoin, error) {
	return newBlockJoin("NestedLoopJoin", left, right, cond, 1, env)
}

func newBlockJoin(name string, left, right iterator.Operator, cond Condition, blockPages int, env *execution.Env) (*BlockNestedLoopJoin, error) {
	if left == nil || right == nil {
		return nil, errors.New("join inputs cannot be nil")
	}
	if err := cond.Validate(left.GetTupleDesc(), right.GetTupleDesc()); err != nil {
		return nil, err
	}

	j := &BlockNestedLoopJoin{
		env:        env,
		cond:       cond,
		blockPages: blockPages,
		namer:      env.Spill.NewNamer("bnlj"),
	}
	j.log = logging.WithOperator(name, j.namer.ID())

	binary, err := iterator.NewBinaryOperator(left, right, j.readNext)
	if err != nil {
		return nil, err
	}
	j.BinaryOperator = binary
	j.outCap = env.PageCapacity(j.GetTupleDesc())
	return j, nil
}

// Open copies the right input into a run file, closes it, and opens the left
// input for a single forward scan.
func (j *BlockNestedLoopJoin) Open() error {
	if err := j.OpenRight(); err != nil {
		return err
	}
	if err := j.materializeRight(); err != nil {
		return j.Fail(err)
	}
	if err := j.CloseRight(); err != nil {
		return j.Fail(err)
	}
	if err := j.OpenLeft(); err != nil {
		return err
	}
	j.MarkOpened()
	return nil
}

func (j *BlockNestedLoopJoin) materializeRight() (err error) {
	rightOp := j.GetRightChild()
	td := rightOp.GetTupleDesc()

	var w *spill.Writer
	defer func() {
		if err != nil && w != nil {
			_ = w.Abort()
		}
	}()

	err = iterator.ForEachPage(rightOp, func(p *tuple.Page) error {
		if w == nil {
			var cerr error
			if w, cerr = j.env.Spill.Create(j.namer.Next(0), td, p.Capacity()); cerr != nil {
				return cerr
			}
		}
		return w.WritePage(p)
	})
	if err != nil {
		return fmt.Errorf("failed to materialize right input: %w", err)
	}
	if w == nil {
		return nil
	}

	run, err := w.Finish()
	if err != nil {
		return err
	}
	j.right = run
	j.log.Debug("right input materialized", "pages", run.Pages, "records", run.Records)
	return nil
}

func (j *BlockNestedLoopJoin) readNext() (*tuple.Page, error) {
	out := tuple.NewPage(j.outCap)

	for !out.IsFull() {
		if j.rightPage == nil {
			more, err := j.nextRightPage()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
		}

		i, k := j.cursor.leftIdx, j.cursor.rightIdx
		l, r := j.block[i], j.rightPage.Get(k)
		if j.cond.Match(l, r) {
			joined, err := tuple.CombineTuples(l, r, j.GetTupleDesc())
			if err != nil {
				return nil, err
			}
			if err := out.Add(joined); err != nil {
				return nil, err
			}
		}

		next, pageDone := advanceBlockCursor(i, k, len(j.block), j.rightPage.Len())
		j.cursor = next
		if pageDone {
			j.rightPage = nil
		}
	}

	if out.IsEmpty() {
		return nil, nil
	}
	return out, nil
}

// nextRightPage positions the join at the start of the next right page,
// loading the next left block and restarting the right scan when the current
// scan is complete. It reports false once the left input is exhausted.
func (j *BlockNestedLoopJoin) nextRightPage() (bool, error) {
	if j.right == nil {
		return false, nil
	}

	for {
		if j.rightReader == nil {
			loaded, err := j.loadBlock()
			if err != nil || !loaded {
				return false, err
			}
			reader, err := j.env.Spill.Open(j.right)
			if err != nil {
				return false, err
			}
			j.rightReader = reader
		}

		p, err := j.rightReader.ReadPage()
		if err != nil {
			return false, err
		}
		if p == nil {
			err := j.rightReader.Close()
			j.rightReader = nil
			if err != nil {
				return false, err
			}
			continue
		}
		if p.IsEmpty() {
			continue
		}

		j.rightPage = p
		j.cursor = blockCursor{}
		return true, nil
	}
}

// loadBlock reads up to blockPages left pages. It reports false when the left
// input has no tuples left.
func (j *BlockNestedLoopJoin) loadBlock() (bool, error) {
	j.block = j.block[:0]
	leftOp := j.GetLeftChild()

	for pages := 0; pages < j.blockPages; pages++ {
		p, err := leftOp.Next()
		if err != nil {
			return false, fmt.Errorf("error getting next page from left child: %w", err)
		}
		if p == nil {
			break
		}
		j.block = append(j.block, p.Tuples()...)
	}

	if len(j.block) == 0 {
		j.log.Debug("left input exhausted", "blocks", j.blocks)
		return false, nil
	}
	j.blocks++
	return true, nil
}

// Close deletes the materialized right input and closes both inputs. It is
// idempotent.
func (j *BlockNestedLoopJoin) Close() error {
	var errs []error
	if j.rightReader != nil {
		errs = append(errs, j.rightReader.Close())
		j.rightReader = nil
	}
	if j.right != nil {
		errs = append(errs, j.env.Spill.Remove(j.right))
		j.right = nil
	}
	j.block = nil
	j.rightPage = nil
	errs = append(errs, j.BinaryOperator.Close())
	return errors.Join(errs...)
}
