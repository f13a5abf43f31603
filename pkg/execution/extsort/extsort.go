package extsort

import (
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/iterator"
	"queryproc/pkg/logging"
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
)

// MinBuffers is the smallest budget an ExternalSort accepts.
const MinBuffers = 2

// ExternalSort produces its input totally ordered by a sort key while holding
// at most numBuff pages of tuples in memory.
//
// Open runs both phases:
//   - run generation reads numBuff pages at a time, sorts them in memory and
//     writes each result as a run; a result that fits in a single page stays
//     in memory without a file.
//   - merging combines up to numBuff-1 runs per group with a k-way merge,
//     round after round, until one run remains. Runs of a finished round are
//     deleted.
//
// Next then streams the final run page by page. Close deletes every run file
// the operator still owns.
type ExternalSort struct {
	*iterator.UnaryOperator
	env      *execution.Env
	cmp      tuple.Comparator
	numBuff  int
	capacity int
	namer    *spill.Namer
	owned    map[string]*spill.Run
	log      *slog.Logger

	final       *sortedRun
	finalReader *spill.Reader
	emitted     bool
	stats       Stats
}

// Stats describes the work done by Open.
type Stats struct {
	InitialRuns int // runs produced by run generation
	SpilledRuns int // run files written across all phases
	MergeRounds int
}

// New creates an external sort of child on keys with a budget of numBuff
// pages. An empty key list sorts on all fields ascending.
func New(child iterator.Operator, keys []tuple.SortKey, numBuff int, env *execution.Env) (*ExternalSort, error) {
	if numBuff < MinBuffers {
		return nil, dberror.NewWithCause(dberror.ErrCategoryInfeasible, dberror.CodeBufferTooSmall,
			dberror.ErrBufferTooSmall, "external sort needs at least %d buffers, got %d", MinBuffers, numBuff)
	}
	if child == nil {
		return nil, errors.New("child operator cannot be nil")
	}

	td := child.GetTupleDesc()
	if len(keys) == 0 {
		keys = tuple.Ascending(tuple.AllFields(td.NumFields())...)
	}
	for _, k := range keys {
		if int(k.Field) >= td.NumFields() {
			return nil, dberror.Newf(dberror.ErrCategoryLogical, dberror.CodeInvalidField,
				"sort field %d out of bounds (schema has %d fields)", k.Field, td.NumFields())
		}
	}

	s := &ExternalSort{
		env:      env,
		cmp:      tuple.NewComparator(keys),
		numBuff:  numBuff,
		capacity: env.PageCapacity(td),
		namer:    env.Spill.NewNamer("sort"),
		owned:    make(map[string]*spill.Run),
	}
	s.log = logging.WithOperator("ExternalSort", s.namer.ID())

	unary, err := iterator.NewUnaryOperator(child, s.readNext)
	if err != nil {
		return nil, err
	}
	s.UnaryOperator = unary
	return s, nil
}

// Open consumes the whole input and leaves exactly one sorted run ready to
// be streamed.
func (s *ExternalSort) Open() error {
	if err := s.UnaryOperator.Open(); err != nil {
		return err
	}

	runs, err := s.generateRuns()
	if err != nil {
		return s.Fail(err)
	}
	if err := s.CloseChild(); err != nil {
		return s.Fail(err)
	}

	final, err := s.mergeRuns(runs)
	if err != nil {
		return s.Fail(err)
	}

	s.final = final
	if final != nil && final.file != nil {
		r, err := s.env.Spill.Open(final.file)
		if err != nil {
			return s.Fail(err)
		}
		s.finalReader = r
	}
	return nil
}

// generateRuns reads the input numBuff pages at a time and turns each batch
// into one sorted run.
func (s *ExternalSort) generateRuns() ([]*sortedRun, error) {
	var runs []*sortedRun

	for eof := false; !eof; {
		batch := make([]*tuple.Tuple, 0, s.numBuff*s.capacity)
		for pages := 0; pages < s.numBuff; pages++ {
			p, err := s.FetchPage()
			if err != nil {
				return runs, err
			}
			if p == nil {
				eof = true
				break
			}
			batch = append(batch, p.Tuples()...)
		}
		if len(batch) == 0 {
			continue
		}

		slices.SortStableFunc(batch, s.cmp.Compare)
		run, err := s.writeSorted(batch)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}

	s.stats.InitialRuns = len(runs)
	s.log.Debug("runs generated", "runs", len(runs), "buffers", s.numBuff)
	return runs, nil
}

func (s *ExternalSort) writeSorted(batch []*tuple.Tuple) (_ *sortedRun, err error) {
	b := s.newRunBuilder(0)
	defer func() {
		if err != nil {
			b.abort()
		}
	}()

	for _, t := range batch {
		if err := b.add(t); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// mergeRuns merges runs in rounds of fan-in numBuff-1 until at most one
// remains. A group holding a single run is carried into the next round
// untouched.
func (s *ExternalSort) mergeRuns(runs []*sortedRun) (*sortedRun, error) {
	// With numBuff = 2 a merge holds one page over budget: two inputs and the output.
	fanIn := max(s.numBuff-1, 2)

	for round := 1; len(runs) > 1; round++ {
		next := make([]*sortedRun, 0, (len(runs)+fanIn-1)/fanIn)
		var obsolete []*sortedRun

		for start := 0; start < len(runs); start += fanIn {
			group := runs[start:min(start+fanIn, len(runs))]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}

			merged, err := s.mergeGroup(round, group)
			if err != nil {
				return nil, err
			}
			next = append(next, merged)
			obsolete = append(obsolete, group...)
		}

		for _, r := range obsolete {
			if err := s.release(r); err != nil {
				return nil, err
			}
		}

		s.stats.MergeRounds++
		s.env.Spill.Metrics().MergeRounds.Inc()
		s.log.Debug("merge round finished", "round", round, "runs_in", len(runs), "runs_out", len(next))
		runs = next
	}

	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// readNext streams the final run.
func (s *ExternalSort) readNext() (*tuple.Page, error) {
	switch {
	case s.final == nil:
		return nil, nil
	case s.final.page != nil:
		if s.emitted {
			return nil, nil
		}
		s.emitted = true
		return s.final.page, nil
	default:
		return s.finalReader.ReadPage()
	}
}

// Close deletes all run files still owned, including the one being streamed,
// and closes the input. It is idempotent.
func (s *ExternalSort) Close() error {
	var errs []error

	if s.finalReader != nil {
		errs = append(errs, s.finalReader.Close())
		s.finalReader = nil
	}
	for _, run := range s.owned {
		errs = append(errs, s.releaseFile(run))
	}
	errs = append(errs, s.UnaryOperator.Close())

	return errors.Join(errs...)
}

// Stats reports the shape of the sort performed by Open.
func (s *ExternalSort) Stats() Stats {
	return s.stats
}

// Comparator returns the ordering the output follows.
func (s *ExternalSort) Comparator() tuple.Comparator {
	return s.cmp
}

func (s *ExternalSort) track(run *spill.Run) {
	s.owned[run.Path] = run
	s.stats.SpilledRuns++
}

func (s *ExternalSort) release(r *sortedRun) error {
	if r == nil || r.file == nil {
		return nil
	}
	return s.releaseFile(r.file)
}

func (s *ExternalSort) releaseFile(run *spill.Run) error {
	delete(s.owned, run.Path)
	return s.env.Spill.Remove(run)
}
