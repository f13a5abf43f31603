package join

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/exectest"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/spill"
)

var allMethods = []primitives.JoinMethod{
	primitives.SortMergeJoin,
	primitives.BlockNestedJoin,
	primitives.NestedLoopJoin,
}

type joinInput struct {
	left, right [][]int64
	leftCols    []string
	rightCols   []string
}

func columns(rows [][]int64) []string {
	n := 1
	if len(rows) > 0 {
		n = len(rows[0])
	}
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	return cols
}

// runJoin executes a join over two in-memory tables and returns the output
// rows in sorted order, with the environment used.
func runJoin(t *testing.T, method primitives.JoinMethod, in joinInput, cond Condition, numBuff, perPage int) ([][]int64, *execution.Env) {
	t.Helper()
	if in.leftCols == nil {
		in.leftCols = columns(in.left)
	}
	if in.rightCols == nil {
		in.rightCols = columns(in.right)
	}
	ltd := exectest.IntSchema("L", in.leftCols...)
	rtd := exectest.IntSchema("R", in.rightCols...)
	env := execution.NewEnv(exectest.PageSizeFor(ltd, perPage), spill.NewMemManager())

	op, err := New(method, exectest.Source(env, "L", ltd, in.left), exectest.Source(env, "R", rtd, in.right), cond, numBuff, env)
	require.NoError(t, err)

	got, err := iterator.Run(op)
	require.NoError(t, err)

	rows := exectest.Values(got)
	slices.SortFunc(rows, slices.Compare)
	return rows, env
}

// naiveJoin is the tuple-at-a-time reference.
func naiveJoin(left, right [][]int64, cond Condition) [][]int64 {
	var out [][]int64
	for _, l := range left {
		for _, r := range right {
			match := true
			for i := range cond.LeftFields {
				if l[cond.LeftFields[i]] != r[cond.RightFields[i]] {
					match = false
					break
				}
			}
			if match {
				out = append(out, append(slices.Clone(l), r...))
			}
		}
	}
	slices.SortFunc(out, slices.Compare)
	return out
}

// ============================================================================
// Block cursor
// ============================================================================

func TestAdvanceBlockCursor(t *testing.T) {
	tests := []struct {
		name     string
		i, k     int
		leftLen  int
		rightLen int
		want     blockCursor
		pageDone bool
	}{
		{"both exhausted", 2, 4, 3, 5, blockCursor{}, true},
		{"right row exhausted", 0, 4, 3, 5, blockCursor{leftIdx: 1}, false},
		{"left exhausted", 2, 1, 3, 5, blockCursor{leftIdx: 2, rightIdx: 2}, false},
		{"neither exhausted", 1, 1, 3, 5, blockCursor{leftIdx: 1, rightIdx: 2}, false},
		{"single pair", 0, 0, 1, 1, blockCursor{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, done := advanceBlockCursor(tt.i, tt.k, tt.leftLen, tt.rightLen)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pageDone, done)
		})
	}
}

func TestAdvanceBlockCursor_VisitsEveryPairOnce(t *testing.T) {
	const leftLen, rightLen = 4, 3
	seen := map[blockCursor]int{}

	c := blockCursor{}
	for {
		seen[c]++
		next, done := advanceBlockCursor(c.leftIdx, c.rightIdx, leftLen, rightLen)
		if done {
			break
		}
		c = next
	}

	assert.Len(t, seen, leftLen*rightLen)
	for pair, n := range seen {
		assert.Equal(t, 1, n, "pair %v", pair)
	}
}

// ============================================================================
// Concrete scenario
// ============================================================================

func TestJoin_ConcreteScenario(t *testing.T) {
	in := joinInput{left: exectest.Column(3, 1, 2, 1), right: exectest.Column(1, 1, 4)}
	want := [][]int64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}

	for numBuff := 3; numBuff <= 6; numBuff++ {
		t.Run(fmt.Sprintf("BlockNested/B=%d", numBuff), func(t *testing.T) {
			got, _ := runJoin(t, primitives.BlockNestedJoin, in, On(0, 0), numBuff, 1)
			assert.Equal(t, want, got)
		})
	}
	t.Run("NestedLoop", func(t *testing.T) {
		got, _ := runJoin(t, primitives.NestedLoopJoin, in, On(0, 0), 0, 1)
		assert.Equal(t, want, got)
	})
	t.Run("SortMerge/B=2", func(t *testing.T) {
		got, _ := runJoin(t, primitives.SortMergeJoin, in, On(0, 0), 2, 1)
		assert.Equal(t, want, got)
	})
}

func TestJoin_TiedPartitionAcrossPages(t *testing.T) {
	in := joinInput{
		left:  exectest.Column(0, 1, 1, 1, 2, 5),
		right: exectest.Column(1, 1, 1, 1, 1, 2, 2, 3),
	}
	want := naiveJoin(in.left, in.right, On(0, 0))
	require.Len(t, want, 17)

	for _, m := range allMethods {
		for _, perPage := range []int{1, 2, 4} {
			t.Run(fmt.Sprintf("%s/perPage=%d", m, perPage), func(t *testing.T) {
				got, _ := runJoin(t, m, in, On(0, 0), 3, perPage)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestJoin_OutputPagesResume(t *testing.T) {
	// Every pair matches, so each output page fills in the middle of a block.
	in := joinInput{left: exectest.Column(7, 7, 7, 7, 7), right: exectest.Column(7, 7, 7)}

	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			got, _ := runJoin(t, m, in, On(0, 0), 4, 3)
			assert.Len(t, got, 15)
		})
	}
}

func TestJoin_MultiFieldCondition(t *testing.T) {
	in := joinInput{
		left:  [][]int64{{1, 1, 10}, {1, 2, 11}, {2, 1, 12}, {1, 1, 13}},
		right: [][]int64{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
	}
	cond := On(0, 0).And(1, 1)
	want := naiveJoin(in.left, in.right, cond)
	require.Len(t, want, 5)

	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			got, _ := runJoin(t, m, in, cond, 3, 2)
			assert.Equal(t, want, got)
		})
	}
}

func TestJoin_EmptyInputs(t *testing.T) {
	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			got, _ := runJoin(t, m, joinInput{left: nil, right: exectest.Column(1, 2)}, On(0, 0), 3, 1)
			assert.Empty(t, got)
			got, _ = runJoin(t, m, joinInput{left: exectest.Column(1, 2), right: nil}, On(0, 0), 3, 1)
			assert.Empty(t, got)
		})
	}
}

func TestBlockNestedLoopJoin_CrossProduct(t *testing.T) {
	in := joinInput{left: exectest.Column(1, 2, 3), right: exectest.Column(4, 5)}
	got, _ := runJoin(t, primitives.BlockNestedJoin, in, Condition{}, 3, 1)
	assert.Len(t, got, 6)
}

// ============================================================================
// Property: agreement with the naive reference
// ============================================================================

func TestJoin_MatchesNaiveReference(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("every method produces the naive multiset", prop.ForAll(
		func(left, right []int64, method, numBuff, perPage int) bool {
			in := joinInput{left: exectest.Column(left...), right: exectest.Column(right...)}
			want := naiveJoin(in.left, in.right, On(0, 0))
			got, env := runJoin(t, allMethods[method], in, On(0, 0), numBuff, perPage)

			files, err := env.Spill.List()
			return err == nil && len(files) == 0 && slices.EqualFunc(want, got, slices.Equal[[]int64])
		},
		gen.SliceOf(gen.Int64Range(0, 6)),
		gen.SliceOf(gen.Int64Range(0, 6)),
		gen.IntRange(0, len(allMethods)-1),
		gen.IntRange(3, 6),
		gen.IntRange(1, 3),
	))

	properties.TestingRun(t)
}

// ============================================================================
// Budgets, validation and cleanup
// ============================================================================

func TestJoin_Validation(t *testing.T) {
	ltd := exectest.IntSchema("L", "a")
	rtd := exectest.IntSchema("R", "a")
	env := execution.NewEnv(0, nil)
	left := exectest.Source(env, "L", ltd, nil)
	right := exectest.Source(env, "R", rtd, nil)

	_, err := NewBlockNestedLoopJoin(left, right, On(0, 0), 2, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrBufferTooSmall)

	_, err = NewSortMergeJoin(left, right, On(0, 0), 1, env)
	assert.ErrorIs(t, err, dberror.ErrBufferTooSmall)

	_, err = NewSortMergeJoin(left, right, Condition{}, 3, env)
	assert.True(t, dberror.HasCategory(err, dberror.ErrCategoryLogical))

	_, err = NewBlockNestedLoopJoin(left, right, On(0, 3), 3, env)
	assert.True(t, dberror.HasCategory(err, dberror.ErrCategoryLogical))

	_, err = New(primitives.JoinMethod(9), left, right, On(0, 0), 3, env)
	assert.Equal(t, dberror.CodeUnknownOperator, dberror.CodeOf(err))
}

func TestJoin_EarlyCloseRemovesFiles(t *testing.T) {
	ltd := exectest.IntSchema("L", "a")
	rtd := exectest.IntSchema("R", "a")

	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			env := execution.NewEnv(exectest.PageSizeFor(ltd, 1), spill.NewMemManager())
			left := exectest.Track(exectest.Source(env, "L", ltd, exectest.Column(5, 4, 3, 2, 1)))
			right := exectest.Track(exectest.Source(env, "R", rtd, exectest.Column(1, 2, 3, 4, 5)))

			op, err := New(m, left, right, On(0, 0), 3, env)
			require.NoError(t, err)
			require.NoError(t, op.Open())

			files, err := env.Spill.List()
			require.NoError(t, err)
			assert.NotEmpty(t, files)

			p, err := op.Next()
			require.NoError(t, err)
			require.NotNil(t, p)

			require.NoError(t, op.Close())
			require.NoError(t, op.Close())

			files, err = env.Spill.List()
			require.NoError(t, err)
			assert.Empty(t, files)
			assert.Equal(t, 1, left.Closes)
			assert.Equal(t, 1, right.Closes)
		})
	}
}

func TestJoin_InputFailure(t *testing.T) {
	ltd := exectest.IntSchema("L", "a")
	rtd := exectest.IntSchema("R", "a")
	boom := errors.New("right input broke")

	for _, m := range allMethods {
		t.Run(m.String(), func(t *testing.T) {
			env := execution.NewEnv(exectest.PageSizeFor(ltd, 1), spill.NewMemManager())
			left := exectest.Source(env, "L", ltd, exectest.Column(1, 2, 3))
			right := exectest.FailAfter(exectest.Source(env, "R", rtd, exectest.Column(1, 2, 3)), 2, boom)

			op, err := New(m, left, right, On(0, 0), 3, env)
			require.NoError(t, err)

			_, err = iterator.Run(op)
			require.ErrorIs(t, err, boom)

			files, err := env.Spill.List()
			require.NoError(t, err)
			assert.Empty(t, files)
		})
	}
}

// ============================================================================
// Scenario files
// ============================================================================

// TestJoin_DataDriven runs testdata/join. Commands:
//
//	join method=<smj|bnlj|nlj> buffers=<B> per-page=<n>
//
// The input holds a "left:" and a "right:" line of join key values. The
// output lists the joined rows in sorted order.
func TestJoin_DataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/join", func(t *testing.T, d *datadriven.TestData) string {
		if d.Cmd != "join" {
			d.Fatalf(t, "unknown command %s", d.Cmd)
		}

		method, buffers, perPage := primitives.BlockNestedJoin, 3, 1
		for _, arg := range d.CmdArgs {
			switch arg.Key {
			case "method":
				m, ok := primitives.ParseJoinMethod(arg.Vals[0])
				if !ok {
					d.Fatalf(t, "unknown method %s", arg.Vals[0])
				}
				method = m
			case "buffers":
				buffers = atoi(t, arg.Vals[0])
			case "per-page":
				perPage = atoi(t, arg.Vals[0])
			}
		}

		var in joinInput
		for _, line := range strings.Split(d.Input, "\n") {
			side, values, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			var col []int64
			for _, f := range strings.Fields(values) {
				col = append(col, int64(atoi(t, f)))
			}
			switch strings.TrimSpace(side) {
			case "left":
				in.left = exectest.Column(col...)
			case "right":
				in.right = exectest.Column(col...)
			}
		}

		ltd := exectest.IntSchema("L", "a")
		rtd := exectest.IntSchema("R", "a")
		env := execution.NewEnv(exectest.PageSizeFor(ltd, perPage), spill.NewMemManager())
		op, err := New(method, exectest.Source(env, "L", ltd, in.left), exectest.Source(env, "R", rtd, in.right), On(0, 0), buffers, env)
		if err != nil {
			return fmt.Sprintf("error: %v\n", err)
		}
		got, err := iterator.Run(op)
		if err != nil {
			return fmt.Sprintf("error: %v\n", err)
		}

		rows := exectest.Values(got)
		slices.SortFunc(rows, slices.Compare)
		var b strings.Builder
		for _, row := range rows {
			fmt.Fprintf(&b, "%d %d\n", row[0], row[1])
		}
		if len(rows) == 0 {
			b.WriteString("(empty)\n")
		}
		return b.String()
	})
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	v, err := strconv.Atoi(s)
	require.NoError(t, err)
	return v
}
