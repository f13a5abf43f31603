package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/execution"
	"queryproc/pkg/execution/exectest"
	"queryproc/pkg/iterator"
	"queryproc/pkg/primitives"
	"queryproc/pkg/spill"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

func orders() *tuple.TupleDescription {
	return tuple.MustSchema(
		tuple.FieldDesc{Name: "O.id", Type: types.IntType, PrimaryKey: true},
		tuple.FieldDesc{Name: "O.customer", Type: types.IntType},
		tuple.FieldDesc{Name: "O.amount", Type: types.IntType},
	)
}

var orderRows = [][]int64{
	{1, 20, 5},
	{2, 10, 7},
	{3, 20, 1},
	{4, 30, 9},
	{5, 10, 2},
	{6, 20, 4},
}

func cols(c ...primitives.ColumnID) []primitives.ColumnID { return c }

// ============================================================================
// GROUP BY TESTS
// ============================================================================

func TestGroupBy_OneRowPerGroup(t *testing.T) {
	td := orders()
	env := execution.NewEnv(exectest.PageSizeFor(td, 1), spill.NewMemManager())

	g, err := NewGroupBy(exectest.Source(env, "O", td, orderRows), cols(1), cols(1), 2, env)
	require.NoError(t, err)

	got, err := iterator.Run(g)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{10}, {20}, {30}}, exectest.Values(got))
	assert.Equal(t, 1, g.GetTupleDesc().NumFields())
	assert.Equal(t, "O.customer", g.GetTupleDesc().FieldNames[0])

	files, err := env.Spill.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGroupBy_MultipleFields(t *testing.T) {
	td := exectest.IntSchema("T", "a", "b", "c")
	env := execution.NewEnv(exectest.PageSizeFor(td, 2), spill.NewMemManager())
	rows := [][]int64{{1, 1, 0}, {1, 2, 0}, {1, 1, 5}, {2, 1, 0}, {1, 2, 9}}

	g, err := NewGroupBy(exectest.Source(env, "T", td, rows), cols(0, 1), cols(1, 0), 3, env)
	require.NoError(t, err)

	got, err := iterator.Run(g)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1}, {2, 1}, {1, 2}}, exectest.Values(got))
}

func TestGroupBy_PrimaryKeyAllowsAnyProjection(t *testing.T) {
	td := orders()
	env := execution.NewEnv(exectest.PageSizeFor(td, 2), spill.NewMemManager())

	g, err := NewGroupBy(exectest.Source(env, "O", td, orderRows), cols(0), cols(0, 2), 2, env)
	require.NoError(t, err)

	got, err := iterator.Run(g)
	require.NoError(t, err)
	assert.Len(t, got, len(orderRows))
	assert.Equal(t, []int64{1, 5}, exectest.Values(got)[0])
}

func TestGroupBy_Validation(t *testing.T) {
	td := orders()
	env := execution.NewEnv(0, nil)

	tests := []struct {
		name    string
		groupBy []primitives.ColumnID
		project []primitives.ColumnID
		code    string
	}{
		{"ungrouped projection", cols(1), cols(1, 2), dberror.CodeInvalidGroupBy},
		{"no group fields", nil, cols(1), dberror.CodeInvalidGroupBy},
		{"field out of range", cols(1), cols(7), dberror.CodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGroupBy(exectest.Source(env, "O", td, nil), tt.groupBy, tt.project, 3, env)
			require.Error(t, err)
			assert.True(t, dberror.HasCategory(err, dberror.ErrCategoryLogical))
			assert.Equal(t, tt.code, dberror.CodeOf(err))
		})
	}
}
