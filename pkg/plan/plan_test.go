package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dberror "queryproc/pkg/error"
	"queryproc/pkg/primitives"
	"queryproc/pkg/tuple"
	"queryproc/pkg/types"
)

func table(name string, cols ...string) *ScanNode {
	fields := make([]tuple.FieldDesc, len(cols))
	for i, c := range cols {
		fields[i] = tuple.FieldDesc{Name: name + "." + c, Type: types.IntType}
	}
	return NewScan(name, tuple.MustSchema(fields...))
}

// threeWay builds Project(R.a, T.c) over (R ⋈ S) ⋈ T.
func threeWay() Node {
	rs := NewJoin(table("R", "a", "x"), table("S", "a", "b"), primitives.BlockNestedJoin, Condition{"R.a", "S.a"})
	rst := NewJoin(rs, table("T", "b", "c"), primitives.SortMergeJoin, Condition{"S.b", "T.b"})
	root := NewProject(rst, "R.a", "T.c")
	NumberJoins(root)
	return root
}

// ============================================================================
// Tree helpers
// ============================================================================

func TestNumberAndFindJoins(t *testing.T) {
	root := threeWay()

	assert.Equal(t, 2, CountJoins(root))
	top := FindJoin(root, 0)
	require.NotNil(t, top)
	assert.Equal(t, primitives.SortMergeJoin, top.Method)

	bottom := FindJoin(root, 1)
	require.NotNil(t, bottom)
	assert.Equal(t, []Condition{{"R.a", "S.a"}}, bottom.Conditions)

	assert.Nil(t, FindJoin(root, 2))
	assert.Equal(t, []string{"R", "S", "T"}, Tables(root))
}

func TestSchemas(t *testing.T) {
	root := threeWay()
	join := FindJoin(root, 0)

	assert.Equal(t, []string{"R.a", "R.x", "S.a", "S.b", "T.b", "T.c"}, join.Schema().FieldNames)
	assert.Equal(t, []string{"R.a", "T.c"}, root.Schema().FieldNames)

	gb := NewGroupBy(table("R", "a", "x"), []string{"R.a"}, []string{"a"})
	assert.Equal(t, []string{"R.a"}, gb.Schema().FieldNames)
}

func TestClone_IsDeep(t *testing.T) {
	root := threeWay()
	clone := root.Clone()
	require.Equal(t, Format(root), Format(clone))

	j := FindJoin(clone, 0)
	j.Method = primitives.NestedLoopJoin
	j.Left, j.Right = j.Right, j.Left
	j.FlipConditions()

	orig := FindJoin(root, 0)
	assert.Equal(t, primitives.SortMergeJoin, orig.Method)
	assert.Equal(t, []Condition{{"S.b", "T.b"}}, orig.Conditions)
	assert.Equal(t, []Condition{{"T.b", "S.b"}}, j.Conditions)
	assert.NotEqual(t, Format(root), Format(clone))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(threeWay()))

	bad := NewJoin(table("R", "a"), table("S", "a"), primitives.SortMergeJoin, Condition{"S.a", "R.a"})
	err := Validate(bad)
	require.Error(t, err)
	assert.True(t, dberror.HasCategory(err, dberror.ErrCategoryLogical))

	assert.Error(t, Validate(NewSelect(table("R", "a"), "R.zz", primitives.Equals, "1")))
	assert.Error(t, Validate(NewProject(table("R", "a"))))
	assert.NoError(t, Validate(NewSort(table("R", "a", "b"), SortKey{Attr: "b", Descending: true})))
}

func TestFormat(t *testing.T) {
	want := "Project(R.a, T.c)\n" +
		"  Join#0[SortMerge](S.b = T.b)\n" +
		"    Join#1[BlockNested](R.a = S.a)\n" +
		"      Scan(R)\n" +
		"      Scan(S)\n" +
		"    Scan(T)\n"
	assert.Equal(t, want, Format(threeWay()))
}
