package optimizer

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryproc/pkg/execution/exectest"
	"queryproc/pkg/plan"
	"queryproc/pkg/primitives"
)

var (
	schemaR = exectest.IntSchema("R", "a", "c")
	schemaS = exectest.IntSchema("S", "a", "b")
	schemaT = exectest.IntSchema("T", "b", "c")
	schemaU = exectest.IntSchema("U", "c", "d")
)

func scan(name string) plan.Node {
	switch name {
	case "R":
		return plan.NewScan("R", schemaR)
	case "S":
		return plan.NewScan("S", schemaS)
	case "T":
		return plan.NewScan("T", schemaT)
	default:
		return plan.NewScan("U", schemaU)
	}
}

func on(left, right string) plan.Condition {
	return plan.Condition{Left: left, Right: right}
}

func join(left, right plan.Node, conds ...plan.Condition) *plan.JoinNode {
	return plan.NewJoin(left, right, primitives.BlockNestedJoin, conds...)
}

func numbered(root plan.Node) plan.Node {
	plan.NumberJoins(root)
	return root
}

// shape renders the join order only: "((R S) T)".
func shape(n plan.Node) string {
	switch n := n.(type) {
	case *plan.JoinNode:
		return "(" + shape(n.Left) + " " + shape(n.Right) + ")"
	case *plan.ScanNode:
		return n.Table
	default:
		return shape(n.GetChildren()[0])
	}
}

// ============================================================================
// Commute / ChangeMethod
// ============================================================================

func TestCommute(t *testing.T) {
	root := numbered(join(scan("R"), scan("S"), on("R.a", "S.a")))

	require.True(t, Commute(root, 0))
	j := root.(*plan.JoinNode)
	assert.Equal(t, "(S R)", shape(root))
	assert.Equal(t, []plan.Condition{on("S.a", "R.a")}, j.Conditions)
	require.NoError(t, plan.Validate(root))

	assert.False(t, Commute(root, 7))
}

func TestChangeMethod_AlwaysPicksAnotherMethod(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	root := numbered(join(scan("R"), scan("S"), on("R.a", "S.a")))
	j := root.(*plan.JoinNode)

	seen := map[primitives.JoinMethod]bool{}
	for i := 0; i < 100; i++ {
		before := j.Method
		require.True(t, ChangeMethod(root, 0, rng))
		assert.NotEqual(t, before, j.Method)
		assert.Less(t, int(j.Method), primitives.NumJoinMethods)
		seen[j.Method] = true
	}
	assert.Len(t, seen, primitives.NumJoinMethods)
}

// ============================================================================
// Associate
// ============================================================================

func TestAssociate(t *testing.T) {
	tests := []struct {
		name       string
		root       func() plan.Node
		shape      string
		upper      []plan.Condition
		lower      []plan.Condition
		upperIndex int
	}{
		{
			name: "left join, top condition on B",
			root: func() plan.Node {
				return join(join(scan("R"), scan("S"), on("R.a", "S.a")), scan("T"), on("S.b", "T.b"))
			},
			shape:      "(R (S T))",
			upper:      []plan.Condition{on("R.a", "S.a")},
			lower:      []plan.Condition{on("S.b", "T.b")},
			upperIndex: 1,
		},
		{
			name: "left join, top condition on A",
			root: func() plan.Node {
				return join(join(scan("R"), scan("S"), on("R.a", "S.a")), scan("T"), on("R.c", "T.c"))
			},
			shape:      "(S (R T))",
			upper:      []plan.Condition{on("S.a", "R.a")},
			lower:      []plan.Condition{on("R.c", "T.c")},
			upperIndex: 1,
		},
		{
			name: "right join, top condition on B",
			root: func() plan.Node {
				return join(scan("R"), join(scan("S"), scan("T"), on("S.b", "T.b")), on("R.a", "S.a"))
			},
			shape:      "((R S) T)",
			upper:      []plan.Condition{on("S.b", "T.b")},
			lower:      []plan.Condition{on("R.a", "S.a")},
			upperIndex: 1,
		},
		{
			name: "right join, top condition on C",
			root: func() plan.Node {
				return join(scan("R"), join(scan("S"), scan("T"), on("S.b", "T.b")), on("R.c", "T.c"))
			},
			shape:      "((R T) S)",
			upper:      []plan.Condition{on("T.b", "S.b")},
			lower:      []plan.Condition{on("R.c", "T.c")},
			upperIndex: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := numbered(tt.root())
			require.True(t, Associate(root, 0, rand.New(rand.NewSource(1))))

			assert.Equal(t, tt.shape, shape(root))
			require.NoError(t, plan.Validate(root))

			top := root.(*plan.JoinNode)
			assert.Equal(t, tt.upper, top.Conditions)
			assert.Equal(t, tt.upperIndex, top.Index)

			lower := plan.FindJoin(root, 0)
			require.NotNil(t, lower)
			assert.Equal(t, tt.lower, lower.Conditions)
		})
	}
}

func TestAssociate_KeepsMethodsWithConditions(t *testing.T) {
	lower := join(scan("R"), scan("S"), on("R.a", "S.a"))
	lower.Method = primitives.SortMergeJoin
	top := join(lower, scan("T"), on("S.b", "T.b"))
	top.Method = primitives.NestedLoopJoin
	root := numbered(top)

	require.True(t, Associate(root, 0, rand.New(rand.NewSource(1))))
	assert.Equal(t, primitives.SortMergeJoin, root.(*plan.JoinNode).Method)
	assert.Equal(t, primitives.NestedLoopJoin, plan.FindJoin(root, 0).Method)
}

func TestAssociate_NotApplicable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	single := numbered(join(scan("R"), scan("S"), on("R.a", "S.a")))
	assert.False(t, Associate(single, 0, rng))
	assert.Equal(t, "(R S)", shape(single))

	// The first condition selects A ⋈ (B ⋈ C), where R.c is out of reach.
	mixed := numbered(join(
		join(scan("R"), scan("S"), on("R.a", "S.a")),
		scan("T"),
		on("S.b", "T.b"), on("R.c", "T.c"),
	))
	before := plan.Format(mixed)
	assert.False(t, Associate(mixed, 0, rng))
	assert.Equal(t, before, plan.Format(mixed))
}

func TestExchange(t *testing.T) {
	root := numbered(join(join(scan("R"), scan("S"), on("R.a", "S.a")), scan("T"), on("S.b", "T.b")))

	require.True(t, Exchange(root, 0, rand.New(rand.NewSource(1))))
	require.NoError(t, plan.Validate(root))
	assert.ElementsMatch(t, []string{"R", "S", "T"}, plan.Tables(root))
}

func TestExchange_NotApplicable(t *testing.T) {
	root := numbered(join(scan("R"), scan("S"), on("R.a", "S.a")))
	before := plan.Format(root)

	assert.False(t, Exchange(root, 0, rand.New(rand.NewSource(1))))
	assert.Equal(t, before, plan.Format(root))
	assert.False(t, Apply(root, RuleExchange, 0, rand.New(rand.NewSource(1))))
}

// ============================================================================
// Neighbor
// ============================================================================

func bushy() plan.Node {
	return numbered(join(
		join(scan("R"), scan("S"), on("R.a", "S.a")),
		join(scan("T"), scan("U"), on("T.c", "U.c")),
		on("S.b", "T.b"),
	))
}

func TestNeighbor_DoesNotModifyInput(t *testing.T) {
	root := bushy()
	before := plan.Format(root)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		Neighbor(root, 3, rng)
	}
	assert.Equal(t, before, plan.Format(root))
}

func TestNeighbor_RandomWalkKeepsPlanValid(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("rewrites preserve tables, conditions and join indices", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			current := bushy()
			for i := 0; i < 200; i++ {
				current = Neighbor(current, 3, rng)
				if plan.Validate(current) != nil {
					return false
				}
			}

			tables := plan.Tables(current)
			slices.Sort(tables)
			if !slices.Equal(tables, []string{"R", "S", "T", "U"}) {
				return false
			}

			var indices []int
			conds := 0
			for _, j := range plan.Joins(current) {
				indices = append(indices, j.Index)
				conds += len(j.Conditions)
			}
			slices.Sort(indices)
			return slices.Equal(indices, []int{0, 1, 2}) && conds == 3
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
