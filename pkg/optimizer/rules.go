package optimizer

import (
	"math/rand"

	"queryproc/pkg/plan"
	"queryproc/pkg/primitives"
)

// Rule is a transformation that turns a plan into a neighboring plan by
// rewriting one join.
type Rule int

const (
	RuleMethod Rule = iota
	RuleCommute
	RuleAssociate
	RuleExchange
)

// NumRules is the number of rewrite rules a neighbor is drawn from.
const NumRules = 4

func (r Rule) String() string {
	switch r {
	case RuleMethod:
		return "method"
	case RuleCommute:
		return "commute"
	case RuleAssociate:
		return "associate"
	case RuleExchange:
		return "exchange"
	default:
		return "unknown"
	}
}

// Neighbor returns a copy of root with one random rule applied to one random
// join. root itself is never modified. A rule that does not apply leaves the
// copy equal to root.
func Neighbor(root plan.Node, numJoins int, rng *rand.Rand) plan.Node {
	next := root.Clone()
	if numJoins <= 0 {
		return next
	}
	index := rng.Intn(numJoins)
	Apply(next, Rule(rng.Intn(NumRules)), index, rng)
	return next
}

// Apply rewrites the join numbered index in place and reports whether the
// tree changed.
func Apply(root plan.Node, rule Rule, index int, rng *rand.Rand) bool {
	switch rule {
	case RuleMethod:
		return ChangeMethod(root, index, rng)
	case RuleCommute:
		return Commute(root, index)
	case RuleAssociate:
		return Associate(root, index, rng)
	case RuleExchange:
		return Exchange(root, index, rng)
	default:
		return false
	}
}

// ChangeMethod replaces the algorithm of a join with a different one chosen
// uniformly.
func ChangeMethod(root plan.Node, index int, rng *rand.Rand) bool {
	j := plan.FindJoin(root, index)
	if j == nil {
		return false
	}
	m := primitives.JoinMethod(rng.Intn(primitives.NumJoinMethods - 1))
	if m >= j.Method {
		m++
	}
	j.Method = m
	return true
}

// Commute swaps the inputs of a join: A ⋈ B becomes B ⋈ A.
func Commute(root plan.Node, index int) bool {
	j := plan.FindJoin(root, index)
	if j == nil {
		return false
	}
	j.Left, j.Right = j.Right, j.Left
	j.FlipConditions()
	return true
}

// Associate regroups a join with a child join. With a join on the left it
// rotates (A⋈B)⋈C to A⋈(B⋈C) or B⋈(A⋈C); with a join on the right it rotates
// A⋈(B⋈C) to (A⋈B)⋈C or (A⋈C)⋈B. The target is chosen by where the first
// condition's attribute lives; the rule does nothing when any other condition
// would end up on the wrong inputs. With joins on both sides a coin flip
// picks the direction.
func Associate(root plan.Node, index int, rng *rand.Rand) bool {
	op := plan.FindJoin(root, index)
	if op == nil {
		return false
	}
	left, leftIsJoin := op.Left.(*plan.JoinNode)
	right, rightIsJoin := op.Right.(*plan.JoinNode)

	switch {
	case leftIsJoin && rightIsJoin:
		if rng.Intn(2) == 0 {
			return rotateRight(op, left)
		}
		return rotateLeft(op, right)
	case leftIsJoin:
		return rotateRight(op, left)
	case rightIsJoin:
		return rotateLeft(op, right)
	default:
		return false
	}
}

// Exchange swaps a join's input with a grandchild. It is commutation,
// association and commutation of the same join index. When association does
// not apply the two commutations cancel out and it reports false.
func Exchange(root plan.Node, index int, rng *rand.Rand) bool {
	if !Commute(root, index) {
		return false
	}
	changed := Associate(root, index, rng)
	Commute(root, index)
	return changed
}

// rotateRight rewrites op = (A ⋈ B) ⋈ C where lower = A ⋈ B. The new lower
// join takes op's conditions, method and index; op takes lower's.
func rotateRight(op, lower *plan.JoinNode) bool {
	a, b, c := lower.Left, lower.Right, op.Right

	var keep, moved plan.Node
	switch {
	case len(op.Conditions) == 0 || plan.HasAttr(b, op.Conditions[0].Left):
		// A ⋈ (B ⋈ C)
		keep, moved = a, b
	default:
		// B ⋈ (A ⋈ C)
		keep, moved = b, a
	}
	if !conditionsFit(op.Conditions, moved, c) {
		return false
	}

	upper := lower.Conditions
	if keep == b {
		upper = flipped(upper)
	}
	upperMethod, upperIndex := lower.Method, lower.Index

	lower.Left, lower.Right = moved, c
	lower.Conditions = op.Conditions
	lower.Method, lower.Index = op.Method, op.Index

	op.Left, op.Right = keep, lower
	op.Conditions = upper
	op.Method, op.Index = upperMethod, upperIndex
	return true
}

// rotateLeft rewrites op = A ⋈ (B ⋈ C) where lower = B ⋈ C.
func rotateLeft(op, lower *plan.JoinNode) bool {
	a, b, c := op.Left, lower.Left, lower.Right

	var keep, moved plan.Node
	switch {
	case len(op.Conditions) == 0 || plan.HasAttr(b, op.Conditions[0].Right):
		// (A ⋈ B) ⋈ C
		keep, moved = c, b
	default:
		// (A ⋈ C) ⋈ B
		keep, moved = b, c
	}
	if !conditionsFit(op.Conditions, a, moved) {
		return false
	}

	upper := lower.Conditions
	if keep == b {
		upper = flipped(upper)
	}
	upperMethod, upperIndex := lower.Method, lower.Index

	lower.Left, lower.Right = a, moved
	lower.Conditions = op.Conditions
	lower.Method, lower.Index = op.Method, op.Index

	op.Left, op.Right = lower, keep
	op.Conditions = upper
	op.Method, op.Index = upperMethod, upperIndex
	return true
}

// conditionsFit reports whether every condition joins an attribute of left
// with one of right.
func conditionsFit(conds []plan.Condition, left, right plan.Node) bool {
	for _, c := range conds {
		if !plan.HasAttr(left, c.Left) || !plan.HasAttr(right, c.Right) {
			return false
		}
	}
	return true
}

func flipped(conds []plan.Condition) []plan.Condition {
	out := make([]plan.Condition, len(conds))
	for i, c := range conds {
		out[i] = c.Flip()
	}
	return out
}
