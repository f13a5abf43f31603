package primitives

import "strings"

// JoinMethod selects the physical algorithm of a join node. The numeric
// values are stable: the optimizer draws them uniformly from [0, NumJoinMethods).
type JoinMethod int

const (
	SortMergeJoin JoinMethod = iota
	BlockNestedJoin
	NestedLoopJoin
)

// NumJoinMethods is the number of physical join algorithms available.
const NumJoinMethods = 3

func (m JoinMethod) String() string {
	switch m {
	case SortMergeJoin:
		return "SortMerge"
	case BlockNestedJoin:
		return "BlockNested"
	case NestedLoopJoin:
		return "NestedLoop"
	default:
		return "Unknown"
	}
}

// ParseJoinMethod accepts the method names used in plan files and on the
// command line, case-insensitively.
func ParseJoinMethod(s string) (JoinMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sortmerge", "sort_merge", "smj":
		return SortMergeJoin, true
	case "blocknested", "block_nested", "bnlj":
		return BlockNestedJoin, true
	case "nested", "nestedloop", "nested_loop", "nlj":
		return NestedLoopJoin, true
	default:
		return 0, false
	}
}
