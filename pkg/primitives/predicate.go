package primitives

import "strings"

type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="

	case LessThan:
		return "<"

	case GreaterThan:
		return ">"

	case LessThanOrEqual:
		return "<="

	case GreaterThanOrEqual:
		return ">="

	case NotEqual:
		return "!="

	default:
		return "UNKNOWN"
	}
}

// ParsePredicate accepts the textual operator forms used in plan files.
func ParsePredicate(s string) (Predicate, bool) {
	switch strings.TrimSpace(s) {
	case "=", "==":
		return Equals, true
	case "<":
		return LessThan, true
	case ">":
		return GreaterThan, true
	case "<=":
		return LessThanOrEqual, true
	case ">=":
		return GreaterThanOrEqual, true
	case "!=", "<>":
		return NotEqual, true
	default:
		return 0, false
	}
}
