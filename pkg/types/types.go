package types

// Type identifies the storage type of a field.
type Type int

const (
	IntType Type = iota
	FloatType
	StringType
)

// StringMaxSize is the default byte width of a string column when the schema
// does not declare one.
const StringMaxSize = 32

// Size returns the default serialized width in bytes of a value of this type.
// String widths include the 4-byte length prefix.
func (t Type) Size() uint32 {
	switch t {
	case IntType, FloatType:
		return 8
	case StringType:
		return 4 + StringMaxSize
	default:
		return 0
	}
}

// String returns a string representation of the type
func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case FloatType:
		return "FLOAT_TYPE"
	case StringType:
		return "STRING_TYPE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// ParseType maps a lower-case type name as written in plan files ("int",
// "float", "string") to its Type.
func ParseType(name string) (Type, bool) {
	switch name {
	case "int", "integer":
		return IntType, true
	case "float", "double", "real":
		return FloatType, true
	case "string", "char", "varchar", "text":
		return StringType, true
	default:
		return 0, false
	}
}
