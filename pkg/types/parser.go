package types

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseField reads one serialized field of the given type from r.
// width is the declared byte width of string columns (without the length
// prefix); it is ignored for numeric types.
//
// Parameters:
//   - r: The io.Reader to read the serialized field data from
//   - fieldType: The Type of field to parse
//   - width: string payload width; 0 selects StringMaxSize
//
// Returns:
//   - Field: The parsed field instance of the appropriate type
//   - error: io.EOF / io.ErrUnexpectedEOF from r, or an unsupported type error
func ParseField(r io.Reader, fieldType Type, width uint32) (Field, error) {
	switch fieldType {
	case IntType:
		v, err := readUint(r, 8)
		if err != nil {
			return nil, err
		}
		return NewIntField(int64(v)), nil // #nosec G115

	case FloatType:
		v, err := readUint(r, 8)
		if err != nil {
			return nil, err
		}
		return NewFloatField(math.Float64frombits(v)), nil

	case StringType:
		return parseStringField(r, width)

	default:
		return nil, fmt.Errorf("unsupported field type: %v", fieldType)
	}
}

// parseStringField reads a length-prefixed, zero-padded string of the given width.
func parseStringField(r io.Reader, width uint32) (*StringField, error) {
	if width == 0 {
		width = StringMaxSize
	}

	length, err := readUint(r, 4)
	if err != nil {
		return nil, err
	}
	if length > uint64(width) {
		return nil, fmt.Errorf("string length %d exceeds column width %d", length, width)
	}

	data := make([]byte, width)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return NewStringField(string(data[:length]), int(width)), nil
}

// ParseConstant builds a field of type t from its textual form, as found in
// CSV rows and plan-file predicates.
func ParseConstant(t Type, constant string, width uint32) (Field, error) {
	switch t {
	case IntType:
		v, err := strconv.ParseInt(strings.TrimSpace(constant), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", constant, err)
		}
		return NewIntField(v), nil

	case FloatType:
		v, err := strconv.ParseFloat(strings.TrimSpace(constant), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", constant, err)
		}
		return NewFloatField(v), nil

	case StringType:
		return NewStringField(constant, int(width)), nil

	default:
		return nil, fmt.Errorf("unsupported field type: %v", t)
	}
}
