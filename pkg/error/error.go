package error

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorCategory classifies errors by their nature and appropriate handling strategy.
type ErrorCategory int

const (
	// ErrCategoryResource represents failures of the storage underneath the
	// executor: run files that cannot be created, written, read or removed, and
	// statistics files that cannot be opened. These abort the query.
	ErrCategoryResource ErrorCategory = iota

	// ErrCategoryInfeasible represents requests that cannot be satisfied under
	// the given budget, such as an operator constructed with too few buffers.
	ErrCategoryInfeasible

	// ErrCategoryLogical represents programming or plan errors: field positions
	// out of range, invalid group-by projections, operators used out of order.
	ErrCategoryLogical

	// ErrCategoryFormat represents malformed input files: statistics, plans,
	// table data.
	ErrCategoryFormat
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryInfeasible:
		return "infeasible"
	case ErrCategoryLogical:
		return "logical"
	case ErrCategoryFormat:
		return "format"
	default:
		return "unknown"
	}
}

// Error codes shared across packages.
const (
	CodeBufferTooSmall  = "BUFFER_TOO_SMALL"
	CodeSpillIO         = "SPILL_IO"
	CodeStatsMissing    = "STATS_MISSING"
	CodeStatsMalformed  = "STATS_MALFORMED"
	CodeInvalidField    = "INVALID_FIELD"
	CodeInvalidGroupBy  = "INVALID_GROUP_BY"
	CodeOperatorState   = "OPERATOR_STATE"
	CodePlanFormat      = "PLAN_FORMAT"
	CodeTableData       = "TABLE_DATA"
	CodeUnknownOperator = "UNKNOWN_OPERATOR"
	CodeNoEstimate      = "NO_ESTIMATE"
	CodeInvalidConfig   = "INVALID_CONFIG"
)

// Sentinels usable with errors.Is through any DBError chain.
var (
	ErrBufferTooSmall = errors.New("buffer budget too small")
	ErrNotOpen        = errors.New("operator is not open")
)

// DBError represents a structured error with context about where it arose.
type DBError struct {
	// Code is a unique identifier for this error type (e.g., "SPILL_IO").
	Code string

	// Category classifies the error for appropriate handling strategy.
	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides additional context about the specific error instance.
	Detail string

	// Hint suggests how the user might fix or work around this error.
	Hint string

	// Operation identifies the operation being performed, e.g. "MergeRuns".
	Operation string

	// Component identifies where the error originated, e.g. "ExternalSort".
	Component string

	// Cause is the underlying error that triggered this error.
	Cause error
}

// New creates a new DBError with the specified code, category, and message.
// The returned error carries a stack trace.
func New(category ErrorCategory, code, message string) error {
	return errors.WithStackDepth(&DBError{
		Code:     code,
		Category: category,
		Message:  message,
	}, 1)
}

// Newf is New with a formatted message.
func Newf(category ErrorCategory, code, format string, args ...any) error {
	return errors.WithStackDepth(&DBError{
		Code:     code,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}, 1)
}

// NewWithCause creates a DBError whose Cause is cause, typically one of the
// sentinels above, so errors.Is matches it.
func NewWithCause(category ErrorCategory, code string, cause error, format string, args ...any) error {
	return errors.WithStackDepth(&DBError{
		Code:     code,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}, 1)
}

// Wrap wraps an existing error with context information.
// If the error already contains a DBError, that error is enriched with
// operation and component context (only if not already set) and returned
// unchanged otherwise.
func Wrap(err error, category ErrorCategory, code, operation, component string) error {
	if err == nil {
		return nil
	}

	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return err
	}

	return errors.WithStackDepth(&DBError{
		Code:      code,
		Category:  category,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
	}, 1)
}

// CategoryOf returns the category of the first DBError in err's chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Category, true
	}
	return 0, false
}

// HasCategory reports whether err carries a DBError of the given category.
func HasCategory(err error, category ErrorCategory) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}

// CodeOf returns the code of the first DBError in err's chain, or "".
func CodeOf(err error) string {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return ""
}

// Error implements the standard Go error interface
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}

	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation: %s", e.Operation)
		if e.Component != "" {
			fmt.Fprintf(&b, ", component: %s", e.Component)
		}
		b.WriteString(")")
	}

	if e.Cause != nil && e.Cause.Error() != e.Message {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause error, enabling error chain traversal
// with errors.Is and errors.As.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for err, if one was
// captured anywhere in its chain.
func FormatStack(err error) string {
	if st := errors.GetReportableStackTrace(err); st != nil {
		var b strings.Builder
		b.WriteString("Stack trace:\n")
		for i := len(st.Frames) - 1; i >= 0; i-- {
			f := st.Frames[i]
			fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.Filename, f.Lineno)
		}
		return b.String()
	}
	return ""
}
