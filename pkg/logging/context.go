package logging

import (
	"log/slog"
)

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("optimizer")
//	log.Info("search finished")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithOperator creates a logger tagged with a physical operator name and the
// instance id that also appears in its spill file names.
//
// Example:
//
//	log := logging.WithOperator("ExternalSort", id)
//	log.Debug("run generated", "pages", n)
func WithOperator(operator, instance string) *slog.Logger {
	return GetLogger().With("operator", operator, "instance", instance)
}

// WithRun creates a logger with run file context.
//
// Example:
//
//	log := logging.WithRun(path)
//	log.Debug("run removed")
func WithRun(path string) *slog.Logger {
	return GetLogger().With("run", path)
}

// WithJoin creates a logger scoped to one join node of a plan.
//
// Example:
//
//	log := logging.WithJoin(2)
//	log.Debug("method changed", "method", m)
func WithJoin(index int) *slog.Logger {
	return GetLogger().With("join", index)
}

// WithTable tags statistics and table source logs with a table name.
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}
