package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// LogLevel represents logging verbosity
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var slogLevels = map[LogLevel]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputPath string    // empty for stderr
	Format     string    // "json" or "text"
	Writer     io.Writer // overrides OutputPath when set
}

// state is the process-wide logger. A nil logger means Init has not run.
var state struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *os.File
}

// ParseLevel maps a case-insensitive level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if l == "WARNING" {
		return LevelWarn
	}
	if _, ok := slogLevels[l]; ok {
		return l
	}
	return LevelInfo
}

// Init installs the global logger. It fails if a logger is already installed;
// call Close first to replace it.
//
//	logging.Init(logging.Config{Level: logging.LevelDebug, OutputPath: "logs/qp.log", Format: "json"})
func Init(config Config) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.logger != nil {
		return errors.New("logger already initialized; call Close() first to reinitialize")
	}

	w := config.Writer
	if w == nil && config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		state.file = f
		w = f
	}
	if w == nil {
		w = os.Stderr
	}

	state.logger = newLogger(w, config.Format, slogLevels[ParseLevel(string(config.Level))])
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Close releases the log file, if any, and uninstalls the logger.
// Calling it without a logger installed is a no-op.
func Close() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	var err error
	if state.file != nil {
		err = state.file.Close()
		state.file = nil
	}
	state.logger = nil
	return err
}

// GetLogger returns the installed logger. Before Init it installs an INFO
// text logger on stderr.
func GetLogger() *slog.Logger {
	state.mu.RLock()
	l := state.logger
	state.mu.RUnlock()
	if l != nil {
		return l
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.logger == nil {
		state.logger = newLogger(os.Stderr, "text", slog.LevelInfo)
	}
	return state.logger
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }
