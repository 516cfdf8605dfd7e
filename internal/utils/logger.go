package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Log formats accepted by Configure.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Logger is the process-wide logger. Messages go through zerolog; verbose mode
// lowers the level to debug.
type Logger struct {
	mu      sync.RWMutex
	zl      zerolog.Logger
	level   zerolog.Level
	verbose bool
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = newLogger(os.Stderr, zerolog.InfoLevel, LogFormatText)
	})
	return loggerInstance
}

func newLogger(w io.Writer, level zerolog.Level, format string) *Logger {
	return &Logger{zl: NewZerolog(w, format).Level(level), level: level}
}

// NewZerolog builds a zerolog.Logger writing to w. The text format uses the
// console writer; anything else writes JSON lines.
func NewZerolog(w io.Writer, format string) zerolog.Logger {
	if strings.EqualFold(format, LogFormatJSON) {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(cw).With().Timestamp().Logger()
}

// ParseLevel converts a config level name. Empty text means info.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Configure replaces the output, level and format of the global logger.
func Configure(w io.Writer, level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l := GetLogger()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
	l.zl = NewZerolog(w, format).Level(l.effectiveLevel())
	return nil
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose switches debug output on or off.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	l.zl = l.zl.Level(l.effectiveLevel())
}

func (l *Logger) effectiveLevel() zerolog.Level {
	if l.verbose && l.level > zerolog.DebugLevel {
		return zerolog.DebugLevel
	}
	return l.level
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Zerolog returns the underlying logger for components that log structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

// formatMessage formats a message with optional printf-style arguments.
func formatMessage(msgOrFormat string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msgOrFormat, args...)
	}
	return msgOrFormat
}

// Debug logs a debug message (only shown when verbose=true or level is debug).
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	zl := l.Zerolog()
	zl.Debug().Msg(formatMessage(msgOrFormat, args...))
}

// Info logs an info message.
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	zl := l.Zerolog()
	zl.Info().Msg(formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	zl := l.Zerolog()
	zl.Warn().Msg(formatMessage(msgOrFormat, args...))
}

// Error logs an error message.
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	zl := l.Zerolog()
	zl.Error().Msg(formatMessage(msgOrFormat, args...))
}

// Debugf is a convenience function that logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function that logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function that logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function that logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}
