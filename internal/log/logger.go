// SPDX-License-Identifier: MIT
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps a LogLevel onto the slog scale. Fatal sits above Error.
func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

var (
	level   slog.LevelVar
	current LogLevel
	logger  *slog.Logger
)

func init() {
	SetOutput(os.Stderr)
	SetLevel(LevelInfo)
}

// SetOutput redirects all log output to w using a tint handler.
func SetOutput(w io.Writer) {
	logger = slog.New(tint.NewHandler(w, &tint.Options{
		Level:      &level,
		TimeFormat: "2006/01/02 15:04:05.000000",
	}))
}

// SetLevel sets the global logging level.
func SetLevel(l LogLevel) {
	current = l
	level.Set(l.slogLevel())
}

// GetLevel gets the current global logging level.
func GetLevel() LogLevel {
	return current
}

// Logger exposes the underlying structured logger for libraries that take a *slog.Logger.
func Logger() *slog.Logger {
	return logger
}

// --- Public Logging Functions ---

// logf formats only when the level is enabled.
func logf(l slog.Level, format string, v []any) {
	ctx := context.Background()
	if !logger.Enabled(ctx, l) {
		return
	}
	logger.Log(ctx, l, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) { logf(slog.LevelDebug, format, v) }
func Infof(format string, v ...any)  { logf(slog.LevelInfo, format, v) }
func Warnf(format string, v ...any)  { logf(slog.LevelWarn, format, v) }
func Errorf(format string, v ...any) { logf(slog.LevelError, format, v) }

// Fatalf logs at fatal level, which is never filtered, and exits with status 1.
func Fatalf(format string, v ...any) {
	logf(LevelFatal.slogLevel(), format, v)
	os.Exit(1)
}

func Debug(v ...any) { logger.Debug(fmt.Sprint(v...)) }
func Info(v ...any)  { logger.Info(fmt.Sprint(v...)) }
func Warn(v ...any)  { logger.Warn(fmt.Sprint(v...)) }
func Error(v ...any) { logger.Error(fmt.Sprint(v...)) }
