package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// ParseLevel converts a level name to a LogLevel. Unknown names map to
// LevelInfo and ok is false.
func ParseLevel(name string) (level LogLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func initLevel() {
	levelOnce.Do(func() {
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				currentLevel = LevelDebug
				return
			}
		}
		currentLevel, _ = ParseLevel(os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func output(level LogLevel, tag, format string, args ...interface{}) {
	if GetLevel() <= level {
		log.Printf(tag+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	output(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	output(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	output(LevelWarn, "[WARN] ", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	output(LevelError, "[ERROR] ", format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Logger tags every message with a component name. The zero value logs
// without a tag.
type Logger struct {
	prefix string
}

// For returns a Logger for the named component.
func For(component string) Logger {
	if component == "" {
		return Logger{}
	}
	return Logger{prefix: "[" + component + "] "}
}

// Debug logs a debug message for the component.
func (l Logger) Debug(format string, args ...interface{}) {
	output(LevelDebug, "[DEBUG] "+l.prefix, format, args...)
}

// Info logs an info message for the component.
func (l Logger) Info(format string, args ...interface{}) {
	output(LevelInfo, "[INFO] "+l.prefix, format, args...)
}

// Warn logs a warning for the component.
func (l Logger) Warn(format string, args ...interface{}) {
	output(LevelWarn, "[WARN] "+l.prefix, format, args...)
}

// Error logs an error for the component.
func (l Logger) Error(format string, args ...interface{}) {
	output(LevelError, "[ERROR] "+l.prefix, format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
