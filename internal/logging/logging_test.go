package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "Debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "Info", input: "info", expected: LevelInfo, ok: true},
		{name: "Warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "Warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "Error", input: "error", expected: LevelError, ok: true},
		{name: "Case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "Surrounding space", input: "  error ", expected: LevelError, ok: true},
		{name: "Empty falls back to info", input: "", expected: LevelInfo, ok: false},
		{name: "Unknown falls back to info", input: "verbose", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestComponentLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	// Error is emitted at every level, so this does not depend on LOG_LEVEL.
	For("pipeline").Error("decode failed for %s", "a.cr2")

	out := buf.String()
	if !strings.Contains(out, "[ERROR] [pipeline] decode failed for a.cr2") {
		t.Errorf("Expected component prefix in output, got %q", out)
	}
}

func TestZeroLoggerHasNoPrefix(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	For("").Error("plain")

	if strings.Contains(buf.String(), "[]") {
		t.Errorf("Empty component should not produce an empty tag, got %q", buf.String())
	}
}

func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "Debug doesn't panic", fn: func() { Debug("test message") }},
		{name: "Info doesn't panic", fn: func() { Info("test %s %d", "message", 123) }},
		{name: "Warn doesn't panic", fn: func() { Warn("test message") }},
		{name: "Error doesn't panic", fn: func() { Error("test message") }},
		{name: "Logger.Debug doesn't panic", fn: func() { For("x").Debug("test") }},
		{name: "Logger.Info doesn't panic", fn: func() { For("x").Info("test %d", 1) }},
		{name: "Logger.Warn doesn't panic", fn: func() { For("x").Warn("test") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Function panicked: %v", r)
				}
			}()
			tt.fn()
		})
	}
}
