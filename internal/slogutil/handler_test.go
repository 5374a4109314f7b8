package slogutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTextHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Recorded revision", "sha1", "abc123", "files", 3)

	output := buf.String()

	for _, want := range []string{"[info]", "Recorded revision", " | ", "sha1=abc123", "files=3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestTextHandler_QuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("msg", "path", "src/my file.php", "error", errors.New("no such file"))

	output := buf.String()
	if !strings.Contains(output, `path="src/my file.php"`) {
		t.Errorf("expected quoted path, got: %s", output)
	}
	if !strings.Contains(output, `error="no such file"`) {
		t.Errorf("expected quoted error, got: %s", output)
	}
}

func TestTextHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, slog.LevelDebug)
			tt.logFunc(logger)

			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestTextHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message should be included")
	}
}

func TestTextHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("run", "r1").WithGroup("store")

	logger.Info("opened", "path", "facts.db")

	output := buf.String()
	if !strings.Contains(output, "run=r1") {
		t.Errorf("expected pre-set attr, got: %s", output)
	}
	if !strings.Contains(output, "store.path=facts.db") {
		t.Errorf("expected grouped key, got: %s", output)
	}
}

func TestTextHandler_ShortensSHA(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Mining revision", "sha1", "9fceb02d0ae598e95dc970b74767f19372d61af8", "message", "9fceb02d0ae598e95dc970b74767f19372d61af8")

	output := buf.String()
	if !strings.Contains(output, "sha1=9fceb02d0ae5 ") {
		t.Errorf("expected shortened sha1, got: %s", output)
	}
	if !strings.Contains(output, "message=9fceb02d0ae598e95dc970b74767f19372d61af8") {
		t.Errorf("only sha keys are shortened, got: %s", output)
	}
}

func TestTextHandler_SlicesAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Attributed", "files", []string{"a.php", "b.php"},
		slog.Group("run", "recorded", 2, "skipped", 1), "empty", "")

	output := buf.String()
	for _, want := range []string{"files=[a.php,b.php]", "run.recorded=2", "run.skipped=1", `empty=""`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestNewFormatLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFormatLogger(&buf, "json", slog.LevelInfo)
	logger.Info("hello", "n", 1)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.log")
	logger, f, err := NewFileLogger(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	logger.Info("written")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "written") {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := LevelFromString(tt.input)
			if got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		base      slog.Level
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{slog.LevelWarn, 0, false, slog.LevelWarn},
		{slog.LevelWarn, 1, false, slog.LevelInfo},
		{slog.LevelDebug, 1, false, slog.LevelDebug},
		{slog.LevelInfo, 2, false, slog.LevelDebug},
		{slog.LevelInfo, 0, true, LevelSilent},
		{slog.LevelInfo, 5, true, LevelSilent},
	}

	for _, tt := range tests {
		got := LevelFromVerbosity(tt.base, tt.verbosity, tt.quiet)
		if got != tt.expected {
			t.Errorf("LevelFromVerbosity(%v, %d, %v) = %v, want %v",
				tt.base, tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") {
		t.Error("buf1 should contain info message")
	}
	if !strings.Contains(buf1.String(), "warn message") {
		t.Error("buf1 should contain warn message")
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message") {
		t.Error("buf2 should contain warn message")
	}
}
