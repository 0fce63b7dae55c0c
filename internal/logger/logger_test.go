package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("WARN")
	t.Cleanup(func() {
		SetLevel("INFO")
	})

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Expected debug message to be filtered at WARN level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Expected info message to be filtered at WARN level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Expected warn message in output")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Expected error message in output")
	}
}

func TestLevelPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("DEBUG")
	t.Cleanup(func() {
		SetLevel("INFO")
	})

	Info("hello %s", "world")

	output := buf.String()
	if !strings.Contains(output, "[INFO] hello world") {
		t.Errorf("Expected formatted message with level prefix, got: %q", output)
	}
}

func TestSetLevelIsCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("error")
	t.Cleanup(func() {
		SetLevel("INFO")
	})

	Warn("should be filtered")
	Error("should appear")

	output := buf.String()
	if strings.Contains(output, "should be filtered") {
		t.Error("Expected warn message to be filtered at error level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("Expected error message in output")
	}
}
