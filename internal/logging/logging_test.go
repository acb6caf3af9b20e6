package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-grouper/internal/config"
)

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "items", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "items=3") {
		t.Errorf("expected warn message with fields, got %s", out)
	}
}

func TestNewWithOutput_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "chatty"}, &buf)

	logger.Debug("debug")
	logger.Info("info")

	out := buf.String()
	if strings.Contains(out, "debug") || !strings.Contains(out, "info") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "info", JSON: true}, &buf)
	logger.Named("web").Info("request", "status", 200)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["@message"] != "request" {
		t.Errorf("message = %v", entry["@message"])
	}
	if entry["@module"] != "photo-grouper.web" {
		t.Errorf("module = %v", entry["@module"])
	}
}
