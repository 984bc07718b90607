package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zpam/playtennis/pkg/config"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playtennis.log")

	logger, err := New(config.LoggingConfig{
		Level:      "info",
		File:       path,
		Format:     "json",
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("prediction served")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line below debug level, got %d: %q", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["msg"] != "prediction served" {
		t.Errorf("Unexpected message: %v", entry["msg"])
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud", Format: "text"}); err == nil {
		t.Error("Expected error for invalid level")
	}
	if _, err := New(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("Expected error for invalid format")
	}
	if _, err := New(config.LoggingConfig{Level: "debug", Format: "text"}); err != nil {
		t.Errorf("Expected stderr text logger, got %v", err)
	}
}
