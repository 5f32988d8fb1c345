package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevelDebug},
		{" WARN ", LogLevelWarn},
		{"error", LogLevelError},
		{"info", LogLevelInfo},
		{"verbose", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_JSONFieldMap(t *testing.T) {
	logger := NewLogger(LogLevelDebug)

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	LogError(logger, errors.New("boom"), "render", map[string]interface{}{"format": "png"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}

	for _, key := range []string{"timestamp", "level", "message", "error", "context", "format"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("log entry missing %q: %v", key, entry)
		}
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
}

func TestNewLogger_Level(t *testing.T) {
	if got := NewLogger(LogLevelWarn).GetLevel(); got != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}
	if got := NewLogger("bogus").GetLevel(); got != logrus.InfoLevel {
		t.Errorf("level = %v, want info", got)
	}
}
