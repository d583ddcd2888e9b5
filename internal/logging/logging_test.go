package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "JSON format to stdout",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Console format to stderr",
			config: Config{
				Level:  "debug",
				Format: "console",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "Invalid log level defaults to info",
			config: Config{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "Unwritable file path",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "/nonexistent-dir/timeline.log",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("Expected non-nil logger")
			}
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("Invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.
		WithProjectID("proj-1").
		WithSessionID("sess-2").
		WithUserID("user-3").
		WithError(errors.New("draft recovered")).
		Info("session opened")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["project_id"] != "proj-1" {
		t.Errorf("Expected project_id proj-1, got %v", entry["project_id"])
	}
	if entry["session_id"] != "sess-2" {
		t.Errorf("Expected session_id sess-2, got %v", entry["session_id"])
	}
	if entry["user_id"] != "user-3" {
		t.Errorf("Expected user_id user-3, got %v", entry["user_id"])
	}
	if entry["error"] != "draft recovered" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["message"] != "session opened" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestLogEditEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.LogEditEvent("sess-1", "split", 4, 15, nil)
	logger.LogEditEvent("sess-1", "split", 4, 15, errors.New("cannot split at clip edge"))

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["op"] != "split" {
		t.Errorf("Unexpected committed edit entry: %v", lines[0])
	}
	if lines[1]["level"] != "warn" || lines[1]["error"] != "cannot split at clip edge" {
		t.Errorf("Unexpected rejected edit entry: %v", lines[1])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.LogPlaybackEvent("sess-1", "handoff", "clip-2", map[string]interface{}{"warm": true})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Debug entries should be filtered at info level, got %s", buf.String())
	}

	logger.LogExportProgress("job-1", "trimming", 40, "Trimming clips")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["stage"] != "trimming" {
		t.Errorf("Unexpected export progress entry: %v", lines)
	}
}

func TestLogOperations(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")

	logger.LogHTTPRequest("GET", "/api/v1/projects", "192.168.1.1", 200, 100*time.Millisecond)
	logger.LogJobEvent("job-123", "started", "preparing", map[string]interface{}{"clips": 3})
	logger.LogEditEvent("sess-1", "split", 3, 12.5, errors.New("clip too short"))

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 log lines, got %d", len(lines))
	}
	if lines[2]["level"] != "warn" {
		t.Errorf("Rejected edit should log at warn level, got %v", lines[2]["level"])
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("discarded")
	logger.WithJobID("job").ErrorWithErr("discarded", errors.New("x"))
}
