package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_DefaultInitialization(t *testing.T) {
	// Log should be initialized by default and not panic
	if Log == nil {
		t.Fatal("Log should not be nil by default")
	}

	// Should not panic
	Log.Info("Testing default logger")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNew_JSONWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", FormatJSON).With("component", "engine")
	l.Debug("hidden")
	l.Info("companion launched", "pid", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug line should be filtered at info level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "companion launched", rec["msg"])
	assert.Equal(t, "engine", rec["component"])
	assert.EqualValues(t, 42, rec["pid"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", FormatText).Debug("tick", "paused", true)
	assert.Contains(t, buf.String(), "paused=true")
}

func TestJournalKey(t *testing.T) {
	assert.Equal(t, "TRIGGER_NAME", journalKey("trigger.name"))
	assert.Equal(t, "PID", journalKey("pid"))
	assert.Equal(t, "ATTR", journalKey("__"))
}
