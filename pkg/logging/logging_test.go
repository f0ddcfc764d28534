package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLevel(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"loud":  slog.LevelInfo,
	} {
		t.Setenv("LOG_LEVEL", raw)
		assert.Equal(t, want, Level())
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, "json", slog.LevelInfo)).Info("hello", "session", "s1")
	var line map[string]interface{}
	assert.Equal(t, nil, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "s1", line["session"])

	buf.Reset()
	logger := slog.New(NewHandler(&buf, "text", slog.LevelWarn))
	logger.Info("dropped")
	logger.Warn("kept")
	assert.Equal(t, false, strings.Contains(buf.String(), "dropped"))
	assert.Equal(t, true, strings.Contains(buf.String(), "msg=kept"))
}
