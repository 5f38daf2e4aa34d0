package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerFormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Info("listening on %s", ":8080")

	entry := logLine(t, &buf)
	assert.Equal(t, "listening on :8080", entry["msg"])
}

// Extra arguments are printf verbs, not key-value attributes. Fields
// go through WithField(s); a message with no verbs must come out
// verbatim even when fields are attached.
func TestLoggerFieldsStayStructured(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("count", 3).Info("swept expired invitations")

	entry := logLine(t, &buf)
	assert.Equal(t, "swept expired invitations", entry["msg"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"auth_mode": "service",
		"log_level": "INFO",
	}).Info("starting")

	entry := logLine(t, &buf)
	assert.Equal(t, "starting", entry["msg"])
	assert.Equal(t, "service", entry["auth_mode"])
	assert.Equal(t, "INFO", entry["log_level"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ErrorLevel, &buf)

	logger.WithError(assert.AnError).Error("background task failed")

	entry := logLine(t, &buf)
	assert.Equal(t, "background task failed", entry["msg"])
	assert.Contains(t, entry["error"], "assert.AnError")
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("quiet")
	assert.Zero(t, buf.Len())

	logger.Warn("loud")
	assert.NotZero(t, buf.Len())
}
