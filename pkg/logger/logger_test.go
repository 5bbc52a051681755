package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLoggerWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := newWriterLogger(&buf, "api", levelInfo)

	log.Info("Recorded check-in", map[string]interface{}{
		"promise_id": "abc",
		"status":     "done",
	})

	entry := lastLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "Recorded check-in", entry["message"])
	assert.Equal(t, "abc", entry["promise_id"])
	assert.Equal(t, "done", entry["status"])
}

func TestLoggerSuppressesBelowMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWriterLogger(&buf, "api", levelInfo)

	log.Debug("noise", nil)
	assert.Zero(t, buf.Len())

	log.Warn("kept", nil)
	assert.Equal(t, "warn", lastLine(t, &buf)["level"])
}

func TestLoggerKeepsReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	log := newWriterLogger(&buf, "api", levelDebug)

	log.Info("collision", map[string]interface{}{"level": "bogus"})

	entry := lastLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "bogus", entry["field_level"])
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, levelInfo, parseLevel(""))
	assert.Equal(t, levelInfo, parseLevel("verbose"))
	assert.Equal(t, levelDebug, parseLevel("DEBUG"))
	assert.Equal(t, levelError, parseLevel("error"))
}
