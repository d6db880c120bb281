package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelNone, ParseLevel("off"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}

func TestConsoleLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLoggerWithSink(&buf, LevelWarn)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown %d", 1)
	log.Error("also shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 1")
	assert.Contains(t, out, "also shown")
}

func TestConsoleLoggerPrefixAndMetadata(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLoggerWithSink(&buf, LevelTrace).WithPrefix("[cache]").With(map[string]interface{}{"case": "c1"})
	log.Info("evicted")
	out := buf.String()
	assert.Contains(t, out, "[cache] evicted")
	assert.Contains(t, out, "case=c1")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLoggerWithSink(&buf, LevelInfo).With(map[string]interface{}{"component": "backend"})
	log.Info("ingested %d files", 3)

	line := strings.TrimSpace(buf.String())
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "ingested 3 files", record["msg"])
	assert.Equal(t, "backend", record["component"])
	assert.NotEmpty(t, record["ts"])
}

func TestTestLoggerRecords(t *testing.T) {
	log := NewTestLogger()
	child := log.With(map[string]interface{}{"k": "v"})
	child.Debug("first")
	log.Error("second %s", "half")

	logs := log.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, "DEBUG", logs[0].Severity)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, "second half", logs[1].Message)
}
