package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type jsonLogger struct {
	sink     Sink
	level    LogLevel
	prefixes []string
	metadata map[string]interface{}
}

var _ Logger = (*jsonLogger)(nil)

// NewJSONLogger returns a logger that writes one JSON object per line to
// stdout. Metadata keys are emitted as top-level fields alongside
// "ts", "level" and "msg".
func NewJSONLogger(level LogLevel) Logger {
	return &jsonLogger{sink: os.Stdout, level: level}
}

// NewJSONLoggerWithSink is like NewJSONLogger but writes to sink.
func NewJSONLoggerWithSink(sink Sink, level LogLevel) Logger {
	return &jsonLogger{sink: sink, level: level}
}

func (j *jsonLogger) With(metadata map[string]interface{}) Logger {
	return &jsonLogger{
		sink:     j.sink,
		level:    j.level,
		prefixes: j.prefixes,
		metadata: mergeMetadata(j.metadata, metadata),
	}
}

func (j *jsonLogger) WithPrefix(prefix string) Logger {
	prefixes := append(append([]string{}, j.prefixes...), prefix)
	return &jsonLogger{
		sink:     j.sink,
		level:    j.level,
		prefixes: prefixes,
		metadata: j.metadata,
	}
}

func (j *jsonLogger) write(level LogLevel, label, msg string, args []interface{}) {
	if level < j.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(j.prefixes) > 0 {
		msg = strings.Join(j.prefixes, " ") + " " + msg
	}
	record := make(map[string]interface{}, len(j.metadata)+3)
	for k, v := range j.metadata {
		record[k] = v
	}
	record["ts"] = time.Now().Format(time.RFC3339Nano)
	record["level"] = label
	record["msg"] = msg
	buf, err := json.Marshal(record)
	if err != nil {
		// Metadata contained something unserializable. Emit what we can.
		buf, _ = json.Marshal(map[string]interface{}{
			"ts":    time.Now().Format(time.RFC3339Nano),
			"level": label,
			"msg":   msg,
		})
	}
	fmt.Fprintln(j.sink, string(buf))
}

func (j *jsonLogger) Trace(msg string, args ...interface{}) {
	j.write(LevelTrace, "trace", msg, args)
}

func (j *jsonLogger) Debug(msg string, args ...interface{}) {
	j.write(LevelDebug, "debug", msg, args)
}

func (j *jsonLogger) Info(msg string, args ...interface{}) {
	j.write(LevelInfo, "info", msg, args)
}

func (j *jsonLogger) Warn(msg string, args ...interface{}) {
	j.write(LevelWarn, "warn", msg, args)
}

func (j *jsonLogger) Error(msg string, args ...interface{}) {
	j.write(LevelError, "error", msg, args)
}
