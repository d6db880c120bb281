package logger

import (
	"fmt"
	"strings"
	"sync"
)

type TestLogEntry struct {
	Severity string
	Message  string
}

// TestLogger records log entries in memory so tests can assert on them.
// It is safe for concurrent use.
type TestLogger struct {
	mu       *sync.Mutex
	logs     *[]TestLogEntry
	metadata map[string]interface{}
	prefixes []string
}

var _ Logger = (*TestLogger)(nil)

func NewTestLogger() *TestLogger {
	return &TestLogger{mu: &sync.Mutex{}, logs: &[]TestLogEntry{}}
}

// Logs returns a snapshot of the recorded entries.
func (t *TestLogger) Logs() []TestLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TestLogEntry, len(*t.logs))
	copy(out, *t.logs)
	return out
}

func (t *TestLogger) With(metadata map[string]interface{}) Logger {
	return &TestLogger{
		mu:       t.mu,
		logs:     t.logs,
		metadata: mergeMetadata(t.metadata, metadata),
		prefixes: t.prefixes,
	}
}

func (t *TestLogger) WithPrefix(prefix string) Logger {
	return &TestLogger{
		mu:       t.mu,
		logs:     t.logs,
		metadata: t.metadata,
		prefixes: append(append([]string{}, t.prefixes...), prefix),
	}
}

func (t *TestLogger) log(severity, msg string, args []interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(t.prefixes) > 0 {
		msg = strings.Join(t.prefixes, " ") + " " + msg
	}
	t.mu.Lock()
	*t.logs = append(*t.logs, TestLogEntry{Severity: severity, Message: msg})
	t.mu.Unlock()
}

func (t *TestLogger) Trace(msg string, args ...interface{}) { t.log("TRACE", msg, args) }
func (t *TestLogger) Debug(msg string, args ...interface{}) { t.log("DEBUG", msg, args) }
func (t *TestLogger) Info(msg string, args ...interface{})  { t.log("INFO", msg, args) }
func (t *TestLogger) Warn(msg string, args ...interface{})  { t.log("WARN", msg, args) }
func (t *TestLogger) Error(msg string, args ...interface{}) { t.log("ERROR", msg, args) }
