package logger

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const isWindows = runtime.GOOS == "windows"

var noColor = os.Getenv("TERM") == "dumb" ||
	(!isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()))

func color(val string) string {
	if isWindows || noColor {
		return ""
	}
	return val
}

const (
	reset   = "\033[0m"
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	cyan    = "\033[36m"
	gray    = "\033[1;90m"
	magenta = "\033[35m"
)

type consoleLogger struct {
	sink     Sink
	level    LogLevel
	prefixes []string
	metadata map[string]interface{}
}

var _ Logger = (*consoleLogger)(nil)

// NewConsoleLogger returns a logger that writes human-readable, optionally
// colorized lines to stderr.
func NewConsoleLogger(level LogLevel) Logger {
	return &consoleLogger{sink: os.Stderr, level: level}
}

// NewConsoleLoggerWithSink is like NewConsoleLogger but writes to sink.
// Useful in tests.
func NewConsoleLoggerWithSink(sink Sink, level LogLevel) Logger {
	return &consoleLogger{sink: sink, level: level}
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	return &consoleLogger{
		sink:     c.sink,
		level:    c.level,
		prefixes: c.prefixes,
		metadata: mergeMetadata(c.metadata, metadata),
	}
}

func (c *consoleLogger) WithPrefix(prefix string) Logger {
	prefixes := append(append([]string{}, c.prefixes...), prefix)
	return &consoleLogger{
		sink:     c.sink,
		level:    c.level,
		prefixes: prefixes,
		metadata: c.metadata,
	}
}

func (c *consoleLogger) suffix() string {
	if len(c.metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.metadata))
	for k := range c.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, c.metadata[k])
	}
	return color(gray) + sb.String() + color(reset)
}

func (c *consoleLogger) write(level LogLevel, label, levelColor, msg string, args []interface{}) {
	if level < c.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(c.prefixes) > 0 {
		msg = strings.Join(c.prefixes, " ") + " " + msg
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(c.sink, "%s %s%-5s%s %s%s\n", ts, color(levelColor), label, color(reset), msg, c.suffix())
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) {
	c.write(LevelTrace, "TRACE", magenta, msg, args)
}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {
	c.write(LevelDebug, "DEBUG", cyan, msg, args)
}

func (c *consoleLogger) Info(msg string, args ...interface{}) {
	c.write(LevelInfo, "INFO", green, msg, args)
}

func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	c.write(LevelWarn, "WARN", yellow, msg, args)
}

func (c *consoleLogger) Error(msg string, args ...interface{}) {
	c.write(LevelError, "ERROR", red, msg, args)
}
