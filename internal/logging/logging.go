package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Field is a single structured key/value attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a single structured field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithFields creates a field carrying multiple key/value pairs at once.
// Keys are emitted in sorted order so output is stable.
func WithFields(fields map[string]interface{}) Field {
	return Field{Value: fields}
}

// Logger is a leveled logger writing structured key=value lines
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New creates a logger that writes to stderr at the given level
func New(level Level) *Logger {
	return &Logger{out: os.Stderr, level: level}
}

// NewWithOutput creates a logger writing to the given writer (used in tests)
func NewWithOutput(level Level, out io.Writer) *Logger {
	return &Logger{out: out, level: level}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(level.String())
	b.WriteString(" ")
	b.WriteString(msg)

	for _, f := range fields {
		if f.Key == "" {
			if m, ok := f.Value.(map[string]interface{}); ok {
				keys := make([]string, 0, len(m))
				for k := range m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					writePair(&b, k, m[k])
				}
				continue
			}
		}
		writePair(&b, f.Key, f.Value)
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, b.String())
}

func writePair(b *strings.Builder, key string, value interface{}) {
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	s := fmt.Sprintf("%v", value)
	if strings.ContainsAny(s, " \t") {
		s = fmt.Sprintf("%q", s)
	}
	b.WriteString(s)
}
