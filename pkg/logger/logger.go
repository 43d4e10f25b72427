// Package logger emits structured JSON log lines with levels, bound fields,
// and caller info. Field keys keep insertion order so the domain identifiers
// (student_id, evaluation_id) stay at a predictable position in every line.
package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values mean Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err renders the error message under the "error" key. A nil error logs as
// null rather than being dropped, so absence is visible.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Options configures a Logger.
type Options struct {
	Output    io.Writer
	Level     Level
	AddCaller bool
}

// DefaultOptions logs Info and above to stdout with caller info.
func DefaultOptions() Options {
	return Options{Output: os.Stdout, Level: LevelInfo, AddCaller: true}
}

// Logger writes one JSON object per line. Safe for concurrent use; With
// derives child loggers sharing the same output.
type Logger struct {
	out       *syncWriter
	level     Level
	addCaller bool
	bound     []Field
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) writeLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(line)
}

// New creates a Logger. A nil Output falls back to stdout.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		out:       &syncWriter{w: opts.Output},
		level:     opts.Level,
		addCaller: opts.AddCaller,
	}
}

// Default returns a Logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a child Logger that includes fields on every line.
func (l *Logger) With(fields ...Field) *Logger {
	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)
	return &Logger{out: l.out, level: l.level, addCaller: l.addCaller, bound: bound}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

func (l *Logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair(&buf, "timestamp", time.Now().UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writePair(&buf, "level", level.String())
	buf.WriteByte(',')
	writePair(&buf, "message", msg)

	if l.addCaller {
		if caller := callsite(); caller != "" {
			buf.WriteByte(',')
			writePair(&buf, "caller", caller)
		}
	}

	for _, f := range l.bound {
		buf.WriteByte(',')
		writePair(&buf, f.Key, f.Value)
	}
	for _, f := range fields {
		buf.WriteByte(',')
		writePair(&buf, f.Key, f.Value)
	}

	buf.WriteString("}\n")
	l.out.writeLine(buf.Bytes())
}

func writePair(buf *bytes.Buffer, key string, value any) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
	v, err := json.Marshal(value)
	if err != nil {
		v, _ = json.Marshal(fmt.Sprintf("%v", value))
	}
	buf.Write(v)
}

// callsite walks past the logger's own frames to the caller's file:line.
func callsite() string {
	for skip := 3; skip < 6; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			return ""
		}
		if strings.HasSuffix(file, "pkg/logger/logger.go") {
			continue
		}
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}

// Field helpers for the identifiers that recur across the evaluation flow.
func StudentID(id string) Field     { return String("student_id", id) }
func EvaluationID(id string) Field  { return String("evaluation_id", id) }
func LevelName(level string) Field  { return String("level", level) }
func Score(avg float64) Field       { return Float64("average_score", avg) }
func PointsAmount(p int) Field      { return Int("points", p) }
func StorageKey(key string) Field   { return String("storage_key", key) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
