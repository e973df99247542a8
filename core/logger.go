package core

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel controls which messages a JSONLogger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLogLevel converts a level name to a LogLevel, defaulting to Info
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// JSONLogger writes structured log lines as JSON objects, one per line.
// Safe for concurrent use.
type JSONLogger struct {
	mu      sync.Mutex
	out     io.Writer
	level   LogLevel
	service string
}

// NewJSONLogger creates a logger writing to stdout at the given level
func NewJSONLogger(service string, level LogLevel) *JSONLogger {
	return &JSONLogger{
		out:     os.Stdout,
		level:   level,
		service: service,
	}
}

// NewJSONLoggerWithWriter creates a logger with a custom writer (tests)
func NewJSONLoggerWithWriter(service string, level LogLevel, out io.Writer) *JSONLogger {
	return &JSONLogger{
		out:     out,
		level:   level,
		service: service,
	}
}

func (l *JSONLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(DebugLevel, "DEBUG", msg, fields)
}

func (l *JSONLogger) Info(msg string, fields map[string]interface{}) {
	l.log(InfoLevel, "INFO", msg, fields)
}

func (l *JSONLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(WarnLevel, "WARN", msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]interface{}) {
	l.log(ErrorLevel, "ERROR", msg, fields)
}

func (l *JSONLogger) log(level LogLevel, name, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		// Errors do not marshal usefully as JSON values
		if err, ok := v.(error); ok {
			entry[k] = err.Error()
			continue
		}
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = name
	entry["message"] = msg
	if l.service != "" {
		entry["service"] = l.service
	}

	line, err := json.Marshal(entry)
	if err != nil {
		// Unmarshalable field value; drop fields rather than the message
		line, _ = json.Marshal(map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     name,
			"message":   msg,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(line, '\n'))
}
