package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/events"
)

// FieldComponent is the field Component() tags child loggers with.
const FieldComponent = "component"

// Options configures New.
type Options struct {
	// Console enables human-readable output on ConsoleOut (stderr when nil).
	Console    bool
	ConsoleOut io.Writer

	// File is a log file path; empty disables file logging.
	File string

	// BufferSize is the ring buffer capacity (constants.LogBufferSize when 0).
	BufferSize int

	// Sinks receive every entry in addition to the ring buffer.
	Sinks []Sink

	// EventBus, when set, receives a LogEvent per entry.
	EventBus *events.EventBus
}

// Writer is a zerolog output that sends every line to:
// 1. Console (pretty-printed)
// 2. File (rotated with lumberjack)
// 3. The LogBuffer ring and any extra sinks
type Writer struct {
	mu       sync.RWMutex
	console  io.Writer
	file     *lumberjack.Logger
	buffer   *LogBuffer
	sinks    []Sink
	eventBus *events.EventBus
}

// NewWriter creates a Writer from opts.
func NewWriter(opts Options) *Writer {
	w := &Writer{
		buffer:   NewLogBuffer(opts.BufferSize),
		sinks:    append([]Sink(nil), opts.Sinks...),
		eventBus: opts.EventBus,
	}

	if opts.Console {
		out := opts.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		w.console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	if opts.File != "" {
		w.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    constants.LogFileMaxSizeMB,
			MaxBackups: constants.LogFileMaxBackups,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	return w
}

// New builds a Logger on top of a fresh Writer.
func New(opts Options) (*Logger, *Writer) {
	w := NewWriter(opts)
	return NewLogger(w), w
}

// AddSink attaches a sink after construction (e.g. a forwarder whose
// target is only known once the config is loaded).
func (w *Writer) AddSink(s Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, s)
}

// Write implements io.Writer for zerolog.
func (w *Writer) Write(p []byte) (n int, err error) {
	n = len(p)
	entry := parseEntry(p)

	w.buffer.Write(entry)

	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, s := range w.sinks {
		s.Write(entry)
	}

	if w.console != nil {
		w.console.Write(p)
	}

	if w.file != nil {
		// timestamp [LEVEL] component: message
		component := entry.Component
		if component == "" {
			component = "main"
		}
		line := entry.Time.Format("2006-01-02 15:04:05.000") +
			" [" + strings.ToUpper(entry.Level) + "] " + component + ": " + entry.Message
		for k, v := range entry.Fields {
			b, _ := json.Marshal(v)
			line += " " + k + "=" + string(b)
		}
		w.file.Write([]byte(line + "\n"))
	}

	if w.eventBus != nil {
		w.eventBus.PublishLog(toEventLevel(entry.Level), entry.Message, entry.Component, nil)
	}

	return n, nil
}

// Buffer returns the in-memory ring.
func (w *Writer) Buffer() *LogBuffer {
	return w.buffer
}

// Close closes the file logger if open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func parseEntry(p []byte) Entry {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return Entry{
			Time:    time.Now(),
			Level:   zerolog.InfoLevel.String(),
			Message: strings.TrimSpace(string(p)),
		}
	}

	entry := Entry{Time: time.Now()}
	if v, ok := fields[zerolog.LevelFieldName].(string); ok {
		entry.Level = v
	}
	if v, ok := fields[zerolog.MessageFieldName].(string); ok {
		entry.Message = v
	}
	if v, ok := fields[FieldComponent].(string); ok {
		entry.Component = v
	}
	if v, ok := fields[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.Time = ts
		}
	}
	delete(fields, zerolog.LevelFieldName)
	delete(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.TimestampFieldName)
	delete(fields, FieldComponent)
	if len(fields) > 0 {
		entry.Fields = fields
	}
	if entry.Level == "" {
		entry.Level = zerolog.InfoLevel.String()
	}
	return entry
}

func toEventLevel(level string) events.LogLevel {
	switch level {
	case "debug", "trace":
		return events.DebugLevel
	case "warn":
		return events.WarnLevel
	case "error", "fatal", "panic":
		return events.ErrorLevel
	default:
		return events.InfoLevel
	}
}
