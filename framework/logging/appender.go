package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Appender delivers a formatted entry somewhere.
type Appender interface {
	Append(e Entry, line string) error
}

// AppenderFunc adapts a plain function to Appender.
type AppenderFunc func(e Entry, line string) error

func (f AppenderFunc) Append(e Entry, line string) error { return f(e, line) }

// AsAppender accepts an Appender, a bare func(Entry, string) error, an
// io.Writer, or one of the names "stdout" and "stderr".
func AsAppender(v any) (Appender, error) {
	switch a := v.(type) {
	case Appender:
		return a, nil
	case func(Entry, string) error:
		return AppenderFunc(a), nil
	case io.Writer:
		return WriterAppender(a), nil
	case string:
		switch strings.ToLower(a) {
		case "stdout":
			return WriterAppender(os.Stdout), nil
		case "stderr":
			return WriterAppender(os.Stderr), nil
		}
		return nil, fmt.Errorf("logging: unknown appender %q", a)
	default:
		return nil, fmt.Errorf("logging: %T is not an appender", v)
	}
}

type writerAppender struct {
	mu sync.Mutex
	w  io.Writer
}

// WriterAppender writes one line per entry to w. Writes are serialized.
func WriterAppender(w io.Writer) Appender {
	return &writerAppender{w: w}
}

func (a *writerAppender) Append(_ Entry, line string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := io.WriteString(a.w, line+"\n")
	return err
}

type zapAppender struct {
	log *zap.Logger
}

// ZapAppender bridges entries into a zap logger. The formatted line is
// ignored; zap does its own encoding from the entry fields.
func ZapAppender(l *zap.Logger) Appender {
	return zapAppender{log: l}
}

func (a zapAppender) Append(e Entry, _ string) error {
	ce := a.log.Check(e.Level.zapLevel(), e.Message)
	if ce == nil {
		return nil
	}
	fields := make([]zap.Field, 0, len(e.Fields)+2)
	fields = append(fields, zap.String("logger", e.Logger))
	if e.Category != "" {
		fields = append(fields, zap.String("category", e.Category))
	}
	for _, f := range e.Fields {
		fields = append(fields, zap.Any(f.Key, f.Value))
	}
	ce.Write(fields...)
	return nil
}

// MemoryAppender keeps everything it receives. Useful in tests and for
// admin endpoints that show recent output.
type MemoryAppender struct {
	mu      sync.Mutex
	entries []Entry
	lines   []string
}

func (m *MemoryAppender) Append(e Entry, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	m.lines = append(m.lines, line)
	return nil
}

// Entries returns a copy of the received entries.
func (m *MemoryAppender) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Lines returns a copy of the formatted lines.
func (m *MemoryAppender) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func (m *MemoryAppender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.lines = nil
}
