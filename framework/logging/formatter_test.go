package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-scopes/framework/logging"
)

var fixed = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func entry() logging.Entry {
	return logging.Entry{
		Time:     fixed,
		Level:    logging.WarnLevel,
		Logger:   "api",
		Category: "http",
		Message:  "slow request",
		Fields:   []logging.Field{logging.F("path", "/users"), logging.F("ms", 840)},
	}
}

// ── Formatters ──────────────────────────────────────────────────────────────

func TestTextFormatter(t *testing.T) {
	got := logging.TextFormatter{}.Format(entry())
	assert.Equal(t, "2024-03-01T12:30:00Z WARN  [api/http] slow request ms=840 path=/users", got)
}

func TestTextFormatter_LaterFieldWins(t *testing.T) {
	e := entry()
	e.Category = ""
	e.Fields = []logging.Field{logging.F("a", 1), logging.F("a", 2)}

	got := logging.TextFormatter{TimeFormat: "15:04"}.Format(e)
	assert.Equal(t, "12:30 WARN  [api] slow request a=2", got)
}

func TestJSONFormatter(t *testing.T) {
	line := logging.JSONFormatter{}.Format(entry())

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &obj))
	assert.Equal(t, "warn", obj["level"])
	assert.Equal(t, "api", obj["logger"])
	assert.Equal(t, "http", obj["category"])
	assert.Equal(t, "slow request", obj["msg"])
	assert.Equal(t, "/users", obj["path"])
	assert.EqualValues(t, 840, obj["ms"])
}

func TestJSONFormatter_FieldsCannotShadowReservedKeys(t *testing.T) {
	e := entry()
	e.Fields = []logging.Field{logging.F("msg", "spoofed")}

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(logging.JSONFormatter{}.Format(e)), &obj))
	assert.Equal(t, "slow request", obj["msg"])
}

func TestPrettyFormatter(t *testing.T) {
	got := logging.PrettyFormatter{}.Format(entry())
	assert.Contains(t, got, "slow request")
	assert.Contains(t, got, "WARN")
	assert.Contains(t, got, "api/http")
	assert.Contains(t, got, "840")
}

func TestFormatterByName(t *testing.T) {
	for name, want := range map[string]logging.Formatter{
		"text":   logging.TextFormatter{},
		"JSON":   logging.JSONFormatter{},
		"pretty": logging.PrettyFormatter{},
	} {
		got, err := logging.FormatterByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := logging.FormatterByName("xml")
	assert.Error(t, err)
}

func TestAsFormatter_AcceptsBothShapes(t *testing.T) {
	byObject, err := logging.AsFormatter(logging.JSONFormatter{})
	require.NoError(t, err)
	assert.Equal(t, logging.JSONFormatter{}, byObject)

	byFunc, err := logging.AsFormatter(func(e logging.Entry) string { return "> " + e.Message })
	require.NoError(t, err)
	assert.Equal(t, "> slow request", byFunc.Format(entry()))

	_, err = logging.AsFormatter(42)
	assert.Error(t, err)
}

// ── Appenders ───────────────────────────────────────────────────────────────

func TestWriterAppender(t *testing.T) {
	var buf bytes.Buffer
	a := logging.WriterAppender(&buf)

	require.NoError(t, a.Append(entry(), "one"))
	require.NoError(t, a.Append(entry(), "two"))
	assert.Equal(t, "one\ntwo\n", buf.String())
}

func TestZapAppender(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := logging.ZapAppender(zap.New(core))

	require.NoError(t, a.Append(entry(), "ignored"))

	require.Equal(t, 1, logs.Len())
	got := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, got.Level)
	assert.Equal(t, "slow request", got.Message)
	ctx := got.ContextMap()
	assert.Equal(t, "api", ctx["logger"])
	assert.Equal(t, "http", ctx["category"])
	assert.Equal(t, "/users", ctx["path"])
}

func TestZapAppender_RespectsZapLevel(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	a := logging.ZapAppender(zap.New(core))

	require.NoError(t, a.Append(entry(), ""))
	assert.Zero(t, logs.Len())
}

func TestMemoryAppender(t *testing.T) {
	mem := &logging.MemoryAppender{}
	require.NoError(t, mem.Append(entry(), "line"))

	assert.Equal(t, []string{"line"}, mem.Lines())
	assert.Len(t, mem.Entries(), 1)

	mem.Reset()
	assert.Empty(t, mem.Lines())
}

func TestAsAppender(t *testing.T) {
	mem := &logging.MemoryAppender{}
	got, err := logging.AsAppender(mem)
	require.NoError(t, err)
	assert.Same(t, mem, got)

	var seen []string
	fn, err := logging.AsAppender(func(_ logging.Entry, line string) error {
		seen = append(seen, line)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, fn.Append(entry(), "x"))
	assert.Equal(t, []string{"x"}, seen)

	var buf bytes.Buffer
	w, err := logging.AsAppender(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Append(entry(), "y"))
	assert.Equal(t, "y\n", buf.String())

	_, err = logging.AsAppender("stdout")
	assert.NoError(t, err)
	_, err = logging.AsAppender(os.Stderr)
	assert.NoError(t, err)
	_, err = logging.AsAppender("syslog")
	assert.Error(t, err)
	_, err = logging.AsAppender(errors.New("nope"))
	assert.Error(t, err)
}
