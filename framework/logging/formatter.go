package logging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Formatter renders an entry as a single line (no trailing newline).
type Formatter interface {
	Format(e Entry) string
}

// FormatterFunc adapts a plain function to Formatter.
type FormatterFunc func(e Entry) string

func (f FormatterFunc) Format(e Entry) string { return f(e) }

// AsFormatter accepts either shape of formatter capability, a Formatter
// value or a bare func(Entry) string, or the name of a built-in formatter.
func AsFormatter(v any) (Formatter, error) {
	switch f := v.(type) {
	case Formatter:
		return f, nil
	case func(Entry) string:
		return FormatterFunc(f), nil
	case string:
		return FormatterByName(f)
	default:
		return nil, fmt.Errorf("logging: %T is not a formatter", v)
	}
}

// FormatterByName returns the built-in formatter registered under name:
// "text", "json" or "pretty".
func FormatterByName(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "text", "":
		return TextFormatter{}, nil
	case "json":
		return JSONFormatter{}, nil
	case "pretty":
		return PrettyFormatter{}, nil
	default:
		return nil, fmt.Errorf("logging: unknown formatter %q", name)
	}
}

// ── Text ────────────────────────────────────────────────────────────────────

// TextFormatter writes `time LEVEL [logger/category] message key=value ...`.
type TextFormatter struct {
	// TimeFormat defaults to time.RFC3339.
	TimeFormat string
}

func (f TextFormatter) Format(e Entry) string {
	layout := f.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}
	var b strings.Builder
	b.WriteString(e.Time.Format(layout))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level.String()))
	b.WriteString(" [")
	b.WriteString(source(e))
	b.WriteString("] ")
	b.WriteString(e.Message)
	writeFields(&b, e.Fields)
	return b.String()
}

// ── JSON ────────────────────────────────────────────────────────────────────

// JSONFormatter writes one JSON object per entry. Fields are inlined and
// never override the reserved keys.
type JSONFormatter struct{}

func (JSONFormatter) Format(e Entry) string {
	obj := make(map[string]any, len(e.Fields)+5)
	for _, f := range e.Fields {
		obj[f.Key] = f.Value
	}
	obj["time"] = e.Time.Format(time.RFC3339Nano)
	obj["level"] = e.Level.String()
	obj["logger"] = e.Logger
	obj["msg"] = e.Message
	if e.Category != "" {
		obj["category"] = e.Category
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"msg":%q,"error":%q}`, e.Level, e.Message, err.Error())
	}
	return string(data)
}

// ── Pretty ──────────────────────────────────────────────────────────────────

var (
	pretty = map[Level]lipgloss.Style{
		TraceLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")).Bold(true),
	}
	prettySource = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	prettyKey    = lipgloss.NewStyle().Faint(true)
)

// PrettyFormatter colours level and source for terminals.
type PrettyFormatter struct{}

func (PrettyFormatter) Format(e Entry) string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(pretty[e.Level].Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level.String()))))
	b.WriteByte(' ')
	b.WriteString(prettySource.Render(source(e)))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, f := range sortedFields(e.Fields) {
		b.WriteByte(' ')
		b.WriteString(prettyKey.Render(f.Key + "="))
		fmt.Fprint(&b, f.Value)
	}
	return b.String()
}

// ── helpers ─────────────────────────────────────────────────────────────────

func source(e Entry) string {
	if e.Category == "" {
		return e.Logger
	}
	return e.Logger + "/" + e.Category
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range sortedFields(fields) {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		fmt.Fprint(b, f.Value)
	}
}

// sortedFields orders by key; later duplicates win over earlier ones.
func sortedFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]int, len(fields))
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i, ok := seen[f.Key]; ok {
			out[i] = f
			continue
		}
		seen[f.Key] = len(out)
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
