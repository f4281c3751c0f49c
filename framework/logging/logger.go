package logging

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handler receives entries logged under one category.
type Handler interface {
	Handle(e Entry)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(e Entry)

func (f HandlerFunc) Handle(e Entry) { f(e) }

// Filter decides whether an entry is emitted by this logger.
type Filter interface {
	Allow(e Entry) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(e Entry) bool

func (f FilterFunc) Allow(e Entry) bool { return f(e) }

// Logger is the per-scope logging service. Each scope that carries a
// logging bundle gets its own instance; with Chain set it also forwards
// every entry to the logger of the nearest ancestor scope.
type Logger struct {
	cfg       Config
	filter    Filter
	fields    []Field
	parent    *Logger
	now       func() time.Time
	failures  atomic.Int64
	handlerMu sync.RWMutex
	handlers  map[string][]Handler
}

func newLogger(cfg Config, filter Filter, fields []Field, parent *Logger) *Logger {
	l := &Logger{
		cfg:      cfg,
		filter:   filter,
		fields:   fields,
		now:      time.Now,
		handlers: make(map[string][]Handler),
	}
	if cfg.Chain {
		l.parent = parent
	}
	return l
}

// New builds a standalone logger outside any scope.
func New(cfg Config) *Logger {
	return newLogger(cfg, nil, nil, nil)
}

func (l *Logger) Config() Config { return l.cfg }

func (l *Logger) Name() string { return l.cfg.Name }

// Parent is the logger entries are forwarded to, or nil.
func (l *Logger) Parent() *Logger { return l.parent }

// Failures counts appender errors since the logger was built.
func (l *Logger) Failures() int64 { return l.failures.Load() }

// Enabled reports whether this logger itself would emit at level.
func (l *Logger) Enabled(level Level) bool {
	return level != OffLevel && l.cfg.Level != OffLevel && level >= l.cfg.Level
}

// AddHandler registers h for entries logged under category. Handlers for
// the same category run in registration order.
func (l *Logger) AddHandler(category string, h Handler) {
	if h == nil {
		return
	}
	l.handlerMu.Lock()
	defer l.handlerMu.Unlock()
	l.handlers[category] = append(l.handlers[category], h)
}

// Categories lists the categories that have at least one handler.
func (l *Logger) Categories() []string {
	l.handlerMu.RLock()
	defer l.handlerMu.RUnlock()
	out := make([]string, 0, len(l.handlers))
	for c := range l.handlers {
		out = append(out, c)
	}
	return out
}

func (l *Logger) Log(level Level, msg string, fields ...Field) { l.log("", level, msg, fields) }

func (l *Logger) Trace(msg string, fields ...Field) { l.log("", TraceLevel, msg, fields) }
func (l *Logger) Debug(msg string, fields ...Field) { l.log("", DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log("", InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log("", WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log("", ErrorLevel, msg, fields) }

// Category returns a view of l that tags entries with name.
func (l *Logger) Category(name string) *CategoryLogger {
	return &CategoryLogger{logger: l, name: name}
}

func (l *Logger) log(category string, level Level, msg string, fields []Field) {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	l.dispatch(Entry{
		Time:     l.now(),
		Level:    level,
		Logger:   l.cfg.Name,
		Category: category,
		Message:  msg,
		Fields:   all,
	})
}

// dispatch: level gate, filter, format, appenders, category handlers, then
// the parent when chained. The parent applies its own gates.
func (l *Logger) dispatch(e Entry) {
	if l.Enabled(e.Level) && (l.filter == nil || l.filter.Allow(e)) {
		if len(l.cfg.Appenders) > 0 && l.cfg.Formatter != nil {
			line := l.cfg.Formatter.Format(e)
			for _, a := range l.cfg.Appenders {
				if err := a.Append(e, line); err != nil {
					l.failures.Add(1)
				}
			}
		}
		if e.Category != "" {
			l.handlerMu.RLock()
			hs := l.handlers[e.Category]
			l.handlerMu.RUnlock()
			for _, h := range hs {
				h.Handle(e)
			}
		}
	}
	if l.parent != nil {
		l.parent.dispatch(e)
	}
}

// CategoryLogger logs through its parent Logger under a fixed category.
type CategoryLogger struct {
	logger *Logger
	name   string
}

func (c *CategoryLogger) Name() string { return c.name }

func (c *CategoryLogger) Log(level Level, msg string, fields ...Field) {
	c.logger.log(c.name, level, msg, fields)
}

func (c *CategoryLogger) Trace(msg string, fields ...Field) { c.logger.log(c.name, TraceLevel, msg, fields) }
func (c *CategoryLogger) Debug(msg string, fields ...Field) { c.logger.log(c.name, DebugLevel, msg, fields) }
func (c *CategoryLogger) Info(msg string, fields ...Field)  { c.logger.log(c.name, InfoLevel, msg, fields) }
func (c *CategoryLogger) Warn(msg string, fields ...Field)  { c.logger.log(c.name, WarnLevel, msg, fields) }
func (c *CategoryLogger) Error(msg string, fields ...Field) { c.logger.log(c.name, ErrorLevel, msg, fields) }
