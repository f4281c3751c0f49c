package logging

import (
	"sort"

	"go.uber.org/zap"

	"github.com/km-arc/go-scopes/framework/container"
)

// ── Tokens ──────────────────────────────────────────────────────────────────

var (
	ConfigKey    = container.NewKey[Config]("logging.config")
	FormatterKey = container.NewKey[Formatter]("logging.formatter")
	AppendersKey = container.NewMultiKey[Appender]("logging.appenders")
	FilterKey    = container.NewKey[Filter]("logging.filter")
	FieldsKey    = container.NewMultiKey[Field]("logging.fields")
	LoggerKey    = container.NewKey[*Logger]("logging.logger")

	// localKey is the logger built from the scope's own bindings; parentKey
	// the ancestor logger it forwards to when chained.
	localKey  = container.NewKey[*Logger]("logging.logger.local")
	parentKey = container.NewKey[*Logger]("logging.parent")
)

// ── Features ────────────────────────────────────────────────────────────────

const (
	KindCategories container.FeatureKind = "logging.categories"
	KindFilter     container.FeatureKind = "logging.filter"
	KindSilent     container.FeatureKind = "logging.silent"
	KindFields     container.FeatureKind = "logging.fields"
	KindZap        container.FeatureKind = "logging.zap"
	KindAppender   container.FeatureKind = "logging.appender"
)

// Rules are the feature constraints Provide enforces.
var Rules = container.FeatureRules{
	Limits: map[container.FeatureKind]int{
		KindCategories: 1,
		KindFilter:     1,
		KindSilent:     1,
		KindZap:        1,
		KindFields:     0,
		KindAppender:   0,
	},
	DefaultLimit: 1,
	Exclusive: [][2]container.FeatureKind{
		{KindSilent, KindFilter},
		{KindSilent, KindZap},
	},
}

// WithCategories installs category handlers on the scope's logger once the
// scope becomes ready.
func WithCategories(handlers map[string]Handler) container.Feature {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	install := func(in *container.Injector) error {
		l, err := container.Get(in, LoggerKey)
		if err != nil {
			return err
		}
		for _, name := range names {
			l.AddHandler(name, handlers[name])
		}
		return nil
	}
	return container.NewFeature(KindCategories, container.NewBundle(container.OnInit(install)))
}

// WithFilter drops entries f does not allow.
func WithFilter(f Filter) container.Feature {
	return container.NewFeature(KindFilter, container.NewBundle(container.Value(FilterKey, f)))
}

// WithSilence drops everything this scope's logger receives. Chained
// forwarding still happens.
func WithSilence() container.Feature {
	deny := FilterFunc(func(Entry) bool { return false })
	return container.NewFeature(KindSilent, container.NewBundle(container.Value[Filter](FilterKey, deny)))
}

// WithFields attaches fields to every entry. May be given more than once.
func WithFields(fields ...Field) container.Feature {
	bindings := make([]container.Binding, 0, len(fields))
	for _, f := range fields {
		bindings = append(bindings, container.Value(FieldsKey, f))
	}
	return container.NewFeature(KindFields, container.NewBundle(bindings...))
}

// WithZap mirrors entries into l.
func WithZap(l *zap.Logger) container.Feature {
	return container.NewFeature(KindZap, container.NewBundle(container.Value(AppendersKey, ZapAppender(l))))
}

// WithAppender adds a. May be given more than once.
func WithAppender(a Appender) container.Feature {
	return container.NewFeature(KindAppender, container.NewBundle(container.Value(AppendersKey, a)))
}

// ── Provider factory ────────────────────────────────────────────────────────

// Provide merges o over DefaultConfig, validates features against Rules and
// returns the bundle to activate a scope with. It has no side effects; the
// same arguments always give an equivalent bundle.
func Provide(o Options, features ...container.Feature) (container.Bundle, error) {
	cfg := Merge(DefaultConfig(), o)

	bindings := []container.Binding{
		container.Value(ConfigKey, cfg),
		container.Value(FormatterKey, cfg.Formatter),
	}
	for _, a := range cfg.Appenders {
		bindings = append(bindings, container.Value(AppendersKey, a))
	}
	bindings = append(bindings,
		container.Factory(LoggerKey, scopeLogger),
		container.Factory(parentKey, resolveParent),
		container.Constructor(localKey, assemble,
			container.Dep(ConfigKey, container.Self()),
			container.Dep(FormatterKey, container.Self()),
			container.Dep(AppendersKey, container.Self(), container.Optional()),
			container.Dep(FilterKey, container.Self(), container.Optional()),
			container.Dep(FieldsKey, container.Self(), container.Optional()),
			container.Dep(parentKey),
		),
	)
	return container.Fold(container.NewBundle(bindings...), Rules, features...)
}

// scopeLogger hands a scope without logging bindings of its own the logger of
// its nearest ancestor that has them.
func scopeLogger(in *container.Injector) (*Logger, error) {
	if !in.Owns(ConfigKey.Token()) {
		return container.Get(in, LoggerKey, container.SkipSelf())
	}
	return container.Get(in, localKey)
}

// resolveParent looks past the requesting scope only when chaining is on, so
// an unchained logger never instantiates its ancestors.
func resolveParent(in *container.Injector) (*Logger, error) {
	cfg, err := container.Get(in, ConfigKey)
	if err != nil || !cfg.Chain {
		return nil, err
	}
	return container.Get(in, LoggerKey, container.SkipSelf(), container.Optional())
}

func assemble(cfg Config, f Formatter, appenders []Appender, filter Filter, fields []Field, parent *Logger) *Logger {
	cfg.Formatter = f
	cfg.Appenders = appenders
	return newLogger(cfg, filter, fields, parent)
}
