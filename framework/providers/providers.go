package providers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-scopes/framework/config"
	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
	"github.com/km-arc/go-scopes/framework/metrics"
)

// ConfigKey is the token the application configuration is bound under.
var ConfigKey = container.NewKey[*config.Config]("config")

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded application configuration.
//
// Bound tokens:
//   - ConfigKey → *config.Config
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Bundle() (container.Bundle, error) {
	if p.Config == nil {
		return container.Bundle{}, fmt.Errorf("config provider: no configuration loaded")
	}
	return container.NewBundle(container.Value(ConfigKey, p.Config)), nil
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider installs the root logging service, configured from
// LOG_* variables and, when LOG_FILE is set, the YAML options in that file.
//
// Bound tokens:
//   - logging.ConfigKey, logging.FormatterKey, logging.AppendersKey
//   - logging.LoggerKey → *logging.Logger
type LoggingServiceProvider struct {
	Config   *config.Config
	Zap      *zap.Logger // used when LOG_ZAP is set
	Features []container.Feature
}

func (p *LoggingServiceProvider) Bundle() (container.Bundle, error) {
	var lc config.LogConfig
	name := "app"
	if p.Config != nil {
		lc = p.Config.Log
		name = p.Config.App.Name
	}

	o, err := LogOptions(lc)
	if err != nil {
		return container.Bundle{}, err
	}
	if o.Name == nil {
		o = o.WithName(name)
	}

	features := append([]container.Feature(nil), p.Features...)
	if lc.Zap && p.Zap != nil {
		features = append(features, logging.WithZap(p.Zap))
	}
	return logging.Provide(o, features...)
}

// Boot builds the root logger eagerly so configuration errors surface at
// startup rather than on the first log call.
func (p *LoggingServiceProvider) Boot(in *container.Injector) error {
	l, err := container.Get(in, logging.LoggerKey)
	if err != nil {
		return err
	}
	l.Debug("logging ready", logging.F("level", l.Config().Level.String()))
	return nil
}

// LogOptions turns LOG_* settings into logging options. Values from the
// options file win over the environment.
func LogOptions(lc config.LogConfig) (logging.Options, error) {
	var o logging.Options
	if lc.Level != "" {
		l, err := logging.ParseLevel(lc.Level)
		if err != nil {
			return logging.Options{}, err
		}
		o = o.WithLevel(l)
	}
	if lc.Format != "" {
		f, err := logging.FormatterByName(lc.Format)
		if err != nil {
			return logging.Options{}, err
		}
		o = o.WithFormatter(f)
	}
	if lc.Chain {
		o = o.WithChain(true)
	}
	if lc.File != "" {
		file, err := logging.LoadOptions(lc.File)
		if err != nil {
			return logging.Options{}, err
		}
		o = o.Overlay(file)
	}
	return o, nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the collector and adds its counting appender
// to the logger of the scope it is applied to.
//
// Bound tokens:
//   - metrics.CollectorKey → *metrics.Collector
//   - logging.AppendersKey (one extra member)
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Bundle() (container.Bundle, error) {
	if p.Collector == nil {
		return container.Bundle{}, nil
	}
	return container.NewBundle(
		container.Value(metrics.CollectorKey, p.Collector),
		container.Value(logging.AppendersKey, p.Collector.Appender()),
	), nil
}
