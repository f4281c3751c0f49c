// Package metrics exports container and logging activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
)

// CollectorKey is where the host binds its Collector.
var CollectorKey = container.NewKey[*Collector]("metrics.collector")

// Collector implements container.Observer and counts log entries through
// the appender returned by Appender.
type Collector struct {
	registry *prometheus.Registry

	scopesCreated   prometheus.Counter
	scopesDestroyed prometheus.Counter
	scopesActive    prometheus.Gauge
	resolutions     *prometheus.CounterVec
	logEntries      *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry. The Go runtime and
// process collectors are registered alongside.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scopesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_created_total",
			Help:      "Total number of scopes created",
		}),
		scopesDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_destroyed_total",
			Help:      "Total number of scopes destroyed",
		}),
		scopesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scopes_active",
			Help:      "Number of scopes created and not yet destroyed",
		}),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of token resolutions by outcome",
			},
			[]string{"token", "result"},
		),
		logEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_entries_total",
				Help:      "Total number of log entries emitted by level",
			},
			[]string{"logger", "level"},
		),
	}

	c.registry.MustRegister(
		c.scopesCreated,
		c.scopesDestroyed,
		c.scopesActive,
		c.resolutions,
		c.logEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry, e.g. for testutil.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ── container.Observer ──────────────────────────────────────────────────────

func (c *Collector) ScopeCreated(*container.Scope) {
	c.scopesCreated.Inc()
	c.scopesActive.Inc()
}

func (c *Collector) ScopeDestroyed(*container.Scope) {
	c.scopesDestroyed.Inc()
	c.scopesActive.Dec()
}

func (c *Collector) Resolved(_ *container.Scope, t *container.Token, cached bool, err error) {
	result := "built"
	switch {
	case err != nil:
		result = "error"
	case cached:
		result = "cached"
	}
	c.resolutions.WithLabelValues(t.String(), result).Inc()
}

// ── logging ─────────────────────────────────────────────────────────────────

// Appender counts every entry it receives. Bind it next to the real
// appenders of a scope's logger.
func (c *Collector) Appender() logging.Appender {
	return logging.AppenderFunc(func(e logging.Entry, _ string) error {
		c.logEntries.WithLabelValues(e.Logger, e.Level.String()).Inc()
		return nil
	})
}
