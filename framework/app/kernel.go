package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-scopes/framework/config"
	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
	"github.com/km-arc/go-scopes/framework/metrics"
	"github.com/km-arc/go-scopes/framework/providers"
	"github.com/km-arc/go-scopes/routing"
)

const shutdownTimeout = 10 * time.Second

// Application owns the root scope, the providers composed into it and the
// HTTP router serving from it.
type Application struct {
	Providers *container.ProviderRegistry

	cfg     *config.Config
	zap     *zap.Logger
	metrics *metrics.Collector
	root    *container.Scope
	router  *routing.Router
}

// New loads configuration and prepares the root scope. Register further
// providers, then call Boot.
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	return NewWithConfig(cfg)
}

// NewWithConfig is New for an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	zl, err := newZap(cfg.Log, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("app: build zap logger: %w", err)
	}

	opts := []container.ScopeOption{container.WithName("root"), container.WithLogger(zl.Named("container"))}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("scopes")
		opts = append(opts, container.WithObserver(collector))
	}

	registry := container.NewProviderRegistry()
	registry.Register(&providers.ConfigServiceProvider{Config: cfg})
	registry.Register(&providers.LoggingServiceProvider{Config: cfg, Zap: zl})
	registry.Register(&providers.MetricsServiceProvider{Collector: collector})

	return &Application{
		Providers: registry,
		cfg:       cfg,
		zap:       zl,
		metrics:   collector,
		root:      container.NewRoot(opts...),
	}, nil
}

// Register adds a ServiceProvider to the root composition.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot composes every registered provider into the root scope and makes it
// ready. Routes that activate child scopes can be declared afterwards.
func (a *Application) Boot() error {
	if a.Providers.Booted() {
		return nil
	}
	if err := a.Providers.ApplyTo(a.root); err != nil {
		return fmt.Errorf("app: boot: %w", err)
	}
	a.router = routing.New(a.root)
	if a.metrics != nil {
		a.router.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
	}
	a.zap.Debug("application booted", zap.Int("providers", len(a.Providers.Providers())))
	return nil
}

func (a *Application) Config() *config.Config { return a.cfg }

// Scope returns the root scope.
func (a *Application) Scope() *container.Scope { return a.root }

// Zap returns the host logger the container reports lifecycle events to.
func (a *Application) Zap() *zap.Logger { return a.zap }

// Metrics returns the collector, or nil when metrics are disabled.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Logger resolves the root logging service. It panics before Boot.
func (a *Application) Logger() *logging.Logger {
	return container.MustGet(a.root, logging.LoggerKey)
}

// Router returns the root router. It is nil before Boot.
func (a *Application) Router() *routing.Router { return a.router }

// Run boots the application (if needed) and serves HTTP until ctx is done,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.Logger().Info("listening",
		logging.F("app", a.cfg.App.Name),
		logging.F("addr", srv.Addr),
		logging.F("env", a.cfg.App.Env))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.Shutdown()
			return fmt.Errorf("app: serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	serveErr := srv.Shutdown(shutdownCtx)
	return errors.Join(serveErr, a.Shutdown())
}

// Shutdown destroys every route scope, then the root scope, and flushes the
// zap logger.
func (a *Application) Shutdown() error {
	var errs []error
	if a.router != nil {
		errs = append(errs, a.router.Close())
	}
	errs = append(errs, a.root.Destroy())
	_ = a.zap.Sync()
	return errors.Join(errs...)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.cfg.IsProduction() }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }

// ── zap ──────────────────────────────────────────────────────────────────────

// FallbackLogger is for failures before configuration is loaded: production
// JSON on stderr at info level.
func FallbackLogger() *zap.Logger {
	l, err := newZap(config.LogConfig{}, true)
	if err != nil {
		return zap.NewExample()
	}
	return l
}

// newZap builds the host logger: JSON in production or when LOG_FORMAT=json,
// console otherwise.
func newZap(lc config.LogConfig, production bool) (*zap.Logger, error) {
	var zc zap.Config
	if production || lc.Format == "json" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.MessageKey = "msg"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel(lc.Level))
	return zc.Build()
}

func zapLevel(level string) zapcore.Level {
	l, err := logging.ParseLevel(level)
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	switch l {
	case logging.TraceLevel, logging.DebugLevel:
		return zapcore.DebugLevel
	case logging.WarnLevel:
		return zapcore.WarnLevel
	case logging.ErrorLevel, logging.FatalLevel, logging.OffLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
