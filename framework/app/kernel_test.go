package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-scopes/framework/app"
	"github.com/km-arc/go-scopes/framework/config"
	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
	"github.com/km-arc/go-scopes/framework/providers"
	"github.com/km-arc/go-scopes/routing"
)

var greetingKey = container.NewKey[string]("greeting")

type greetingProvider struct {
	container.BaseProvider
	booted bool
}

func (p *greetingProvider) Bundle() (container.Bundle, error) {
	return container.NewBundle(container.Value(greetingKey, "hello")), nil
}

func (p *greetingProvider) Boot(in *container.Injector) error {
	_, err := container.Get(in, greetingKey)
	p.booted = err == nil
	return err
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "kernel", Env: "testing", Port: "0"},
		Log:     config.LogConfig{Level: "error", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newApp(t *testing.T) *app.Application {
	t.Helper()
	a, err := app.NewWithConfig(testConfig())
	require.NoError(t, err)
	return a
}

func TestApplication_BootComposesProviders(t *testing.T) {
	a := newApp(t)
	p := &greetingProvider{}
	a.Register(p)

	require.NoError(t, a.Boot())
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.True(t, p.booted)
	assert.Equal(t, container.StateReady, a.Scope().State())

	cfg, err := container.Get(a.Scope(), providers.ConfigKey)
	require.NoError(t, err)
	assert.Same(t, a.Config(), cfg)

	assert.Equal(t, "kernel", a.Logger().Name())
	assert.Equal(t, logging.ErrorLevel, a.Logger().Config().Level)
	assert.True(t, a.IsTesting())
}

func TestApplication_BootIsIdempotent(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Boot())
	t.Cleanup(func() { _ = a.Shutdown() })

	router := a.Router()
	require.NoError(t, a.Boot())
	assert.Same(t, router, a.Router())
}

func TestApplication_ServesMetrics(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Boot())
	t.Cleanup(func() { _ = a.Shutdown() })

	rr := httptest.NewRecorder()
	a.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "scopes_scopes_created_total 1")
}

func TestApplication_ShutdownDestroysScopes(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Boot())

	var admin *container.Scope
	b, err := logging.Provide(logging.Options{}.WithChain(true).WithAppenders())
	require.NoError(t, err)
	require.NoError(t, a.Router().Prefix("/admin", func(r *routing.Router) { admin = r.Scope() }, b))

	require.NoError(t, a.Shutdown())
	assert.Equal(t, container.StateDestroyed, admin.State())
	assert.Equal(t, container.StateDestroyed, a.Scope().State())
}

func TestApplication_BootFailsOnBadLogConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Level = "chatty"
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err, "zap falls back to info for unknown levels")

	assert.Error(t, a.Boot())
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	a := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))
	assert.Equal(t, container.StateDestroyed, a.Scope().State())
}

func TestFallbackLogger_IsNotSilent(t *testing.T) {
	l := app.FallbackLogger()
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
