package logging_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
)

// ── helpers ─────────────────────────────────────────────────────────────────

func scoped(t *testing.T, parent *container.Scope, o logging.Options, features ...container.Feature) (*container.Scope, *logging.Logger) {
	t.Helper()
	b, err := logging.Provide(o, features...)
	require.NoError(t, err)
	s, err := container.Activate(parent, b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Destroy() })

	l, err := container.Get(s, logging.LoggerKey)
	require.NoError(t, err)
	return s, l
}

func messages(m *logging.MemoryAppender) []string {
	var out []string
	for _, e := range m.Entries() {
		out = append(out, e.Message)
	}
	return out
}

// ── Provide ─────────────────────────────────────────────────────────────────

func TestProvide_BindsMergedConfig(t *testing.T) {
	mem := &logging.MemoryAppender{}
	s, l := scoped(t, nil, logging.Options{}.WithName("api").WithAppenders(mem))

	cfg, err := container.Get(s, logging.ConfigKey)
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.Name)
	assert.Equal(t, logging.InfoLevel, cfg.Level)
	assert.False(t, cfg.Chain)

	appenders, err := container.All(s, logging.AppendersKey)
	require.NoError(t, err)
	assert.Equal(t, []logging.Appender{mem}, appenders)

	l.Debug("hidden")
	l.Info("shown", logging.F("user", 7))
	require.Equal(t, []string{"shown"}, messages(mem))
	assert.Equal(t, "api", mem.Entries()[0].Logger)
	assert.Equal(t, []logging.Field{logging.F("user", 7)}, mem.Entries()[0].Fields)
}

func TestProvide_IsPure(t *testing.T) {
	o := logging.Options{}.WithLevel(logging.DebugLevel)
	a, err := logging.Provide(o, logging.WithFields(logging.F("k", "v")))
	require.NoError(t, err)
	b, err := logging.Provide(o, logging.WithFields(logging.F("k", "v")))
	require.NoError(t, err)

	assert.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Tokens(), b.Tokens())
}

func TestProvide_NoAppenders(t *testing.T) {
	_, l := scoped(t, nil, logging.Options{}.WithAppenders())
	assert.NotPanics(t, func() { l.Error("nowhere to go") })
}

func TestLogger_IsPerScope(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	childMem := &logging.MemoryAppender{}
	root, rootLog := scoped(t, nil, logging.Options{}.WithAppenders(rootMem))
	_, childLog := scoped(t, root, logging.Options{}.WithLevel(logging.DebugLevel).WithAppenders(childMem))

	assert.NotSame(t, rootLog, childLog)

	childLog.Debug("child detail")
	rootLog.Debug("root detail")

	assert.Equal(t, []string{"child detail"}, messages(childMem))
	assert.Empty(t, rootMem.Entries())
}

func TestLogger_ScopeWithoutBundleSharesAncestor(t *testing.T) {
	mem := &logging.MemoryAppender{}
	root, rootLog := scoped(t, nil, logging.Options{}.WithAppenders(mem))
	child, err := container.Activate(root, container.NewBundle())
	require.NoError(t, err)
	t.Cleanup(func() { _ = child.Destroy() })

	childLog, err := container.Get(child, logging.LoggerKey)
	require.NoError(t, err)
	assert.Same(t, rootLog, childLog)
}

func TestLogger_AppendersAreScopeLocal(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	childMem := &logging.MemoryAppender{}
	root, _ := scoped(t, nil, logging.Options{}.WithAppenders(rootMem), logging.WithFields(logging.F("tier", "root")))
	_, childLog := scoped(t, root, logging.Options{}.WithAppenders(childMem))

	childLog.Info("hello")
	assert.Empty(t, rootMem.Entries())
	require.Len(t, childMem.Entries(), 1)
	assert.Empty(t, childMem.Entries()[0].Fields)
}

func TestLogger_OffLevel(t *testing.T) {
	mem := &logging.MemoryAppender{}
	_, l := scoped(t, nil, logging.Options{}.WithLevel(logging.OffLevel).WithAppenders(mem))

	assert.False(t, l.Enabled(logging.ErrorLevel))
	l.Error("dropped")
	assert.Empty(t, mem.Entries())
}

func TestLogger_AppenderFailuresAreCounted(t *testing.T) {
	broken := logging.AppenderFunc(func(logging.Entry, string) error { return errors.New("disk full") })
	_, l := scoped(t, nil, logging.Options{}.WithAppenders(broken))

	l.Info("one")
	l.Info("two")
	assert.EqualValues(t, 2, l.Failures())
}

// ── Chain ───────────────────────────────────────────────────────────────────

func TestChain_ForwardsToAncestorWhenSet(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	childMem := &logging.MemoryAppender{}
	root, rootLog := scoped(t, nil, logging.Options{}.WithName("root").WithAppenders(rootMem))
	_, childLog := scoped(t, root, logging.Options{}.WithName("admin").WithChain(true).WithAppenders(childMem))

	assert.Same(t, rootLog, childLog.Parent())

	childLog.Warn("from admin")
	assert.Equal(t, []string{"from admin"}, messages(childMem))
	require.Equal(t, []string{"from admin"}, messages(rootMem))
	assert.Equal(t, "admin", rootMem.Entries()[0].Logger)
}

func TestChain_DoesNotForwardWhenUnset(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	root, _ := scoped(t, nil, logging.Options{}.WithAppenders(rootMem))
	_, childLog := scoped(t, root, logging.Options{}.WithAppenders(&logging.MemoryAppender{}))

	assert.Nil(t, childLog.Parent())
	childLog.Error("local only")
	assert.Empty(t, rootMem.Entries())
}

func TestChain_ParentAppliesItsOwnLevel(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	root, _ := scoped(t, nil, logging.Options{}.WithLevel(logging.WarnLevel).WithAppenders(rootMem))
	_, childLog := scoped(t, root, logging.Options{}.WithLevel(logging.DebugLevel).WithChain(true).WithAppenders())

	childLog.Debug("too quiet for root")
	childLog.Error("loud enough")
	assert.Equal(t, []string{"loud enough"}, messages(rootMem))
}

func TestChain_FromRootHasNoParent(t *testing.T) {
	_, l := scoped(t, nil, logging.Options{}.WithChain(true).WithAppenders())
	assert.Nil(t, l.Parent())
}

func TestChain_SpansInterposedScopes(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	root, _ := scoped(t, nil, logging.Options{}.WithAppenders(rootMem))
	middle, err := container.Activate(root, container.NewBundle())
	require.NoError(t, err)
	_, leaf := scoped(t, middle, logging.Options{}.WithChain(true).WithAppenders())

	leaf.Info("deep")
	assert.Equal(t, []string{"deep"}, messages(rootMem))
}

// ── Features ────────────────────────────────────────────────────────────────

func TestFeatures_Rejected(t *testing.T) {
	allow := logging.FilterFunc(func(logging.Entry) bool { return true })
	nop := zap.NewNop()

	tests := []struct {
		name     string
		features []container.Feature
		want     error
	}{
		{"two filters", []container.Feature{logging.WithFilter(allow), logging.WithFilter(allow)}, container.ErrFeatureCardinality},
		{"two zap bridges", []container.Feature{logging.WithZap(nop), logging.WithZap(nop)}, container.ErrFeatureCardinality},
		{"two category sets", []container.Feature{logging.WithCategories(nil), logging.WithCategories(nil)}, container.ErrFeatureCardinality},
		{"silence and filter", []container.Feature{logging.WithSilence(), logging.WithFilter(allow)}, container.ErrFeatureConflict},
		{"zap and silence", []container.Feature{logging.WithZap(nop), logging.WithSilence()}, container.ErrFeatureConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := logging.Provide(logging.Options{}, tt.features...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFeatures_UnboundedKinds(t *testing.T) {
	a, b := &logging.MemoryAppender{}, &logging.MemoryAppender{}
	_, l := scoped(t, nil, logging.Options{}.WithAppenders(),
		logging.WithFields(logging.F("svc", "api")),
		logging.WithFields(logging.F("region", "eu")),
		logging.WithAppender(a),
		logging.WithAppender(b),
	)

	l.Info("hello")
	require.Len(t, a.Entries(), 1)
	require.Len(t, b.Entries(), 1)
	assert.Equal(t, []logging.Field{logging.F("svc", "api"), logging.F("region", "eu")}, a.Entries()[0].Fields)
}

func TestFeatures_Filter(t *testing.T) {
	mem := &logging.MemoryAppender{}
	noHealth := logging.FilterFunc(func(e logging.Entry) bool { return e.Message != "healthz" })
	_, l := scoped(t, nil, logging.Options{}.WithAppenders(mem), logging.WithFilter(noHealth))

	l.Info("healthz")
	l.Info("order placed")
	assert.Equal(t, []string{"order placed"}, messages(mem))
}

func TestFeatures_SilenceStillChains(t *testing.T) {
	rootMem := &logging.MemoryAppender{}
	childMem := &logging.MemoryAppender{}
	root, _ := scoped(t, nil, logging.Options{}.WithAppenders(rootMem))
	_, child := scoped(t, root, logging.Options{}.WithChain(true).WithAppenders(childMem), logging.WithSilence())

	child.Error("muted here")
	assert.Empty(t, childMem.Entries())
	assert.Equal(t, []string{"muted here"}, messages(rootMem))
}

func TestFeatures_Zap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, l := scoped(t, nil, logging.Options{}.WithAppenders(), logging.WithZap(zap.New(core)))

	l.Info("bridged", logging.F("id", "42"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bridged", logs.All()[0].Message)
	assert.Equal(t, "42", logs.All()[0].ContextMap()["id"])
}

func TestFeatures_CategoriesInstalledOnReady(t *testing.T) {
	var audit, billing []string
	handlers := map[string]logging.Handler{
		"audit":   logging.HandlerFunc(func(e logging.Entry) { audit = append(audit, e.Message) }),
		"billing": logging.HandlerFunc(func(e logging.Entry) { billing = append(billing, e.Message) }),
	}
	_, l := scoped(t, nil, logging.Options{}.WithAppenders(), logging.WithCategories(handlers))

	assert.ElementsMatch(t, []string{"audit", "billing"}, l.Categories())

	l.Category("audit").Info("user deleted")
	l.Category("billing").Warn("card declined")
	l.Category("other").Error("unhandled category")
	l.Info("no category")

	assert.Equal(t, []string{"user deleted"}, audit)
	assert.Equal(t, []string{"card declined"}, billing)
}

func TestFeatures_CategoryHandlersRespectLevel(t *testing.T) {
	var got []string
	handlers := map[string]logging.Handler{
		"audit": logging.HandlerFunc(func(e logging.Entry) { got = append(got, e.Message) }),
	}
	_, l := scoped(t, nil, logging.Options{}.WithLevel(logging.WarnLevel).WithAppenders(), logging.WithCategories(handlers))

	l.Category("audit").Info("below threshold")
	l.Category("audit").Error("kept")
	assert.Equal(t, []string{"kept"}, got)
}

func TestFeatures_CategoriesAreScoped(t *testing.T) {
	var got []string
	handlers := map[string]logging.Handler{
		"audit": logging.HandlerFunc(func(e logging.Entry) { got = append(got, e.Message) }),
	}
	root, rootLog := scoped(t, nil, logging.Options{}.WithAppenders())
	_, childLog := scoped(t, root, logging.Options{}.WithAppenders(), logging.WithCategories(handlers))

	rootLog.Category("audit").Info("root")
	childLog.Category("audit").Info("child")
	assert.Equal(t, []string{"child"}, got)
}

func TestCategoryLogger_TagsEntries(t *testing.T) {
	mem := &logging.MemoryAppender{}
	_, l := scoped(t, nil, logging.Options{}.WithLevel(logging.TraceLevel).WithAppenders(mem))

	c := l.Category("db")
	c.Trace("t")
	c.Debug("d")
	c.Log(logging.InfoLevel, "i")

	require.Len(t, mem.Entries(), 3)
	for _, e := range mem.Entries() {
		assert.Equal(t, "db", e.Category)
	}
	assert.Equal(t, "db", c.Name())
}
