package routing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
)

// Router wraps chi.Router and ties every route prefix to a container scope.
// Handlers find their scope with ScopeFrom.
type Router struct {
	mux   chi.Router
	scope *container.Scope
	owned *owned
}

// owned tracks the scopes a router tree activated, for Close.
type owned struct {
	mu     sync.Mutex
	scopes []*container.Scope
}

type ctxKey struct{}

// trail records the innermost route scope a request passed through, so the
// access log can write through that scope's logger.
type trail struct {
	scope *container.Scope
}

type trailKey struct{}

// New creates a Router bound to scope with sane defaults (RequestID, RealIP,
// Recoverer) and an access log written through the scope's logger.
func New(scope *container.Scope) *Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(bind(scope))
	return &Router{mux: r, scope: scope, owned: &owned{}}
}

// Scope returns the scope this router (or sub-router) serves from.
func (r *Router) Scope() *container.Scope { return r.scope }

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Any registers a handler for all common HTTP methods.
func (r *Router) Any(pattern string, h http.HandlerFunc) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.mux.Method(m, pattern, h)
	}
}

// Handle mounts an arbitrary handler, e.g. the metrics endpoint.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the router's scope.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx, scope: r.scope, owned: r.owned})
	})
}

// Prefix creates a sub-router for pattern served from a new child scope,
// activated with bundles. Bindings in bundles shadow the parent's for every
// route below pattern.
//
//	err := r.Prefix("/admin", func(admin *routing.Router) {
//	    admin.Get("/", dashboard)
//	}, adminLogging)
func (r *Router) Prefix(pattern string, fn func(r *Router), bundles ...container.Bundle) error {
	child, err := container.Activate(r.scope, container.CombineAll(bundles...), container.WithName(r.scope.Name()+pattern))
	if err != nil {
		return err
	}
	r.owned.add(child)

	r.mux.Route(pattern, func(mx chi.Router) {
		mx.Use(bind(child))
		fn(&Router{mux: mx, scope: child, owned: r.owned})
	})
	return nil
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// RequestScope gives every request its own scope, a child of the route's
// scope activated with bundles, destroyed when the handler returns. Like any
// chi middleware it must be added before the routes it wraps.
func (r *Router) RequestScope(bundles ...container.Bundle) {
	b := container.CombineAll(bundles...)
	r.mux.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			parent, ok := ScopeFrom(req.Context())
			if !ok {
				parent = r.scope
			}
			s, err := container.Activate(parent, b, container.WithName(parent.Name()+"/request"))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			defer func() { _ = s.Destroy() }()
			next.ServeHTTP(w, req.WithContext(WithScope(req.Context(), s)))
		})
	})
}

func bind(s *container.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if t, ok := req.Context().Value(trailKey{}).(*trail); ok {
				t.scope = s
			}
			next.ServeHTTP(w, req.WithContext(WithScope(req.Context(), s)))
		})
	}
}

// accessLog writes one entry per request through the logger of the innermost
// route scope the request reached. Nothing is logged when no logger is bound.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		t := &trail{}
		start := time.Now()
		next.ServeHTTP(ww, req.WithContext(context.WithValue(req.Context(), trailKey{}, t)))

		if t.scope == nil {
			return
		}
		l := loggerOf(t.scope)
		if l == nil {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := logging.InfoLevel
		if status >= http.StatusInternalServerError {
			level = logging.ErrorLevel
		}
		l.Category("http").Log(level, req.Method+" "+req.URL.Path,
			logging.F("status", status),
			logging.F("bytes", ww.BytesWritten()),
			logging.F("duration", time.Since(start).String()),
			logging.F("request_id", middleware.GetReqID(req.Context())),
		)
	})
}

// ── Context ──────────────────────────────────────────────────────────────────

// WithScope returns ctx carrying s.
func WithScope(ctx context.Context, s *container.Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// ScopeFrom returns the scope a request is being served from.
func ScopeFrom(ctx context.Context) (*container.Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*container.Scope)
	return s, ok && s != nil
}

// LoggerFrom resolves the logger of the request's scope, or nil.
func LoggerFrom(ctx context.Context) *logging.Logger {
	s, ok := ScopeFrom(ctx)
	if !ok {
		return nil
	}
	return loggerOf(s)
}

func loggerOf(s *container.Scope) *logging.Logger {
	l, err := container.Get(s, logging.LoggerKey, container.Optional())
	if err != nil {
		return nil
	}
	return l
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.Server.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}

// Close destroys every scope activated by Prefix, innermost first.
func (r *Router) Close() error {
	return r.owned.destroy()
}

func (o *owned) add(s *container.Scope) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scopes = append(o.scopes, s)
}

func (o *owned) destroy() error {
	o.mu.Lock()
	scopes := o.scopes
	o.scopes = nil
	o.mu.Unlock()

	var errs []error
	for i := len(scopes) - 1; i >= 0; i-- {
		errs = append(errs, scopes[i].Destroy())
	}
	return errors.Join(errs...)
}
