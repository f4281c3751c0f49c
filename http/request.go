package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/km-arc/go-scopes/framework/container"
	"github.com/km-arc/go-scopes/framework/logging"
	"github.com/km-arc/go-scopes/routing"
)

// Request wraps *http.Request with JSON binding and scope access.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON request body into v. Unknown fields are rejected.
func (req *Request) Bind(v any) error {
	if ct := req.raw.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return errors.New("unsupported content type " + ct)
	}
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter.
func (req *Request) RouteParam(key string) string {
	return routing.Param(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// ── Scope ────────────────────────────────────────────────────────────────────

// Scope returns the container scope the request is served from.
func (req *Request) Scope() (*container.Scope, bool) {
	return routing.ScopeFrom(req.raw.Context())
}

// Logger returns the logger of the request's scope, or nil.
func (req *Request) Logger() *logging.Logger {
	return routing.LoggerFrom(req.raw.Context())
}
