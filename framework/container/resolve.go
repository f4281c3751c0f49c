package container

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// ResolveOption adjusts a single lookup.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	optional bool
	skipSelf bool
	self     bool
}

func newResolveOptions(opts []ResolveOption) resolveOptions {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Optional turns a missing binding into an absent result instead of an error.
func Optional() ResolveOption {
	return func(o *resolveOptions) { o.optional = true }
}

// SkipSelf starts the lookup at the parent scope. The parent is then the
// requesting scope, so its own cached instance is returned.
func SkipSelf() ResolveOption {
	return func(o *resolveOptions) { o.skipSelf = true }
}

// Self restricts the lookup to the starting scope; ancestors are not walked.
func Self() ResolveOption {
	return func(o *resolveOptions) { o.self = true }
}

// Resolver is anything tokens can be resolved from: a Scope, or the Injector
// handed to producers and initializers.
type Resolver interface {
	Resolve(t *Token, opts ...ResolveOption) (any, error)
	ResolveAll(t *Token, opts ...ResolveOption) ([]any, error)
}

// frame is one step of an in-flight resolution, used for cycle detection.
type frame struct {
	scope *Scope
	token *Token
}

// Injector resolves on behalf of a producer or initializer. It is bound to
// the requesting scope and remembers the resolution path.
//
// The scope itself is not exposed: producers run under the tree's build
// lock, and resolving through a *Scope from inside one would block on it.
type Injector struct {
	scope *Scope
	path  []frame
	lent  []Disposable // disposables handed out, owned elsewhere
}

// ID returns the requesting scope's identifier.
func (in *Injector) ID() string { return in.scope.id }

// Name returns the requesting scope's label.
func (in *Injector) Name() string { return in.scope.name }

// Owns reports whether t has a binding in the requesting scope itself.
func (in *Injector) Owns(t *Token) bool { return in.scope.Owns(t) }

// Resolve looks up a single-valued token from the injector's scope.
func (in *Injector) Resolve(t *Token, opts ...ResolveOption) (any, error) {
	v, err := in.scope.resolveSingle(in.path, t, newResolveOptions(opts))
	if err == nil {
		in.lend(v)
	}
	return v, err
}

// ResolveAll looks up a multi-valued token from the injector's scope.
func (in *Injector) ResolveAll(t *Token, opts ...ResolveOption) ([]any, error) {
	vs, err := in.scope.resolveMulti(in.path, t, newResolveOptions(opts))
	if err == nil {
		for _, v := range vs {
			in.lend(v)
		}
	}
	return vs, err
}

func (in *Injector) lend(v any) {
	if d, ok := v.(Disposable); ok {
		in.lent = append(in.lent, d)
	}
}

// borrowed reports whether v is an instance the producer obtained through
// the injector rather than built itself. Such instances belong to the scope
// that produced them and are not disposed again by the requester.
func (in *Injector) borrowed(v any) bool {
	d, ok := v.(Disposable)
	if !ok || !reflect.TypeOf(v).Comparable() {
		return false
	}
	for _, l := range in.lent {
		if l == d {
			return true
		}
	}
	return false
}

// ── Scope entry points ────────────────────────────────────────────────────────

// Resolve returns the winning value for a single-valued token: the nearest
// scope holding a binding wins, and within that scope the last registered
// binding wins. The produced value is cached in the requesting scope.
// Producers and initializers resolve through their Injector instead.
//
//	v, err := scope.Resolve(ConfigKey.Token(), container.Optional())
func (s *Scope) Resolve(t *Token, opts ...ResolveOption) (any, error) {
	o := newResolveOptions(opts)
	if v, ok := s.cached(t, o); ok {
		s.notify(t, true, nil)
		return v, nil
	}

	s.tree.build.Lock()
	defer s.tree.build.Unlock()
	return s.resolveSingle(nil, t, o)
}

// ResolveAll returns every value bound to a multi-valued token along the
// chain: root scope's bindings first, the nearest scope's last, registration
// order within each scope.
//
// Like Resolve it must not be called from a producer or initializer; those
// resolve through their Injector.
func (s *Scope) ResolveAll(t *Token, opts ...ResolveOption) ([]any, error) {
	s.tree.build.Lock()
	defer s.tree.build.Unlock()
	return s.resolveMulti(nil, t, newResolveOptions(opts))
}

// cached is the lock-light fast path for repeat single-valued lookups.
func (s *Scope) cached(t *Token, o resolveOptions) (any, bool) {
	if t == nil || t.multi != Single || o.skipSelf {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady || (o.self && len(s.bindings[t]) == 0) {
		return nil, false
	}
	v, ok := s.values[t]
	return v, ok
}

// ── Resolution core (caller holds tree.build) ─────────────────────────────────

// start picks the requesting scope for a lookup and checks it may resolve.
// A nil scope with no error means SkipSelf ran past the root.
func (s *Scope) start(o resolveOptions) (*Scope, error) {
	target := s
	if o.skipSelf {
		target = s.parent
		if target == nil {
			return nil, nil
		}
	}

	target.mu.RLock()
	state := target.state
	target.mu.RUnlock()
	if state != StateReady && state != StateInitializing {
		return nil, &LifecycleError{Scope: target.String(), State: state, Op: "resolve from"}
	}
	return target, nil
}

func (s *Scope) resolveSingle(path []frame, t *Token, o resolveOptions) (any, error) {
	if t == nil {
		return nil, &InvalidBindingError{Reason: "cannot resolve nil token"}
	}
	if t.multi != Single {
		return nil, &MultiplicityMismatchError{Token: t, Requested: Single}
	}

	target, err := s.start(o)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return s.absent(t, o)
	}

	// A value cached from an ancestor's binding is not the scope's own.
	target.mu.RLock()
	v, ok := target.values[t]
	if o.self && len(target.bindings[t]) == 0 {
		ok = false
	}
	target.mu.RUnlock()
	if ok {
		target.notify(t, true, nil)
		return v, nil
	}

	var winner *Binding
	for sc := target; sc != nil; sc = sc.parent {
		if bs := sc.bindingsFor(t); len(bs) > 0 {
			winner = &bs[len(bs)-1]
			break
		}
		if o.self {
			break
		}
	}
	if winner == nil {
		return target.absent(t, o)
	}

	v, err = target.produce(path, t, *winner)
	if err != nil {
		target.notify(t, false, err)
		return nil, err
	}

	target.mu.Lock()
	target.values[t] = v
	target.mu.Unlock()
	target.notify(t, false, nil)
	return v, nil
}

func (s *Scope) resolveMulti(path []frame, t *Token, o resolveOptions) ([]any, error) {
	if t == nil {
		return nil, &InvalidBindingError{Reason: "cannot resolve nil token"}
	}
	if t.multi != Multi {
		return nil, &MultiplicityMismatchError{Token: t, Requested: Multi}
	}

	target, err := s.start(o)
	if err != nil {
		return nil, err
	}
	if target == nil {
		_, err := s.absent(t, o)
		return nil, err
	}

	// Groups are gathered nearest-first and emitted root-first.
	type group struct {
		owner    *Scope
		bindings []Binding
	}
	var groups []group
	for sc := target; sc != nil; sc = sc.parent {
		if bs := sc.bindingsFor(t); len(bs) > 0 {
			groups = append(groups, group{owner: sc, bindings: bs})
		}
		if o.self {
			break
		}
	}
	if len(groups) == 0 {
		_, err := target.absent(t, o)
		return nil, err
	}

	var out []any
	hit := true
	for g := len(groups) - 1; g >= 0; g-- {
		for i, bd := range groups[g].bindings {
			ref := bindingRef{owner: groups[g].owner, token: t, index: i}

			target.mu.RLock()
			v, ok := target.members[ref]
			target.mu.RUnlock()
			if !ok {
				hit = false
				v, err = target.produce(path, t, bd)
				if err != nil {
					target.notify(t, false, err)
					return nil, err
				}
				target.mu.Lock()
				target.members[ref] = v
				target.mu.Unlock()
			}
			out = append(out, v)
		}
	}
	target.notify(t, hit, nil)
	return out, nil
}

// produce runs a binding's producer for the requesting scope s.
func (s *Scope) produce(path []frame, t *Token, bd Binding) (any, error) {
	for _, f := range path {
		if f.scope == s && f.token == t {
			cycle := make([]*Token, 0, len(path)+1)
			for _, p := range path {
				cycle = append(cycle, p.token)
			}
			return nil, &CircularDependencyError{Path: append(cycle, t)}
		}
	}

	in := &Injector{
		scope: s,
		path:  append(append(make([]frame, 0, len(path)+1), path...), frame{scope: s, token: t}),
	}
	v, err := bd.produce(in)
	if err != nil {
		return nil, &ResolutionError{Token: t, Scope: s.String(), Cause: err}
	}

	if bd.kind != ValueProducer && !in.borrowed(v) {
		s.mu.Lock()
		s.created = append(s.created, v)
		s.mu.Unlock()
		s.log.Debug("instance created",
			zap.String("scope", s.name),
			zap.Stringer("token", t),
			zap.Stringer("producer", bd.kind))
	}
	return v, nil
}

func (s *Scope) absent(t *Token, o resolveOptions) (any, error) {
	if o.optional {
		return nil, nil
	}
	err := &MissingBindingError{Token: t, Scope: s.String()}
	s.notify(t, false, err)
	return nil, err
}

func (s *Scope) notify(t *Token, cached bool, err error) {
	for _, o := range s.observers {
		o.Resolved(s, t, cached, err)
	}
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

// Get resolves a single-valued key and asserts the value's type. An absent
// optional binding yields T's zero value.
//
//	cfg, err := container.Get(scope, ConfigKey)
func Get[T any](r Resolver, k Key[T], opts ...ResolveOption) (T, error) {
	var zero T
	v, err := r.Resolve(k.token, opts...)
	if err != nil || v == nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{
			Token: k.token,
			Scope: scopeName(r),
			Cause: fmt.Errorf("resolved to %T, want %T", v, zero),
		}
	}
	return typed, nil
}

// MustGet is Get for wiring code where a failure is a programming error.
func MustGet[T any](r Resolver, k Key[T], opts ...ResolveOption) T {
	v, err := Get(r, k, opts...)
	if err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	return v
}

// All resolves a multi-valued key and asserts every element's type.
//
//	plugins, err := container.All(scope, PluginsKey, container.Optional())
func All[T any](r Resolver, k Key[T], opts ...ResolveOption) ([]T, error) {
	raw, err := r.ResolveAll(k.token, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, v := range raw {
		typed, ok := v.(T)
		if !ok && v != nil {
			var zero T
			return nil, &ResolutionError{
				Token: k.token,
				Scope: scopeName(r),
				Cause: fmt.Errorf("element %d resolved to %T, want %T", i, v, zero),
			}
		}
		out = append(out, typed)
	}
	return out, nil
}

func scopeName(r Resolver) string {
	switch v := r.(type) {
	case *Scope:
		return v.String()
	case *Injector:
		return v.scope.String()
	default:
		return fmt.Sprintf("%T", r)
	}
}
