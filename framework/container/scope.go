package container

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a scope's position in its lifecycle.
type State uint8

const (
	// StateBuilding accepts bundles; nothing can be resolved yet.
	StateBuilding State = iota
	// StateInitializing is the window in which initializers run.
	StateInitializing
	// StateReady scopes resolve and no longer accept bundles.
	StateReady
	// StateFailed scopes had an initializer fail and are unusable.
	StateFailed
	// StateDestroyed scopes have released their bindings and cache.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Disposable is implemented by produced instances that hold resources.
// Destroy disposes them in reverse creation order.
type Disposable interface {
	Dispose() error
}

// tree is shared by every scope descending from one root. Its lock
// serializes instance construction so a producer runs at most once per
// requesting scope even under concurrent lookups.
type tree struct {
	build sync.Mutex
}

// bindingRef identifies one multi binding by owner scope and position.
type bindingRef struct {
	owner *Scope
	token *Token
	index int
}

// Scope is one node in a tree of environments. It owns its binding table
// and instance cache; it references its parent but never its children.
type Scope struct {
	id        string
	name      string
	parent    *Scope
	depth     int
	tree      *tree
	log       *zap.Logger
	observers []Observer

	mu       sync.RWMutex
	state    State
	bindings map[*Token][]Binding
	values   map[*Token]any     // single-valued instances
	members  map[bindingRef]any // multi-valued instances, per binding
	created  []any              // produced instances, creation order
}

// ScopeOption configures a scope at creation.
type ScopeOption func(*Scope)

// WithName labels the scope in logs and errors.
func WithName(name string) ScopeOption {
	return func(s *Scope) { s.name = name }
}

// WithLogger sets the zap logger used for lifecycle events. Children inherit it.
func WithLogger(log *zap.Logger) ScopeOption {
	return func(s *Scope) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver adds an observer. Children inherit their parent's observers.
func WithObserver(o Observer) ScopeOption {
	return func(s *Scope) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewRoot creates an empty root scope in StateBuilding.
//
//	root := container.NewRoot(container.WithName("root"))
//	_ = root.Apply(bundle)
//	_ = root.Ready()
func NewRoot(opts ...ScopeOption) *Scope {
	s := newScope(nil, &tree{}, zap.NewNop(), nil)
	s.name = "root"
	for _, opt := range opts {
		opt(s)
	}
	s.announce()
	return s
}

// NewChild creates an empty scope linked to s. The parent must be ready, so
// its initializers have run before anything below it can resolve.
func (s *Scope) NewChild(opts ...ScopeOption) (*Scope, error) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateReady {
		return nil, &LifecycleError{Scope: s.String(), State: state, Op: "create child of"}
	}

	child := newScope(s, s.tree, s.log, append([]Observer(nil), s.observers...))
	child.name = fmt.Sprintf("%s/%d", s.name, child.depth)
	for _, opt := range opts {
		opt(child)
	}
	child.announce()
	return child, nil
}

func newScope(parent *Scope, t *tree, log *zap.Logger, observers []Observer) *Scope {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Scope{
		id:        uuid.NewString(),
		parent:    parent,
		depth:     depth,
		tree:      t,
		log:       log,
		observers: observers,
		state:     StateBuilding,
		bindings:  make(map[*Token][]Binding),
		values:    make(map[*Token]any),
		members:   make(map[bindingRef]any),
	}
}

func (s *Scope) announce() {
	s.log.Debug("scope created",
		zap.String("scope", s.name),
		zap.String("id", s.id),
		zap.Int("depth", s.depth))
	for _, o := range s.observers {
		o.ScopeCreated(s)
	}
}

// Activate creates a child of parent (or a root when parent is nil), applies
// b and runs initializers. On failure the new scope is destroyed and the
// error returned.
func Activate(parent *Scope, b Bundle, opts ...ScopeOption) (*Scope, error) {
	var s *Scope
	if parent == nil {
		s = NewRoot(opts...)
	} else {
		child, err := parent.NewChild(opts...)
		if err != nil {
			return nil, err
		}
		s = child
	}

	if err := s.Apply(b); err != nil {
		_ = s.Destroy()
		return nil, err
	}
	if err := s.Ready(); err != nil {
		_ = s.Destroy()
		return nil, err
	}
	return s, nil
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// ID returns the scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Name returns the scope's label.
func (s *Scope) Name() string { return s.name }

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// Depth is 0 for a root and grows by one per nesting level.
func (s *Scope) Depth() int { return s.depth }

// State returns the current lifecycle state.
func (s *Scope) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scope) String() string {
	return fmt.Sprintf("%s(%.8s)", s.name, s.id)
}

// Bound reports whether t has a binding in s or any ancestor.
func (s *Scope) Bound(t *Token) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if len(sc.bindingsFor(t)) > 0 {
			return true
		}
	}
	return false
}

// Owns reports whether t has a binding in s itself.
func (s *Scope) Owns(t *Token) bool {
	return len(s.bindingsFor(t)) > 0
}

func (s *Scope) bindingsFor(t *Token) []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindings[t]
}

// ── Construction phase ────────────────────────────────────────────────────────

// Apply appends b's bindings to the scope's table in order. It is only valid
// while the scope is building. Every binding is validated before any is
// applied. Applying a bundle twice registers its bindings twice.
func (s *Scope) Apply(b Bundle) error {
	for _, bd := range b.bindings {
		if bd.token == nil {
			return &InvalidBindingError{Reason: "binding has no token"}
		}
		if bd.invalid != nil {
			return bd.invalid
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBuilding {
		return &LifecycleError{Scope: s.String(), State: s.state, Op: "apply bundle to"}
	}
	for _, bd := range b.bindings {
		s.bindings[bd.token] = append(s.bindings[bd.token], bd)
	}

	s.log.Debug("bundle applied",
		zap.String("scope", s.name),
		zap.Int("bindings", b.Len()))
	return nil
}

// Ready closes the construction phase: it runs the scope's initializers in
// registration order and marks the scope ready. A failing initializer leaves
// the scope in StateFailed. Calling Ready on a ready scope is a no-op.
//
// Initializers resolve through the Injector they receive.
func (s *Scope) Ready() error {
	s.tree.build.Lock()
	defer s.tree.build.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateBuilding:
		s.state = StateInitializing
		s.mu.Unlock()
	default:
		state := s.state
		s.mu.Unlock()
		return &LifecycleError{Scope: s.String(), State: state, Op: "ready"}
	}

	if err := s.runInitializers(); err != nil {
		s.setState(StateFailed)
		s.log.Warn("scope initialization failed", zap.String("scope", s.name), zap.Error(err))
		return err
	}

	s.setState(StateReady)
	s.log.Debug("scope ready", zap.String("scope", s.name))
	return nil
}

func (s *Scope) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Destroy invalidates the scope: bindings and cached instances are dropped
// and produced Disposable instances are disposed in reverse creation order.
// Ancestors are untouched and children are not destroyed; a child keeps its
// own bindings but no longer sees this scope's. Destroy is idempotent.
func (s *Scope) Destroy() error {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return nil
	}
	created := s.created
	s.state = StateDestroyed
	s.bindings = make(map[*Token][]Binding)
	s.values = make(map[*Token]any)
	s.members = make(map[bindingRef]any)
	s.created = nil
	s.mu.Unlock()

	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		if d, ok := created[i].(Disposable); ok {
			if err := d.Dispose(); err != nil {
				errs = append(errs, fmt.Errorf("dispose %T: %w", created[i], err))
			}
		}
	}

	s.log.Debug("scope destroyed", zap.String("scope", s.name), zap.Int("disposed", len(created)))
	for _, o := range s.observers {
		o.ScopeDestroyed(s)
	}
	return errors.Join(errs...)
}
