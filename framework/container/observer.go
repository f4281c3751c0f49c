package container

// Observer receives scope lifecycle and resolution events. Observers are
// called synchronously; implementations must be cheap and must not resolve.
type Observer interface {
	ScopeCreated(s *Scope)
	ScopeDestroyed(s *Scope)
	Resolved(s *Scope, t *Token, cached bool, err error)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnCreated   func(s *Scope)
	OnDestroyed func(s *Scope)
	OnResolved  func(s *Scope, t *Token, cached bool, err error)
}

func (f ObserverFuncs) ScopeCreated(s *Scope) {
	if f.OnCreated != nil {
		f.OnCreated(s)
	}
}

func (f ObserverFuncs) ScopeDestroyed(s *Scope) {
	if f.OnDestroyed != nil {
		f.OnDestroyed(s)
	}
}

func (f ObserverFuncs) Resolved(s *Scope, t *Token, cached bool, err error) {
	if f.OnResolved != nil {
		f.OnResolved(s, t, cached, err)
	}
}
