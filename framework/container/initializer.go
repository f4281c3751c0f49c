package container

import "fmt"

// Initializer is a one-shot callback run when its scope becomes ready. It may
// resolve any token from the scope through in, which makes it the place to
// cross-wire services after they are registered.
type Initializer func(in *Injector) error

// Initializers is the reserved multi token initializers are registered under.
var Initializers = NewMultiKey[Initializer]("initializers")

// OnInit registers fn to run when the scope it is applied to becomes ready.
//
//	container.NewBundle(
//	    container.Value(RegistryKey, registry),
//	    container.OnInit(func(in *container.Injector) error {
//	        reg, err := container.Get(in, RegistryKey)
//	        if err != nil {
//	            return err
//	        }
//	        reg.Attach("audit", auditHandler)
//	        return nil
//	    }),
//	)
func OnInit(fn Initializer) Binding {
	if fn == nil {
		return Binding{
			token:   Initializers.token,
			kind:    ValueProducer,
			invalid: &InvalidBindingError{Token: Initializers.token, Reason: "initializer cannot be nil"},
		}
	}
	return Value(Initializers, fn)
}

// runInitializers invokes the scope's own initializers in registration
// order. Ancestors' initializers already ran when those scopes became ready.
func (s *Scope) runInitializers() error {
	in := &Injector{scope: s}
	raw, err := in.ResolveAll(Initializers.token, Self(), Optional())
	if err != nil {
		return &InitializationError{Scope: s.String(), Index: -1, Cause: err}
	}

	for i, v := range raw {
		fn, ok := v.(Initializer)
		if !ok {
			return &InitializationError{
				Scope: s.String(),
				Index: i,
				Cause: fmt.Errorf("initializer has type %T", v),
			}
		}
		if err := fn(in); err != nil {
			return &InitializationError{Scope: s.String(), Index: i, Cause: err}
		}
	}
	return nil
}
