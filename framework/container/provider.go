package container

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider contributes a bundle to a scope. Bundle must be pure: it
// builds bindings and touches no scope.
//
//	type CacheProvider struct{ container.BaseProvider }
//
//	func (p *CacheProvider) Bundle() (container.Bundle, error) {
//	    return container.NewBundle(
//	        container.Factory(CacheKey, func(in *container.Injector) (*Cache, error) {
//	            return NewCache(), nil
//	        }),
//	    ), nil
//	}
type ServiceProvider interface {
	Bundle() (Bundle, error)
}

// Booter is implemented by providers that need to run once their scope's
// bindings are all in place. Boot runs as an initializer, after the
// initializers contained in the provider bundles.
type Booter interface {
	Boot(in *Injector) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op provider. Embed it and override Bundle
// and optionally Boot.
type BaseProvider struct{}

func (p *BaseProvider) Bundle() (Bundle, error) { return Bundle{}, nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry collects providers and applies them to one scope as a
// single atomic composition.
type ProviderRegistry struct {
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{registered: make(map[ServiceProvider]bool)}
}

// Register adds a provider. Registering the same instance twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) {
	if provider == nil || r.registered[provider] {
		return
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)
}

// Bundle combines every provider's bundle in registration order, followed by
// one initializer per Booter. The first provider error aborts the whole
// composition.
func (r *ProviderRegistry) Bundle() (Bundle, error) {
	parts := make([]Bundle, 0, len(r.providers)+1)
	var boots []Binding
	for _, p := range r.providers {
		b, err := p.Bundle()
		if err != nil {
			return Bundle{}, fmt.Errorf("provider %T: %w", p, err)
		}
		parts = append(parts, b)
		if booter, ok := p.(Booter); ok {
			boots = append(boots, OnInit(booter.Boot))
		}
	}
	parts = append(parts, NewBundle(boots...))
	return CombineAll(parts...), nil
}

// ApplyTo applies the combined bundle to s and makes s ready.
func (r *ProviderRegistry) ApplyTo(s *Scope) error {
	b, err := r.Bundle()
	if err != nil {
		return err
	}
	if err := s.Apply(b); err != nil {
		return err
	}
	if err := s.Ready(); err != nil {
		return err
	}
	r.booted = true
	return nil
}

// Booted returns true once ApplyTo succeeded.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers in order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
