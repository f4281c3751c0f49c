// Package container is a hierarchical, scope-aware service composition engine.
//
// # Overview
//
// Capabilities are identified by tokens. Bindings describe how to produce a
// token's value. Bindings travel in immutable bundles, which are applied to
// scopes arranged in a tree. A scope resolves tokens by walking up towards
// the root; bindings in a scope shadow the same token in its ancestors for
// lookups rooted there.
//
// # Scope Lifecycle
//
//  1. Create: root := container.NewRoot() or child, _ := parent.NewChild() (parent ready)
//  2. Apply bundles: root.Apply(bundle)        (any number of times)
//  3. Ready: root.Ready()                      (runs initializers once)
//  4. Resolve
//  5. Destroy: root.Destroy()                  (children are not cascaded)
//
// Activate does steps 1 to 3 in one call.
//
// # Tokens
//
//	var ConfigKey  = container.NewKey[*Config]("config")          // single-valued
//	var PluginsKey = container.NewMultiKey[Plugin]("plugins")      // multi-valued
//
// # Bindings
//
//	// Pre-built value, shared by every scope
//	container.Value(ConfigKey, cfg)
//
//	// Factory, run once per requesting scope
//	container.Factory(RepoKey, func(in *container.Injector) (*Repo, error) {
//	    cfg, err := container.Get(in, ConfigKey)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewRepo(cfg.DSN), nil
//	})
//
//	// Plain constructor with declared dependencies
//	container.Constructor(ServiceKey, NewService,
//	    container.Dep(RepoKey),
//	    container.Dep(PluginsKey, container.Optional()),
//	)
//
// # Resolving
//
//	cfg, err := container.Get(scope, ConfigKey)
//	parent, err := container.Get(scope, LoggerKey, container.SkipSelf(), container.Optional())
//	plugins, err := container.All(scope, PluginsKey)
//
// Single-valued tokens resolve to the nearest scope's last registered
// binding. Multi-valued tokens collect every binding on the chain, root
// first. Instances are cached in the requesting scope and never shared with
// other scopes; values bound with Value are returned as is. A scope disposes
// only the instances it built: a producer that returns an instance it got
// from its Injector leaves disposal to the scope that built it.
//
// Producers and initializers resolve through their Injector only. Resolving
// through a *Scope from inside one blocks on the tree's build lock.
//
// # Bundles and Features
//
//	all := container.CombineAll(configBundle, loggingBundle)
//
//	rules := container.FeatureRules{Limits: map[container.FeatureKind]int{"cache": 1}}
//	bundle, err := container.Fold(base, rules, features...)
//
// # Initializers
//
//	container.OnInit(func(in *container.Injector) error {
//	    reg := container.MustGet(in, RegistryKey)
//	    reg.Attach("audit", auditHandler)
//	    return nil
//	})
//
// # Service Providers
//
//	registry := container.NewProviderRegistry()
//	registry.Register(&ConfigProvider{})
//	registry.Register(&LoggingProvider{})
//	err := registry.ApplyTo(root)
package container
