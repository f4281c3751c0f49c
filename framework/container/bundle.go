package container

// Bundle is an immutable, ordered set of bindings. Provider factories return
// bundles; hosts apply them to scopes. The only operations on a bundle are
// applying it (Scope.Apply) and combining it with others.
type Bundle struct {
	bindings []Binding
}

// NewBundle packs bindings into a bundle, preserving their order.
func NewBundle(bindings ...Binding) Bundle {
	return Bundle{bindings: append([]Binding(nil), bindings...)}
}

// Len reports how many bindings the bundle carries.
func (b Bundle) Len() int { return len(b.bindings) }

// Tokens lists the bound tokens in order, for diagnostics.
func (b Bundle) Tokens() []string {
	out := make([]string, len(b.bindings))
	for i, bd := range b.bindings {
		out[i] = bd.token.String()
	}
	return out
}

// Combine returns a new bundle holding b's bindings followed by the bindings
// of others, in argument order.
//
//	all := base.Combine(metricsBundle, routesBundle)
func (b Bundle) Combine(others ...Bundle) Bundle {
	return CombineAll(append([]Bundle{b}, others...)...)
}

// CombineAll flattens bundles into one, in argument order. Each binding of
// each input appears exactly once; the result never shares storage with the
// inputs. CombineAll(A, B, C), A.Combine(B).Combine(C) and
// A.Combine(B.Combine(C)) yield the same order.
func CombineAll(bundles ...Bundle) Bundle {
	n := 0
	for _, b := range bundles {
		n += len(b.bindings)
	}
	flat := make([]Binding, 0, n)
	for _, b := range bundles {
		flat = append(flat, b.bindings...)
	}
	return Bundle{bindings: flat}
}
