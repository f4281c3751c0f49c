package container

// FeatureKind tags a Feature so its owning provider factory can validate
// how many of each kind were supplied.
type FeatureKind string

// Feature is an optional, kind-tagged bundle extension. Only the provider
// factory that defines the kind looks inside it, through Fold.
type Feature struct {
	kind   FeatureKind
	bundle Bundle
}

// NewFeature wraps b under kind.
func NewFeature(kind FeatureKind, b Bundle) Feature {
	return Feature{kind: kind, bundle: b}
}

// Kind returns the feature's tag.
func (f Feature) Kind() FeatureKind { return f.kind }

// FeatureRules declares, per kind, how many features a provider factory
// accepts and which kinds exclude each other.
type FeatureRules struct {
	// Limits maps a kind to its maximum count. A limit <= 0 means unbounded.
	Limits map[FeatureKind]int
	// DefaultLimit applies to kinds missing from Limits.
	DefaultLimit int
	// Exclusive lists pairs of kinds that may not both be present.
	Exclusive [][2]FeatureKind
}

func (r FeatureRules) limit(kind FeatureKind) int {
	if l, ok := r.Limits[kind]; ok {
		return l
	}
	return r.DefaultLimit
}

// Validate checks cardinality first, in the order kinds first appear, then
// exclusions in declaration order.
func (r FeatureRules) Validate(features []Feature) error {
	counts := make(map[FeatureKind]int, len(features))
	order := make([]FeatureKind, 0, len(features))
	for _, f := range features {
		if counts[f.kind] == 0 {
			order = append(order, f.kind)
		}
		counts[f.kind]++
	}

	for _, kind := range order {
		if l := r.limit(kind); l > 0 && counts[kind] > l {
			return &FeatureCardinalityError{Kind: kind, Count: counts[kind], Limit: l}
		}
	}

	for _, pair := range r.Exclusive {
		if counts[pair[0]] > 0 && counts[pair[1]] > 0 {
			return &FeatureConflictError{Kinds: pair}
		}
	}
	return nil
}

// Fold validates features against rules and appends their bundles after
// base, in feature order. On error no bundle is returned.
func Fold(base Bundle, rules FeatureRules, features ...Feature) (Bundle, error) {
	if err := rules.Validate(features); err != nil {
		return Bundle{}, err
	}
	parts := make([]Bundle, 0, len(features)+1)
	parts = append(parts, base)
	for _, f := range features {
		parts = append(parts, f.bundle)
	}
	return CombineAll(parts...), nil
}
