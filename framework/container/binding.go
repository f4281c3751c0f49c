package container

import (
	"fmt"
	"reflect"
)

// ProducerKind is the tagged variant a Binding uses to produce its value.
// It is fixed when the binding is constructed.
type ProducerKind uint8

const (
	// ValueProducer returns a pre-built value as is.
	ValueProducer ProducerKind = iota
	// FactoryProducer calls a function once per requesting scope.
	FactoryProducer
	// ConstructorProducer calls a Go constructor whose parameters are
	// filled from declared dependencies, once per requesting scope.
	ConstructorProducer
)

func (k ProducerKind) String() string {
	switch k {
	case ValueProducer:
		return "value"
	case FactoryProducer:
		return "factory"
	case ConstructorProducer:
		return "constructor"
	default:
		return fmt.Sprintf("producer(%d)", uint8(k))
	}
}

// Binding is a rule for producing a token's value inside one scope.
// Bindings are immutable; build them with Value, Factory, Constructor or OnInit.
type Binding struct {
	token   *Token
	kind    ProducerKind
	value   any
	factory func(in *Injector) (any, error)
	ctor    *constructorInfo

	// invalid is set when construction-time validation failed; Apply rejects it.
	invalid error
}

// Token returns the token the binding registers.
func (b Binding) Token() *Token { return b.token }

// Kind returns the producer variant.
func (b Binding) Kind() ProducerKind { return b.kind }

func (b Binding) String() string {
	return fmt.Sprintf("%s <- %s", b.token, b.kind)
}

// ── Constructors ──────────────────────────────────────────────────────────────

// Value binds a pre-built value. Every scope resolving the token receives the
// same value.
//
//	container.Value(ClockKey, Clock(time.Now))
func Value[T any](k Key[T], v T) Binding {
	return Binding{token: k.token, kind: ValueProducer, value: v}
}

// Factory binds a function that builds the value. It runs at most once per
// requesting scope; the Injector resolves from that scope.
//
//	container.Factory(RepoKey, func(in *container.Injector) (*Repo, error) {
//	    db, err := container.Get(in, DBKey)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewRepo(db), nil
//	})
func Factory[T any](k Key[T], fn func(in *Injector) (T, error)) Binding {
	b := Binding{token: k.token, kind: FactoryProducer}
	if fn == nil {
		b.invalid = &InvalidBindingError{Token: k.token, Reason: "factory function cannot be nil"}
		return b
	}
	b.factory = func(in *Injector) (any, error) {
		v, err := fn(in)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return b
}

// Constructor binds a plain Go constructor. Its parameters are resolved from
// deps, in order; multi-valued dependencies are passed as slices.
//
// Supported shapes:
//   - func(A, B, ...) T
//   - func(A, B, ...) (T, error)
//
//	container.Constructor(ServiceKey, NewService,
//	    container.Dep(ConfigKey),
//	    container.Dep(PluginsKey, container.Optional()),
//	)
func Constructor[T any](k Key[T], ctor any, deps ...Dependency) Binding {
	b := Binding{token: k.token, kind: ConstructorProducer}
	info, err := parseConstructor(ctor, deps, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		b.invalid = &InvalidBindingError{Token: k.token, Reason: err.Error()}
		return b
	}
	b.ctor = info
	return b
}

// Dependency names one constructor parameter's source.
type Dependency struct {
	token *Token
	opts  []ResolveOption
}

// Dep declares a constructor dependency on k resolved with opts.
func Dep[T any](k Key[T], opts ...ResolveOption) Dependency {
	return Dependency{token: k.token, opts: opts}
}

// produce evaluates the binding for the scope behind in. Panics inside user
// producers are turned into errors.
func (b Binding) produce(in *Injector) (v any, err error) {
	if b.kind == ValueProducer {
		return b.value, nil
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic in %s producer: %v", b.kind, r)
		}
	}()

	switch b.kind {
	case FactoryProducer:
		return b.factory(in)
	case ConstructorProducer:
		return b.ctor.invoke(in)
	default:
		return nil, fmt.Errorf("unknown producer kind %s", b.kind)
	}
}

// ── Reflection helpers ────────────────────────────────────────────────────────

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

// constructorInfo holds the validated shape of a constructor function.
type constructorInfo struct {
	fn           reflect.Value
	params       []reflect.Type
	deps         []Dependency
	returnsError bool
}

func parseConstructor(ctor any, deps []Dependency, want reflect.Type) (*constructorInfo, error) {
	if ctor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	fn := reflect.ValueOf(ctor)
	fnType := fn.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", fnType.Kind())
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("constructor cannot be variadic")
	}

	numOut := fnType.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, fmt.Errorf("constructor must return T or (T, error), got %d return values", numOut)
	}
	if !fnType.Out(0).AssignableTo(want) {
		return nil, fmt.Errorf("constructor returns %v, not assignable to %v", fnType.Out(0), want)
	}
	returnsError := false
	if numOut == 2 {
		if !fnType.Out(1).Implements(errorInterface) {
			return nil, fmt.Errorf("constructor's second return value must be error, got %v", fnType.Out(1))
		}
		returnsError = true
	}

	if fnType.NumIn() != len(deps) {
		return nil, fmt.Errorf("constructor takes %d parameters but %d dependencies were declared", fnType.NumIn(), len(deps))
	}
	params := make([]reflect.Type, fnType.NumIn())
	for i := range params {
		params[i] = fnType.In(i)
		if deps[i].token == nil {
			return nil, fmt.Errorf("dependency %d has no token", i)
		}
		if deps[i].token.multi == Multi && params[i].Kind() != reflect.Slice {
			return nil, fmt.Errorf("parameter %d receives multi token %s and must be a slice, got %v", i, deps[i].token, params[i])
		}
	}

	return &constructorInfo{
		fn:           fn,
		params:       params,
		deps:         deps,
		returnsError: returnsError,
	}, nil
}

// invoke resolves every dependency from in and calls the constructor.
func (c *constructorInfo) invoke(in *Injector) (any, error) {
	args := make([]reflect.Value, len(c.params))
	for i, dep := range c.deps {
		arg, err := c.argument(in, i, dep)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (c *constructorInfo) argument(in *Injector, i int, dep Dependency) (reflect.Value, error) {
	pt := c.params[i]

	if dep.token.multi == Multi {
		values, err := in.ResolveAll(dep.token, dep.opts...)
		if err != nil {
			return reflect.Value{}, err
		}
		slice := reflect.MakeSlice(pt, len(values), len(values))
		for j, v := range values {
			ev, err := assignable(v, pt.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("parameter %d element %d: %w", i, j, err)
			}
			slice.Index(j).Set(ev)
		}
		return slice, nil
	}

	v, err := in.Resolve(dep.token, dep.opts...)
	if err != nil {
		return reflect.Value{}, err
	}
	arg, err := assignable(v, pt)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("parameter %d: %w", i, err)
	}
	return arg, nil
}

// assignable converts v to a reflect.Value of type t; nil becomes t's zero value.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("resolved %v is not assignable to %v", rv.Type(), t)
	}
	return rv, nil
}
