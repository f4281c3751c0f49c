package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Every typed error below matches exactly one of them with
// errors.Is, so callers can branch on the kind without a type switch.
var (
	ErrMissingBinding       = errors.New("missing binding")
	ErrMultiplicityMismatch = errors.New("multiplicity mismatch")
	ErrLifecycle            = errors.New("scope lifecycle violation")
	ErrInitialization       = errors.New("scope initialization failed")
	ErrFeatureCardinality   = errors.New("feature cardinality exceeded")
	ErrFeatureConflict      = errors.New("conflicting features")
	ErrInvalidBinding       = errors.New("invalid binding")
	ErrCircularDependency   = errors.New("circular dependency")
	ErrResolution           = errors.New("resolution failed")
)

// MissingBindingError is returned when a required token has no binding
// anywhere in the walked chain.
type MissingBindingError struct {
	Token *Token
	Scope string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("no binding for %s reachable from scope %s", e.Token, e.Scope)
}

func (e *MissingBindingError) Is(target error) bool { return target == ErrMissingBinding }

// MultiplicityMismatchError is returned when a multi token is resolved as
// single-valued or the other way round.
type MultiplicityMismatchError struct {
	Token     *Token
	Requested Multiplicity
}

func (e *MultiplicityMismatchError) Error() string {
	return fmt.Sprintf("token %s is %s-valued but was resolved as %s-valued",
		e.Token, e.Token.Multiplicity(), e.Requested)
}

func (e *MultiplicityMismatchError) Is(target error) bool { return target == ErrMultiplicityMismatch }

// LifecycleError is returned for operations the scope's state forbids.
type LifecycleError struct {
	Scope string
	State State
	Op    string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("cannot %s scope %s in state %s", e.Op, e.Scope, e.State)
}

func (e *LifecycleError) Is(target error) bool { return target == ErrLifecycle }

// InitializationError is returned by Ready when an initializer fails.
type InitializationError struct {
	Scope string
	Index int
	Cause error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initializer %d of scope %s failed: %v", e.Index, e.Scope, e.Cause)
}

func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

func (e *InitializationError) Unwrap() error { return e.Cause }

// FeatureCardinalityError reports a feature kind supplied more often than allowed.
type FeatureCardinalityError struct {
	Kind  FeatureKind
	Count int
	Limit int
}

func (e *FeatureCardinalityError) Error() string {
	return fmt.Sprintf("feature %q supplied %d times, at most %d allowed", e.Kind, e.Count, e.Limit)
}

func (e *FeatureCardinalityError) Is(target error) bool { return target == ErrFeatureCardinality }

// FeatureConflictError reports two mutually exclusive feature kinds used together.
type FeatureConflictError struct {
	Kinds [2]FeatureKind
}

func (e *FeatureConflictError) Error() string {
	return fmt.Sprintf("features %q and %q cannot be combined", e.Kinds[0], e.Kinds[1])
}

func (e *FeatureConflictError) Is(target error) bool { return target == ErrFeatureConflict }

// InvalidBindingError is returned when a binding failed construction-time validation.
type InvalidBindingError struct {
	Token  *Token
	Reason string
}

func (e *InvalidBindingError) Error() string {
	return fmt.Sprintf("invalid binding for %s: %s", e.Token, e.Reason)
}

func (e *InvalidBindingError) Is(target error) bool { return target == ErrInvalidBinding }

// CircularDependencyError indicates a producer transitively requested its own token.
type CircularDependencyError struct {
	Path []*Token
}

func (e *CircularDependencyError) Error() string {
	names := make([]string, len(e.Path))
	for i, t := range e.Path {
		names[i] = t.String()
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(names, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// ResolutionError wraps a failure raised by a producer.
type ResolutionError struct {
	Token *Token
	Scope string
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %s in scope %s: %v", e.Token, e.Scope, e.Cause)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

func (e *ResolutionError) Unwrap() error { return e.Cause }
