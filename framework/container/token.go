package container

import "fmt"

// Multiplicity tells the resolver whether a token yields one value or an
// ordered sequence collected across the scope chain.
type Multiplicity uint8

const (
	// Single tokens resolve to exactly one winning binding.
	Single Multiplicity = iota
	// Multi tokens accumulate every binding along the chain, root first.
	Multi
)

func (m Multiplicity) String() string {
	switch m {
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return fmt.Sprintf("multiplicity(%d)", uint8(m))
	}
}

// Token is the nominal identity of a requestable capability.
// Two tokens are equal only when they are the same pointer; the description
// is for humans and error messages.
type Token struct {
	desc  string
	multi Multiplicity
}

// NewToken creates a fresh token. Tokens are immutable and may be declared as
// package-level variables.
//
//	var Clock = container.NewToken("clock", container.Single)
func NewToken(desc string, m Multiplicity) *Token {
	return &Token{desc: desc, multi: m}
}

// Description returns the label the token was created with.
func (t *Token) Description() string { return t.desc }

// Multiplicity returns whether the token is single- or multi-valued.
func (t *Token) Multiplicity() Multiplicity { return t.multi }

func (t *Token) String() string {
	if t == nil {
		return "<nil token>"
	}
	if t.multi == Multi {
		return t.desc + "[]"
	}
	return t.desc
}

// ── Typed keys ────────────────────────────────────────────────────────────────

// Key is a Token carrying the Go type of the value it resolves to.
//
//	var ClockKey = container.NewKey[Clock]("clock")
//	clock, err := container.Get(scope, ClockKey)
type Key[T any] struct {
	token *Token
}

// NewKey creates a single-valued typed key.
func NewKey[T any](desc string) Key[T] {
	return Key[T]{token: NewToken(desc, Single)}
}

// NewMultiKey creates a multi-valued typed key. Resolve it with All.
func NewMultiKey[T any](desc string) Key[T] {
	return Key[T]{token: NewToken(desc, Multi)}
}

// Token returns the untyped identity behind the key.
func (k Key[T]) Token() *Token { return k.token }

func (k Key[T]) String() string { return k.token.String() }
