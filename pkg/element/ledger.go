package element

import (
	"maps"
	"slices"
)

// Ledger holds suspended waiters keyed by the name they are waiting on.
// It has two disjoint parts: definition waits (a name awaiting its own
// definition) and supertype waits (a name awaiting completion of its
// registration, with any number of subtype waiters).
type Ledger[W any] struct {
	lossy      bool
	definition map[string][]W
	supertype  map[string][]W
}

// NewLedger creates an empty Ledger. A lossy ledger keeps a single
// definition waiter per name: a later waiter silently replaces an earlier
// one.
func NewLedger[W any](lossy bool) *Ledger[W] {
	return &Ledger[W]{
		lossy:      lossy,
		definition: make(map[string][]W),
		supertype:  make(map[string][]W),
	}
}

// Lossy reports whether the definition wait keeps a single waiter.
func (l *Ledger[W]) Lossy() bool { return l.lossy }

// AwaitDefinition parks w until name is defined. It reports whether an
// earlier waiter was replaced (lossy ledgers only).
func (l *Ledger[W]) AwaitDefinition(name string, w W) (replaced bool) {
	if l.lossy {
		_, replaced = l.definition[name]
		l.definition[name] = []W{w}
		return replaced
	}
	l.definition[name] = append(l.definition[name], w)
	return false
}

// AwaitSupertype parks w until the registration of name completes.
func (l *Ledger[W]) AwaitSupertype(name string, w W) {
	l.supertype[name] = append(l.supertype[name], w)
}

// ResolveDefinition removes and returns the waiters for name's
// definition, in arrival order.
func (l *Ledger[W]) ResolveDefinition(name string) []W {
	waiters := l.definition[name]
	delete(l.definition, name)
	return waiters
}

// ResolveSupertype removes and returns every waiter for name's
// registration. Resolving a name twice yields nothing the second time.
func (l *Ledger[W]) ResolveSupertype(name string) []W {
	waiters := l.supertype[name]
	delete(l.supertype, name)
	return waiters
}

// DefinitionWaits returns the names with pending definition waiters.
func (l *Ledger[W]) DefinitionWaits() []string {
	return slices.Sorted(maps.Keys(l.definition))
}

// SupertypeWaits returns the names with pending supertype waiters.
func (l *Ledger[W]) SupertypeWaits() []string {
	return slices.Sorted(maps.Keys(l.supertype))
}

// Waiters returns a copy of the waiters parked on name, definition waits
// first.
func (l *Ledger[W]) Waiters(name string) []W {
	out := slices.Clone(l.definition[name])
	return append(out, l.supertype[name]...)
}

// Len returns the number of parked waiters.
func (l *Ledger[W]) Len() int {
	n := 0
	for _, ws := range l.definition {
		n += len(ws)
	}
	for _, ws := range l.supertype {
		n += len(ws)
	}
	return n
}
