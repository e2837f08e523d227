package element

import (
	"context"
	"strings"
)

// Platform is the native element system the engine registers types with.
type Platform interface {
	// IntrinsicPrototype returns the native prototype for a base tag. The
	// empty tag denotes the generic element. Natively registered custom
	// elements are reported too.
	IntrinsicPrototype(tag string) (*Prototype, bool)

	// Register performs native registration of a composed prototype. It
	// fails if the name is already registered natively.
	Register(name string, proto *Prototype) (Constructor, error)
}

// Constructor is the handle returned by native registration.
type Constructor interface {
	// TypeName returns the registered element name.
	TypeName() string
}

// Transform is a declarative transform step applied to a draft while it
// is being composed. Transforms run once per registration, in order.
type Transform interface {
	Apply(ctx context.Context, d *Draft) error
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(ctx context.Context, d *Draft) error

// Apply calls f(ctx, d).
func (f TransformFunc) Apply(ctx context.Context, d *Draft) error {
	return f(ctx, d)
}

// RegisterCallback is the signature of a definition's registerCallback
// member. It runs after composition and before native registration.
type RegisterCallback func(p *Prototype) error

// RegisterCallbackMember is the member name consulted for a
// RegisterCallback.
const RegisterCallbackMember = "registerCallback"

// IsCustomName reports whether name denotes a user-defined element rather
// than an intrinsic base tag.
func IsCustomName(name string) bool {
	return strings.Contains(name, "-")
}

// ValidName reports whether name is acceptable as a custom element name:
// a lowercase ASCII letter followed by lowercase letters, digits, dots,
// underscores, or hyphens, with at least one hyphen.
func ValidName(name string) bool {
	if name == "" || name[0] < 'a' || name[0] > 'z' || !IsCustomName(name) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '.', c == '_':
		default:
			return false
		}
	}
	return true
}
