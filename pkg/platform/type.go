package platform

import (
	"fmt"
	"maps"
	"time"

	"github.com/vango-dev/elements/pkg/element"
)

// Type is a natively registered element type. It is the constructor
// handed back to the engine.
type Type struct {
	name       string
	proto      *element.Prototype
	registered time.Time
}

// TypeName implements element.Constructor.
func (t *Type) TypeName() string { return t.name }

// Prototype returns the type's composed prototype.
func (t *Type) Prototype() *element.Prototype { return t.proto }

// RegisteredAt returns when the type was registered.
func (t *Type) RegisteredAt() time.Time { return t.registered }

// Instance is a created element: its type and its current property
// values.
type Instance struct {
	Type       *Type
	Properties map[string]any
}

// New creates an instance. Published attributes start at their defaults
// and are overridden by attrs, converted through the type's
// attribute-to-property capability. The created lifecycle hook runs
// last.
func (t *Type) New(attrs map[string]string) (*Instance, error) {
	inst := &Instance{Type: t, Properties: make(map[string]any)}
	for name, a := range t.proto.Attributes() {
		inst.Properties[name] = a.Default
	}

	for name, raw := range attrs {
		if _, published := t.proto.Attribute(name); !published {
			continue
		}
		v, err := element.AttributeToProperty(t.proto, name, raw)
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", t.name, err)
		}
		inst.Properties[name] = v
	}

	if err := element.DispatchLifecycle(t.proto, element.HookCreated, inst); err != nil {
		return nil, fmt.Errorf("create %q: %w", t.name, err)
	}
	return inst, nil
}

// SetAttribute updates a published property from markup and dispatches
// the attribute-changed hook with the old and new values.
func (i *Instance) SetAttribute(name, raw string) error {
	old := i.Properties[name]
	v, err := element.AttributeToProperty(i.Type.proto, name, raw)
	if err != nil {
		return err
	}
	i.Properties[name] = v
	return element.DispatchLifecycle(i.Type.proto, element.HookAttributeChanged, name, old, v)
}

// Snapshot returns a copy of the instance properties.
func (i *Instance) Snapshot() map[string]any {
	return maps.Clone(i.Properties)
}
