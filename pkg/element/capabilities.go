package element

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Base capability member names.
const (
	CapAttributeToProperty = "attributeToProperty"
	CapDispatchLifecycle   = "dispatchLifecycle"
	CapHandlerFor          = "handlerFor"
)

// Lifecycle hook member names dispatched by DispatchLifecycle.
const (
	HookCreated          = "createdCallback"
	HookEnteredView      = "enteredViewCallback"
	HookLeftView         = "leftViewCallback"
	HookAttributeChanged = "attributeChangedCallback"
)

// DefaultCapabilities returns the base capability set shared by every
// managed component type.
func DefaultCapabilities() Members {
	return Members{
		CapAttributeToProperty: AttributeToProperty,
		CapDispatchLifecycle:   DispatchLifecycle,
		CapHandlerFor:          HandlerFor,
	}
}

// AttributeToProperty converts a raw attribute value to the type of the
// published attribute's default. Attributes that are not published are
// rejected.
func AttributeToProperty(p *Prototype, attr, raw string) (any, error) {
	a, ok := p.Attribute(attr)
	if !ok {
		return nil, fmt.Errorf("%s: attribute %q is not published", p.Name(), attr)
	}
	switch a.Default.(type) {
	case nil, string:
		return raw, nil
	case bool:
		if raw == "" {
			return true, nil
		}
		return strconv.ParseBool(raw)
	case int:
		return strconv.Atoi(raw)
	case int64:
		return strconv.ParseInt(raw, 10, 64)
	case float64:
		return strconv.ParseFloat(raw, 64)
	default:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", p.Name(), attr, err)
		}
		return v, nil
	}
}

// DispatchLifecycle invokes the lifecycle hook member if the type defines
// one. Hooks may be func(), func() error, or func(...any) error.
func DispatchLifecycle(p *Prototype, hook string, args ...any) error {
	m, ok := p.Member(hook)
	if !ok {
		return nil
	}
	switch fn := m.(type) {
	case func():
		fn()
		return nil
	case func() error:
		return fn()
	case func(...any) error:
		return fn(args...)
	default:
		return fmt.Errorf("%s: member %q is not a lifecycle hook (%T)", p.Name(), hook, m)
	}
}

// HandlerFor returns the member that handles event through the type's
// delegate table.
func HandlerFor(p *Prototype, event string) (any, bool) {
	name, ok := p.delegates[event]
	if !ok {
		return nil, false
	}
	return p.Member(name)
}
