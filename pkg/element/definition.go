package element

import (
	"maps"
	"slices"
)

// Members is a declared member set: member names mapped to values or
// functions.
type Members map[string]any

// Clone returns a shallow copy of m. A nil set clones to an empty one.
func (m Members) Clone() Members {
	out := make(Members, len(m))
	maps.Copy(out, m)
	return out
}

// Names returns the member names in sorted order.
func (m Members) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// Definition is the member set declared for a named component type.
type Definition struct {
	// Name is the component type name. Define fills it in when empty.
	Name string `json:"name"`

	// Extends optionally names the supertype. A declaration's own extends
	// attribute takes precedence.
	Extends string `json:"extends,omitempty"`

	// Members are the definition's own members.
	Members Members `json:"members,omitempty"`
}

// Attribute is a published attribute: a property that is reflected from
// markup attributes, with its default value.
type Attribute struct {
	Name    string `json:"name"`
	Default any    `json:"default,omitempty"`
}

// Declaration is the markup-side request for a component type: the
// element that names the type, what it extends, and the declarative
// features that are folded into its prototype.
type Declaration struct {
	// Name is the component type name being declared.
	Name string `json:"name"`

	// Extends names the supertype: another custom element (contains a
	// hyphen) or an intrinsic base tag such as "button".
	Extends string `json:"extends,omitempty"`

	// Attributes is the raw published attribute list ("label size").
	Attributes string `json:"attributes,omitempty"`

	// Publish holds already-parsed published attributes and defaults.
	Publish map[string]any `json:"publish,omitempty"`

	// Events maps host event names to handler member names.
	Events map[string]string `json:"events,omitempty"`

	// Template is the element's template markup.
	Template string `json:"template,omitempty"`

	// Sheets lists external stylesheet references, relative to BaseURL.
	Sheets []string `json:"sheets,omitempty"`

	// Styles holds inline style text.
	Styles []string `json:"styles,omitempty"`

	// NoScript requests registration with an empty definition if no
	// script declares the name by the end of the current task.
	NoScript bool `json:"noscript,omitempty"`

	// Constructor, when set, publishes the native constructor under this
	// symbol.
	Constructor string `json:"constructor,omitempty"`

	// BaseURL is the URL of the document the declaration came from.
	BaseURL string `json:"baseUrl,omitempty"`
}

func (d Declaration) clone() Declaration {
	out := d
	out.Publish = maps.Clone(d.Publish)
	out.Events = maps.Clone(d.Events)
	out.Sheets = slices.Clone(d.Sheets)
	out.Styles = slices.Clone(d.Styles)
	return out
}

// Draft is the mutable state of a registration while it is being composed.
// Transforms read the declaration and fill in the type's own members,
// published attributes, event delegates, and styles before the draft is
// merged with its ancestors.
type Draft struct {
	Declaration Declaration
	Extends     string
	Members     Members
	Attributes  map[string]Attribute
	Delegates   map[string]string
	LocalEvents []string
	Styles      []string
}

func newDraft(decl Declaration, extends string, def *Definition) *Draft {
	d := &Draft{
		Declaration: decl.clone(),
		Extends:     extends,
		Attributes:  make(map[string]Attribute),
		Delegates:   make(map[string]string),
		Styles:      slices.Clone(decl.Styles),
	}
	if def != nil {
		d.Members = def.Members.Clone()
	} else {
		d.Members = Members{}
	}
	for name, value := range decl.Publish {
		d.Attributes[name] = Attribute{Name: name, Default: value}
	}
	maps.Copy(d.Delegates, decl.Events)
	return d
}

// Publish adds or replaces a published attribute.
func (d *Draft) Publish(name string, def any) {
	d.Attributes[name] = Attribute{Name: name, Default: def}
}

// Delegate maps an event to a handler member name.
func (d *Draft) Delegate(event, handler string) {
	d.Delegates[event] = handler
}
