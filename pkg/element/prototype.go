package element

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
)

// BaseLinkName names the link that carries the base capability set.
const BaseLinkName = "element-base"

// LinkKind classifies a link in a prototype chain.
type LinkKind string

const (
	// LinkIntrinsic is a platform-provided prototype for a built-in tag.
	LinkIntrinsic LinkKind = "intrinsic"

	// LinkBase carries the base capability set.
	LinkBase LinkKind = "base"

	// LinkElement is a registered custom element.
	LinkElement LinkKind = "element"
)

// Prototype is the composed behavioral object for a component type. It
// is immutable once built: accessors return copies, and subtypes compose
// new prototypes rather than mutating their ancestors.
type Prototype struct {
	name    string
	kind    LinkKind
	tag     string
	extends string
	parent  *Prototype

	members    Members
	origins    map[string]string
	own        []string
	attributes map[string]Attribute
	delegates  map[string]string
	events     []string
	styles     []string

	declaration *Declaration
	constructor Constructor
}

// NewIntrinsic builds the prototype a platform reports for a built-in
// tag. parent may be nil for the root of the intrinsic hierarchy.
func NewIntrinsic(tag string, parent *Prototype, members Members) *Prototype {
	p := &Prototype{
		name:   tag,
		kind:   LinkIntrinsic,
		tag:    tag,
		parent: parent,
	}
	p.inherit(parent)
	for _, name := range members.Names() {
		p.set(name, members[name])
	}
	return p
}

func (p *Prototype) inherit(parent *Prototype) {
	p.members = Members{}
	p.origins = make(map[string]string)
	p.attributes = make(map[string]Attribute)
	p.delegates = make(map[string]string)
	if parent == nil {
		return
	}
	maps.Copy(p.members, parent.members)
	maps.Copy(p.origins, parent.origins)
	maps.Copy(p.attributes, parent.attributes)
	maps.Copy(p.delegates, parent.delegates)
	if p.tag == "" {
		p.tag = parent.tag
	}
}

func (p *Prototype) set(name string, value any) {
	p.members[name] = value
	p.origins[name] = p.name
}

// Name returns the type name, the intrinsic tag, or BaseLinkName.
func (p *Prototype) Name() string { return p.name }

// Kind reports what kind of link p is.
func (p *Prototype) Kind() LinkKind { return p.kind }

// Tag returns the intrinsic base tag at the root of p's chain. The empty
// string denotes the generic element.
func (p *Prototype) Tag() string { return p.tag }

// Extends returns the supertype name the type was registered with.
func (p *Prototype) Extends() string { return p.extends }

// Parent returns the next link in the chain, or nil.
func (p *Prototype) Parent() *Prototype { return p.parent }

// Chain returns the link names from p up to the root.
func (p *Prototype) Chain() []string {
	var names []string
	for link := p; link != nil; link = link.parent {
		names = append(names, link.name)
	}
	return names
}

// HasCapabilities reports whether the base capability set is present
// anywhere in p's chain.
func (p *Prototype) HasCapabilities() bool {
	for link := p; link != nil; link = link.parent {
		if link.kind == LinkBase {
			return true
		}
	}
	return false
}

// Member returns the named member, inherited or own.
func (p *Prototype) Member(name string) (any, bool) {
	v, ok := p.members[name]
	return v, ok
}

// Members returns a copy of the flattened member table.
func (p *Prototype) Members() Members {
	return p.members.Clone()
}

// Origin returns the name of the link that contributed the member.
func (p *Prototype) Origin(name string) (string, bool) {
	o, ok := p.origins[name]
	return o, ok
}

// CustomMembers returns the sorted names of the members contributed by
// the type's own definition.
func (p *Prototype) CustomMembers() []string {
	return slices.Clone(p.own)
}

// Attributes returns a copy of the published attribute table, including
// inherited entries.
func (p *Prototype) Attributes() map[string]Attribute {
	return maps.Clone(p.attributes)
}

// Attribute returns a single published attribute.
func (p *Prototype) Attribute(name string) (Attribute, bool) {
	a, ok := p.attributes[name]
	return a, ok
}

// Delegates returns a copy of the event delegate table, including
// inherited entries.
func (p *Prototype) Delegates() map[string]string {
	return maps.Clone(p.delegates)
}

// LocalEvents returns the event names bound inside the type's template.
func (p *Prototype) LocalEvents() []string {
	return slices.Clone(p.events)
}

// Styles returns the type's own style text, in installation order.
func (p *Prototype) Styles() []string {
	return slices.Clone(p.styles)
}

// Declaration returns a copy of the declaration the type was composed
// from. It is nil for intrinsic and base links.
func (p *Prototype) Declaration() *Declaration {
	if p.declaration == nil {
		return nil
	}
	d := p.declaration.clone()
	return &d
}

// Constructor returns the handle the platform returned on registration.
func (p *Prototype) Constructor() Constructor { return p.constructor }

// ResolvePath resolves a path relative to the URL of the document the
// type was declared in.
func (p *Prototype) ResolvePath(rel string) (string, error) {
	for link := p; link != nil; link = link.parent {
		if link.declaration == nil || link.declaration.BaseURL == "" {
			continue
		}
		base, err := url.Parse(link.declaration.BaseURL)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(rel)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(ref).String(), nil
	}
	return rel, nil
}

// prototypeJSON is the inspection view of a prototype.
type prototypeJSON struct {
	Name          string            `json:"name"`
	Kind          LinkKind          `json:"kind"`
	Tag           string            `json:"tag"`
	Chain         []string          `json:"chain"`
	Members       map[string]string `json:"members"`
	CustomMembers []string          `json:"customMembers,omitempty"`
	Attributes    []string          `json:"attributes,omitempty"`
	Delegates     map[string]string `json:"delegates,omitempty"`
	LocalEvents   []string          `json:"localEvents,omitempty"`
	Styles        []string          `json:"styles,omitempty"`
	Extends       string            `json:"extends,omitempty"`
	Constructor   string            `json:"constructor,omitempty"`
}

// MarshalJSON renders the prototype for inspection. Member values are
// not serialized; each member is reported with the link it came from, and
// published attributes are listed by name.
func (p *Prototype) MarshalJSON() ([]byte, error) {
	out := prototypeJSON{
		Name:          p.name,
		Kind:          p.kind,
		Tag:           p.tag,
		Chain:         p.Chain(),
		Members:       maps.Clone(p.origins),
		CustomMembers: p.own,
		Attributes:    slices.Sorted(maps.Keys(p.attributes)),
		Delegates:     p.delegates,
		LocalEvents:   p.events,
		Styles:        p.styles,
		Extends:       p.extends,
	}
	if p.declaration != nil {
		out.Constructor = p.declaration.Constructor
	}
	return json.Marshal(out)
}
