package element

import (
	"maps"
	"slices"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

// Composer assembles prototypes. It is a pure function of the chain base,
// the base capability set, and the draft; the only state it consults is
// the registered-type lookup used to find custom supertypes.
type Composer struct {
	// Platform supplies intrinsic prototypes for built-in base tags.
	Platform Platform

	// Capabilities is the base capability set mixed into every chain once.
	Capabilities Members

	// Registered looks up the composed prototype of a registered custom
	// element.
	Registered func(name string) (*Prototype, bool)
}

// Base resolves the chain base for extends: the registered prototype of
// a custom supertype, or the platform's intrinsic prototype for a base
// tag.
func (c *Composer) Base(extends string) (*Prototype, bool) {
	if IsCustomName(extends) && c.Registered != nil {
		if p, ok := c.Registered(extends); ok {
			return p, true
		}
	}
	if c.Platform == nil {
		return nil, false
	}
	return c.Platform.IntrinsicPrototype(extends)
}

// Compose builds the prototype for d.Declaration.Name, layering the chain
// base, the base capability set (when absent from the chain), inherited
// metadata, and the draft's own members.
func (c *Composer) Compose(d *Draft) (*Prototype, error) {
	name := d.Declaration.Name

	base, ok := c.Base(d.Extends)
	if !ok {
		return nil, elerrors.New("E201").
			WithElement(name).
			WithDetailf("no intrinsic or registered prototype for %q", d.Extends).
			WithSuggestion("Check the extends attribute, or declare the supertype before using it as a base")
	}

	if !base.HasCapabilities() {
		base = c.baseLink(base)
	}

	p := &Prototype{
		name:    name,
		kind:    LinkElement,
		extends: d.Extends,
		parent:  base,
	}
	p.inherit(base)

	// Own metadata wins over the inherited tables.
	maps.Copy(p.attributes, d.Attributes)
	maps.Copy(p.delegates, d.Delegates)

	p.own = d.Members.Names()
	for _, member := range p.own {
		p.set(member, d.Members[member])
	}

	p.events = slices.Clone(d.LocalEvents)
	slices.Sort(p.events)
	p.events = slices.Compact(p.events)
	p.styles = slices.Clone(d.Styles)

	decl := d.Declaration.clone()
	p.declaration = &decl

	return p, nil
}

// baseLink inserts a new link carrying the base capability set above
// parent, leaving parent itself untouched.
func (c *Composer) baseLink(parent *Prototype) *Prototype {
	link := &Prototype{
		name:   BaseLinkName,
		kind:   LinkBase,
		parent: parent,
	}
	link.inherit(parent)
	for _, member := range c.Capabilities.Names() {
		link.set(member, c.Capabilities[member])
	}
	return link
}
