package loader

import (
	"github.com/vango-dev/elements/pkg/element"
)

// Document is one decoded declaration document.
type Document struct {
	// Location is where the document was read from.
	Location string `json:"-" yaml:"-"`

	// BaseURL is stamped on declarations that do not carry their own.
	BaseURL string `json:"-" yaml:"-"`

	Elements []ElementDecl `json:"elements,omitempty" yaml:"elements,omitempty"`
	Scripts  []Script      `json:"scripts,omitempty" yaml:"scripts,omitempty"`
}

// ElementDecl is the document form of an element declaration.
type ElementDecl struct {
	Name        string            `json:"name" yaml:"name"`
	Extends     string            `json:"extends,omitempty" yaml:"extends,omitempty"`
	Attributes  string            `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Publish     map[string]any    `json:"publish,omitempty" yaml:"publish,omitempty"`
	Events      map[string]string `json:"events,omitempty" yaml:"events,omitempty"`
	Template    string            `json:"template,omitempty" yaml:"template,omitempty"`
	Sheets      []string          `json:"sheets,omitempty" yaml:"sheets,omitempty"`
	Styles      []string          `json:"styles,omitempty" yaml:"styles,omitempty"`
	NoScript    bool              `json:"noscript,omitempty" yaml:"noscript,omitempty"`
	Constructor string            `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	BaseURL     string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
}

// Script is the document form of a definition. Documents carry data
// members only; function members are supplied through Engine.Define.
type Script struct {
	Name    string         `json:"name" yaml:"name"`
	Extends string         `json:"extends,omitempty" yaml:"extends,omitempty"`
	Members map[string]any `json:"members,omitempty" yaml:"members,omitempty"`
}

// Declaration converts e to an engine declaration, defaulting BaseURL.
func (e ElementDecl) Declaration(baseURL string) element.Declaration {
	d := element.Declaration{
		Name:        e.Name,
		Extends:     e.Extends,
		Attributes:  e.Attributes,
		Publish:     e.Publish,
		Events:      e.Events,
		Template:    e.Template,
		Sheets:      e.Sheets,
		Styles:      e.Styles,
		NoScript:    e.NoScript,
		Constructor: e.Constructor,
		BaseURL:     e.BaseURL,
	}
	if d.BaseURL == "" {
		d.BaseURL = baseURL
	}
	return d
}

// Definition converts s to an engine definition.
func (s Script) Definition() *element.Definition {
	return &element.Definition{
		Name:    s.Name,
		Extends: s.Extends,
		Members: element.Members(s.Members),
	}
}

// Names returns the element and script names the document mentions, in
// document order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Elements)+len(d.Scripts))
	for _, e := range d.Elements {
		names = append(names, e.Name)
	}
	for _, s := range d.Scripts {
		names = append(names, s.Name)
	}
	return names
}
