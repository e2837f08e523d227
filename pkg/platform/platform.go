// Package platform is an in-memory native element system: the intrinsic
// prototypes for built-in tags and the native registry of custom element
// types.
package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/vango-dev/elements/pkg/element"
)

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("name already registered")

	// ErrReservedName is returned when a name collides with an intrinsic
	// tag.
	ErrReservedName = errors.New("name is reserved by an intrinsic tag")

	// ErrUnknownType is returned when creating an element of an
	// unregistered type.
	ErrUnknownType = errors.New("unknown element type")
)

// genericMembers are carried by every intrinsic prototype.
var genericMembers = element.Members{
	"tagName":          "",
	"id":               "",
	"className":        "",
	"hidden":           false,
	"setAttribute":     native("setAttribute"),
	"getAttribute":     native("getAttribute"),
	"addEventListener": native("addEventListener"),
	"dispatchEvent":    native("dispatchEvent"),
	"focus":            native("focus"),
	"blur":             native("blur"),
	"click":            native("click"),
}

// tagMembers are the additional members of specific intrinsic tags.
var tagMembers = map[string]element.Members{
	"a":        {"href": "", "target": ""},
	"button":   {"disabled": false, "type": "submit"},
	"form":     {"action": "", "submit": native("submit"), "reset": native("reset")},
	"img":      {"src": "", "alt": ""},
	"input":    {"value": "", "type": "text", "checked": false, "disabled": false},
	"select":   {"value": "", "disabled": false},
	"textarea": {"value": "", "disabled": false},
	"template": {"content": ""},
}

// DefaultTags lists the intrinsic tags a Document knows without options.
var DefaultTags = []string{
	"a", "article", "aside", "button", "div", "footer", "form", "h1", "h2",
	"h3", "header", "img", "input", "label", "li", "main", "nav", "ol", "p",
	"section", "select", "span", "table", "template", "textarea", "ul",
}

// NativeFunc stands in for a behavior implemented by the platform.
type NativeFunc struct {
	Name string
}

func native(name string) NativeFunc { return NativeFunc{Name: name} }

// Document is the native element system. It is safe for concurrent use.
type Document struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	intrinsics map[string]*element.Prototype
	types      map[string]*Type
	order      []string
}

// Option configures a Document.
type Option func(*Document)

// WithTags adds intrinsic tags beyond DefaultTags.
func WithTags(tags ...string) Option {
	return func(d *Document) {
		root := d.intrinsics[""]
		for _, tag := range tags {
			if _, ok := d.intrinsics[tag]; !ok && tag != "" {
				d.intrinsics[tag] = intrinsic(tag, root)
			}
		}
	}
}

// WithLogger sets the logger used to report native registrations.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Document with the default intrinsic tags.
func New(opts ...Option) *Document {
	root := element.NewIntrinsic("", nil, genericMembers)
	d := &Document{
		logger:     slog.Default(),
		intrinsics: map[string]*element.Prototype{"": root},
		types:      make(map[string]*Type),
	}
	for _, tag := range DefaultTags {
		d.intrinsics[tag] = intrinsic(tag, root)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func intrinsic(tag string, root *element.Prototype) *element.Prototype {
	members := maps.Clone(tagMembers[tag])
	if members == nil {
		members = element.Members{}
	}
	members["tagName"] = tag
	return element.NewIntrinsic(tag, root, members)
}

// IntrinsicPrototype returns the prototype of an intrinsic tag or of a
// natively registered type.
func (d *Document) IntrinsicPrototype(tag string) (*element.Prototype, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.intrinsics[tag]; ok {
		return p, true
	}
	if t, ok := d.types[tag]; ok {
		return t.proto, true
	}
	return nil, false
}

// Register installs proto as the native type name.
func (d *Document) Register(name string, proto *element.Prototype) (element.Constructor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.intrinsics[name]; ok {
		return nil, fmt.Errorf("register %q: %w", name, ErrReservedName)
	}
	if _, ok := d.types[name]; ok {
		return nil, fmt.Errorf("register %q: %w", name, ErrAlreadyRegistered)
	}

	t := &Type{name: name, proto: proto, registered: time.Now()}
	d.types[name] = t
	d.order = append(d.order, name)

	d.logger.Debug("native type registered",
		slog.String("element", name),
		slog.String("tag", proto.Tag()))
	return t, nil
}

// Lookup returns a registered type.
func (d *Document) Lookup(name string) (*Type, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.types[name]
	return t, ok
}

// Names returns the registered type names in registration order.
func (d *Document) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.order)
}

// Tags returns the intrinsic tags in sorted order. The generic element
// is omitted.
func (d *Document) Tags() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tags := slices.Sorted(maps.Keys(d.intrinsics))
	return slices.DeleteFunc(tags, func(t string) bool { return t == "" })
}

// CreateElement instantiates a registered type with the given markup
// attributes.
func (d *Document) CreateElement(name string, attrs map[string]string) (*Instance, error) {
	t, ok := d.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("create %q: %w", name, ErrUnknownType)
	}
	return t.New(attrs)
}
