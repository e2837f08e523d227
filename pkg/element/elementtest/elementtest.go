// Package elementtest provides fakes for testing code built on the
// element engine.
package elementtest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vango-dev/elements/pkg/element"
)

// Ctor is the constructor returned by Platform.
type Ctor struct {
	Name string
}

// TypeName implements element.Constructor.
func (c Ctor) TypeName() string { return c.Name }

// Platform is an in-memory element.Platform that records registrations
// and can be told to reject names.
type Platform struct {
	mu         sync.Mutex
	intrinsics map[string]*element.Prototype
	native     map[string]*element.Prototype
	order      []string
	reject     map[string]error
}

// NewPlatform returns a Platform knowing the generic element ("") and
// the given base tags. Each intrinsic carries a "native" member naming
// its tag.
func NewPlatform(tags ...string) *Platform {
	root := element.NewIntrinsic("", nil, element.Members{"native": ""})
	p := &Platform{
		intrinsics: map[string]*element.Prototype{"": root},
		native:     make(map[string]*element.Prototype),
		reject:     make(map[string]error),
	}
	for _, tag := range tags {
		p.intrinsics[tag] = element.NewIntrinsic(tag, root, element.Members{"native": tag})
	}
	return p
}

// Reject makes Register fail for name with err.
func (p *Platform) Reject(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reject[name] = err
}

// IntrinsicPrototype implements element.Platform.
func (p *Platform) IntrinsicPrototype(tag string) (*element.Prototype, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proto, ok := p.intrinsics[tag]; ok {
		return proto, true
	}
	proto, ok := p.native[tag]
	return proto, ok
}

// Register implements element.Platform.
func (p *Platform) Register(name string, proto *element.Prototype) (element.Constructor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.reject[name]; ok {
		return nil, err
	}
	if _, ok := p.native[name]; ok {
		return nil, fmt.Errorf("%q is already registered", name)
	}
	p.native[name] = proto
	p.order = append(p.order, name)
	return Ctor{Name: name}, nil
}

// Order returns the names registered so far, in registration order.
func (p *Platform) Order() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

// Recorder is an element.Observer that keeps every event.
type Recorder struct {
	mu       sync.Mutex
	events   []element.Event
	composed []string
	outcomes map[string]error
}

// Observe implements element.Observer.
func (r *Recorder) Observe(_ context.Context, ev element.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// StartCompose implements element.Observer.
func (r *Recorder) StartCompose(ctx context.Context, name string) (context.Context, func(error)) {
	r.mu.Lock()
	r.composed = append(r.composed, name)
	r.mu.Unlock()
	return ctx, func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.outcomes == nil {
			r.outcomes = make(map[string]error)
		}
		r.outcomes[name] = err
	}
}

// Events returns the recorded events.
func (r *Recorder) Events() []element.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Kinds returns the kinds of the events recorded for name, in order.
func (r *Recorder) Kinds(name string) []element.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []element.EventKind
	for _, ev := range r.events {
		if ev.Name == name {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

// Composed returns the names that entered composition, in order.
func (r *Recorder) Composed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.composed)
}

// Outcomes returns the error each finished composition ended with, by
// name. Successful compositions map to nil.
func (r *Recorder) Outcomes() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.outcomes)
}
