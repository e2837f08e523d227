package element

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Engine is the registration service: the definition registry, the wait
// ledger, and the table of registered prototypes, together with the
// collaborators used to compose and register types.
//
// All public methods are safe for concurrent use; they serialize on a
// single lock and run each task to completion.
type Engine struct {
	mu sync.Mutex

	platform   Platform
	transforms []Transform
	caps       Members
	observers  []Observer
	logger     *slog.Logger
	lossy      bool

	defs       *Registry
	ledger     *Ledger[*request]
	registered map[string]*Prototype
	requests   map[string]*request
	symbols    map[string]Constructor
	subs       map[int]func(Event)
	nextSub    int
	composer   *Composer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransforms sets the declarative transform pipeline run during
// composition.
func WithTransforms(ts ...Transform) Option {
	return func(e *Engine) {
		e.transforms = append(e.transforms, ts...)
	}
}

// WithCapabilities replaces the base capability set.
func WithCapabilities(caps Members) Option {
	return func(e *Engine) {
		e.caps = caps.Clone()
	}
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLossyDefinitionWait keeps a single definition waiter per name: a
// second request for a still-undefined name replaces the first, which
// then never resumes.
func WithLossyDefinitionWait(lossy bool) Option {
	return func(e *Engine) {
		e.lossy = lossy
	}
}

// New creates an Engine registering types with platform.
func New(platform Platform, opts ...Option) *Engine {
	e := &Engine{
		platform: platform,
		caps:     DefaultCapabilities(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.subs = make(map[int]func(Event))
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.defs = NewRegistry()
	e.ledger = NewLedger[*request](e.lossy)
	e.registered = make(map[string]*Prototype)
	e.requests = make(map[string]*request)
	e.symbols = make(map[string]Constructor)
	e.composer = &Composer{
		Platform:     e.platform,
		Capabilities: e.caps,
		Registered: func(name string) (*Prototype, bool) {
			p, ok := e.registered[name]
			return p, ok
		},
	}
}

// Reset discards every definition, pending request, registered type, and
// published constructor, then emits EventReset. Subscriptions and
// observers are kept. It exists for test isolation; the platform's
// native registrations are not undone.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
	tx := &Tx{e: e, ctx: context.Background()}
	tx.emit(Event{Kind: EventReset})
}

// Batch runs fn as a single cooperative task. Work deferred by the
// operations inside fn, such as the no-script fallback, runs after fn
// returns and before Batch does. The returned error joins fn's error and
// every error raised by deferred work.
//
// fn must use tx rather than the Engine's own methods.
func (e *Engine) Batch(ctx context.Context, fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{e: e, ctx: ctx}
	errs := []error{fn(tx)}
	for len(tx.deferred) > 0 {
		next := tx.deferred[0]
		tx.deferred = tx.deferred[1:]
		errs = append(errs, next())
	}
	return errors.Join(errs...)
}

// Define stores def under name if the name is not yet defined and resumes
// every request waiting for it. A nil def declares the name with no
// behavior. Errors from requests that fail while being resumed are
// returned joined; requests that succeed are unaffected by them.
func (e *Engine) Define(ctx context.Context, name string, def *Definition) error {
	return e.Batch(ctx, func(tx *Tx) error {
		return tx.Define(name, def)
	})
}

// RequestRegistration starts a registration request for decl. The
// returned handle tracks the request; if the request fails immediately
// the handle is returned together with the error.
func (e *Engine) RequestRegistration(ctx context.Context, decl Declaration) (*Handle, error) {
	var h *Handle
	err := e.Batch(ctx, func(tx *Tx) error {
		var err error
		h, err = tx.RequestRegistration(decl)
		return err
	})
	return h, err
}

// Lookup returns the definition stored under name.
func (e *Engine) Lookup(name string) (*Definition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, ok := e.defs.Lookup(name)
	if !ok {
		return nil, false
	}
	return &Definition{Name: def.Name, Extends: def.Extends, Members: def.Members.Clone()}, true
}

// Definitions returns the defined names in sorted order.
func (e *Engine) Definitions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defs.Names()
}

// Registered returns the composed prototype of a registered type.
func (e *Engine) Registered(name string) (*Prototype, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.registered[name]
	return p, ok
}

// RegisteredNames returns the registered type names in sorted order.
func (e *Engine) RegisteredNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.registered))
}

// Constructor returns the constructor published under symbol by a
// declaration's constructor attribute.
func (e *Engine) Constructor(symbol string) (Constructor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.symbols[symbol]
	return c, ok
}

// PendingRequest describes a request that has not reached a terminal
// state.
type PendingRequest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Extends   string    `json:"extends,omitempty"`
	Status    Status    `json:"status"`
	WaitingOn string    `json:"waitingOn"`
	Since     time.Time `json:"since"`

	// Lost marks a request displaced from a lossy definition wait. It
	// will never resume.
	Lost bool `json:"lost,omitempty"`
}

// Pending returns the requests that are still suspended, oldest first.
func (e *Engine) Pending() []PendingRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PendingRequest, 0, len(e.requests))
	for _, r := range e.requests {
		pr := PendingRequest{
			ID:      r.id,
			Name:    r.name(),
			Extends: r.extends,
			Status:  r.currentStatus(),
			Since:   r.created,
			Lost:    r.lost,
		}
		switch pr.Status {
		case StatusAwaitingDefinition:
			pr.WaitingOn = r.name()
		case StatusAwaitingSupertype:
			pr.WaitingOn = r.extends
		}
		out = append(out, pr)
	}
	slices.SortFunc(out, func(a, b PendingRequest) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Stats summarizes the engine state.
type Stats struct {
	Definitions int `json:"definitions"`
	Registered  int `json:"registered"`
	Pending     int `json:"pending"`
	Waiters     int `json:"waiters"`
}

// Stats returns counts of definitions, registered types, and pending
// requests.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Definitions: e.defs.Len(),
		Registered:  len(e.registered),
		Pending:     len(e.requests),
		Waiters:     e.ledger.Len(),
	}
}

// Subscribe registers fn to receive every lifecycle event. fn runs while
// the engine lock is held and must not call back into the Engine. The
// returned function cancels the subscription.
func (e *Engine) Subscribe(fn func(Event)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}
