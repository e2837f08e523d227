package element

import (
	"context"
	"log/slog"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

func (tx *Tx) define(name string, def *Definition) error {
	e := tx.e
	if e.defs.Store(name, def) {
		ev := Event{Kind: EventDefined, Name: name}
		if stored, ok := e.defs.Lookup(name); ok {
			ev.Extends = stored.Extends
		}
		tx.emit(ev)
		e.logger.Debug("definition stored", slog.String("element", name))
	} else {
		e.logger.Warn("element already defined, keeping first definition",
			slog.String("element", name))
	}
	return tx.notifyDefinition(name)
}

func (tx *Tx) requestRegistration(decl Declaration) (*Handle, error) {
	if !ValidName(decl.Name) {
		return nil, elerrors.New("E204").
			WithElement(decl.Name).
			WithSuggestion(`Use a lowercase name containing a hyphen, such as "x-widget"`)
	}
	if decl.Extends == decl.Name {
		return nil, elerrors.New("E204").
			WithElement(decl.Name).
			WithDetail("an element cannot extend itself")
	}

	r := newRequest(decl)
	tx.e.requests[r.id] = r
	tx.emit(eventFor(EventRequested, r))
	return &Handle{req: r}, tx.advance(r)
}

// advance moves r as far along the lifecycle as it can go right now,
// parking it in the ledger when a dependency is missing.
func (tx *Tx) advance(r *request) error {
	e := tx.e
	name := r.name()

	def, ok := e.defs.Lookup(name)
	if !ok {
		r.setStatus(StatusAwaitingDefinition)
		if replaced := e.ledger.AwaitDefinition(name, r); replaced {
			tx.displace(name, r)
		}
		ev := eventFor(EventSuspended, r)
		ev.WaitingOn = name
		tx.emit(ev)

		if r.decl.NoScript && !r.fallback {
			r.fallback = true
			tx.after(func() error {
				if _, ok := e.defs.Lookup(name); ok {
					return nil
				}
				e.logger.Debug("no script declared, registering empty definition",
					slog.String("element", name))
				return tx.define(name, nil)
			})
		}
		return nil
	}

	r.setStatus(StatusAwaitingSupertype)
	if r.extends == "" {
		r.extends = def.Extends
	}
	if tx.mustAwaitSupertype(r.extends) {
		e.ledger.AwaitSupertype(r.extends, r)
		ev := eventFor(EventSuspended, r)
		ev.WaitingOn = r.extends
		tx.emit(ev)
		return nil
	}
	return tx.register(r, def)
}

// mustAwaitSupertype reports whether extends names a custom element whose
// registration has not completed.
func (tx *Tx) mustAwaitSupertype(extends string) bool {
	if !IsCustomName(extends) {
		return false
	}
	if _, ok := tx.e.registered[extends]; ok {
		return false
	}
	_, native := tx.e.platform.IntrinsicPrototype(extends)
	return !native
}

// displace marks the waiters a lossy ledger dropped in favor of r.
func (tx *Tx) displace(name string, r *request) {
	for _, other := range tx.e.requests {
		if other == r || other.name() != name || other.lost {
			continue
		}
		if other.currentStatus() == StatusAwaitingDefinition {
			other.lost = true
		}
	}
	tx.e.logger.Warn("pending registration replaced",
		slog.String("element", name),
		slog.String("request", r.id),
		slog.String("code", "E205"))
}

func (tx *Tx) register(r *request, def *Definition) error {
	e := tx.e
	name := r.name()

	r.setStatus(StatusComposing)
	ctx, end := tx.startCompose(name)
	p, err := e.compose(ctx, r, def)
	end(err)
	if err != nil {
		return tx.abandon(r, err)
	}

	e.registered[name] = p
	if sym := r.decl.Constructor; sym != "" && p.constructor != nil {
		e.symbols[sym] = p.constructor
	}
	r.complete(p)
	delete(e.requests, r.id)

	tx.emit(eventFor(EventRegistered, r))
	e.logger.Info("element registered",
		slog.String("element", name),
		slog.String("extends", r.extends),
		slog.Any("chain", p.Chain()))

	return tx.notifySupertype(name)
}

func (tx *Tx) abandon(r *request, err error) error {
	r.fail(err)
	delete(tx.e.requests, r.id)

	ev := eventFor(EventFailed, r)
	ev.Err = err
	tx.emit(ev)
	tx.e.logger.Error("element registration failed",
		slog.String("element", r.name()),
		slog.String("request", r.id),
		slog.Any("error", err))
	return err
}

// compose runs the transform pipeline, composes the prototype, runs its
// registerCallback, and registers it with the platform.
func (e *Engine) compose(ctx context.Context, r *request, def *Definition) (*Prototype, error) {
	name := r.name()

	draft := newDraft(r.decl, r.extends, def)
	for _, t := range e.transforms {
		if err := t.Apply(ctx, draft); err != nil {
			ee := elerrors.FromError(err, "E203")
			if ee.Element == "" {
				ee.WithElement(name)
			}
			return nil, ee
		}
	}

	p, err := e.composer.Compose(draft)
	if err != nil {
		return nil, err
	}

	if err := runRegisterCallback(p); err != nil {
		return nil, elerrors.New("E206").WithElement(name).Wrap(err)
	}

	ctor, err := e.platform.Register(name, p)
	if err != nil {
		return nil, elerrors.New("E202").
			WithElement(name).
			WithSuggestion("Each element name can be registered once; check for duplicate declarations").
			Wrap(err)
	}
	p.constructor = ctor
	return p, nil
}

func runRegisterCallback(p *Prototype) error {
	m, ok := p.Member(RegisterCallbackMember)
	if !ok {
		return nil
	}
	switch fn := m.(type) {
	case RegisterCallback:
		return fn(p)
	case func(*Prototype) error:
		return fn(p)
	case func(*Prototype):
		fn(p)
		return nil
	}
	return nil
}
