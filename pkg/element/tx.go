package element

import (
	"context"
	"time"
)

// Tx is a cooperative task running inside Engine.Batch. Its methods run
// with the engine lock held and must not be used after the Batch
// function returns.
type Tx struct {
	e        *Engine
	ctx      context.Context
	deferred []func() error
}

// Context returns the context the batch was started with.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Define stores def under name if the name is not yet defined and resumes
// the requests waiting for it. See Engine.Define.
func (tx *Tx) Define(name string, def *Definition) error {
	return tx.define(name, def)
}

// RequestRegistration starts a registration request. See
// Engine.RequestRegistration.
func (tx *Tx) RequestRegistration(decl Declaration) (*Handle, error) {
	return tx.requestRegistration(decl)
}

// after schedules fn to run once the current batch function returns.
func (tx *Tx) after(fn func() error) {
	tx.deferred = append(tx.deferred, fn)
}

func (tx *Tx) emit(ev Event) {
	ev.Time = time.Now()
	if ev.Err != nil {
		ev.Error = ev.Err.Error()
	}
	for _, o := range tx.e.observers {
		o.Observe(tx.ctx, ev)
	}
	for _, fn := range tx.e.subs {
		fn(ev)
	}
}

func (tx *Tx) startCompose(name string) (context.Context, func(error)) {
	ctx := tx.ctx
	var ends []func(error)
	for _, o := range tx.e.observers {
		var end func(error)
		ctx, end = o.StartCompose(ctx, name)
		if end != nil {
			ends = append(ends, end)
		}
	}
	return ctx, func(err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](err)
		}
	}
}

func eventFor(kind EventKind, r *request) Event {
	return Event{
		Kind:      kind,
		Name:      r.name(),
		RequestID: r.id,
		Extends:   r.extends,
		Status:    r.currentStatus(),
	}
}
