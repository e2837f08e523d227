package element

import (
	"context"
	"time"
)

// EventKind identifies a registration lifecycle event.
type EventKind string

const (
	EventDefined    EventKind = "defined"
	EventRequested  EventKind = "requested"
	EventSuspended  EventKind = "suspended"
	EventResumed    EventKind = "resumed"
	EventRegistered EventKind = "registered"
	EventFailed     EventKind = "failed"

	// EventReset is emitted by Engine.Reset. Every pending request is
	// dropped without further events.
	EventReset EventKind = "reset"
)

// Event describes one step of the registration lifecycle.
type Event struct {
	Kind      EventKind `json:"kind"`
	Name      string    `json:"name"`
	RequestID string    `json:"requestId,omitempty"`
	Extends   string    `json:"extends,omitempty"`
	Status    Status    `json:"status"`
	WaitingOn string    `json:"waitingOn,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`

	// Err is the failure behind an EventFailed.
	Err error `json:"-"`
}

// Observer receives lifecycle callbacks from the engine. Callbacks run
// synchronously while the engine lock is held: implementations must be
// quick and must not call back into the Engine.
type Observer interface {
	// Observe is called for every lifecycle event.
	Observe(ctx context.Context, ev Event)

	// StartCompose is called when a request enters Composing. The
	// returned function is called with the outcome.
	StartCompose(ctx context.Context, name string) (context.Context, func(err error))
}
