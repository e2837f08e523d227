package element

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a registration request.
type Status int32

const (
	StatusCreated Status = iota
	StatusAwaitingDefinition
	StatusAwaitingSupertype
	StatusComposing
	StatusRegistered
	StatusFailed
)

var statusNames = [...]string{
	StatusCreated:            "created",
	StatusAwaitingDefinition: "awaiting-definition",
	StatusAwaitingSupertype:  "awaiting-supertype",
	StatusComposing:          "composing",
	StatusRegistered:         "registered",
	StatusFailed:             "failed",
}

// String returns the status name.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusRegistered || s == StatusFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// request is one attempt to turn a name into a registered type. Its
// lifecycle fields are only written by the engine while it holds its
// lock; status, prototype, and err are published atomically so handles
// can read them without the lock.
type request struct {
	id       string
	decl     Declaration
	extends  string
	created  time.Time
	fallback bool
	lost     bool

	status    atomic.Int32
	prototype atomic.Pointer[Prototype]
	err       error
	done      chan struct{}
	doneOnce  sync.Once
}

func newRequest(decl Declaration) *request {
	r := &request{
		id:      uuid.NewString(),
		decl:    decl.clone(),
		extends: decl.Extends,
		created: time.Now(),
		done:    make(chan struct{}),
	}
	r.status.Store(int32(StatusCreated))
	return r
}

func (r *request) name() string { return r.decl.Name }

func (r *request) setStatus(s Status) {
	r.status.Store(int32(s))
}

func (r *request) currentStatus() Status {
	return Status(r.status.Load())
}

func (r *request) complete(p *Prototype) {
	r.prototype.Store(p)
	r.setStatus(StatusRegistered)
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *request) fail(err error) {
	r.err = err
	r.setStatus(StatusFailed)
	r.doneOnce.Do(func() { close(r.done) })
}

// Handle tracks a registration request. It is safe to use from any
// goroutine, including while the engine is busy.
type Handle struct {
	req *request
}

// ID returns the request's unique identifier.
func (h *Handle) ID() string { return h.req.id }

// Name returns the requested type name.
func (h *Handle) Name() string { return h.req.decl.Name }

// Status returns the request's current state.
func (h *Handle) Status() Status { return h.req.currentStatus() }

// Prototype returns the composed prototype once registration completed.
func (h *Handle) Prototype() *Prototype { return h.req.prototype.Load() }

// Done returns a channel closed when the request reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.req.done }

// Err returns the error that abandoned the request, if any. It is only
// meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.req.done:
		return h.req.err
	default:
		return nil
	}
}

// Wait blocks until the request reaches a terminal state or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*Prototype, error) {
	select {
	case <-h.req.done:
		if h.req.err != nil {
			return nil, h.req.err
		}
		return h.req.prototype.Load(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
