package server

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config holds configuration for the inspection server.
type Config struct {
	// Addr is the address to listen on.
	// Default: ":8080".
	Addr string

	// RateLimit is the sustained rate of mutating requests per second.
	// Default: 10.
	RateLimit rate.Limit

	// Burst is the mutating request burst size.
	// Default: 20.
	Burst int

	// MaxBodyBytes bounds POST bodies.
	// Default: 1MB.
	MaxBodyBytes int64

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// WriteTimeout bounds a single WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between WebSocket pings.
	// Default: 30 seconds.
	PingInterval time.Duration

	// EventBuffer is the per-subscriber event queue size. Events are
	// dropped for subscribers that fall further behind.
	// Default: 256.
	EventBuffer int

	// CheckOrigin validates WebSocket origins.
	// Default: allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		RateLimit:         10,
		Burst:             20,
		MaxBodyBytes:      1 << 20,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		EventBuffer:       256,
		CheckOrigin:       func(*http.Request) bool { return true },
	}
}

// withDefaults returns a copy of c with unset fields filled in.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Addr == "" {
		out.Addr = d.Addr
	}
	if out.RateLimit == 0 {
		out.RateLimit = d.RateLimit
	}
	if out.Burst == 0 {
		out.Burst = d.Burst
	}
	if out.MaxBodyBytes == 0 {
		out.MaxBodyBytes = d.MaxBodyBytes
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.PingInterval == 0 {
		out.PingInterval = d.PingInterval
	}
	if out.EventBuffer == 0 {
		out.EventBuffer = d.EventBuffer
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	return &out
}
