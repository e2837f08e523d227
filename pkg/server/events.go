package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/elements/pkg/element"
)

// handleEvents streams lifecycle events as JSON text messages until the
// client disconnects or the server shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := make(chan element.Event, s.config.EventBuffer)
	var dropped atomic.Int64
	cancel := s.engine.Subscribe(func(ev element.Event) {
		select {
		case events <- ev:
		default:
			// Subscribers run under the engine lock and must not block.
			dropped.Add(1)
		}
	})
	defer cancel()

	// Subscribed before the handshake completes so no event after it is
	// missed.
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	requestID := RequestID(r.Context())
	s.logger.Debug("event stream opened", "requestID", requestID)
	defer func() {
		s.logger.Debug("event stream closed", "requestID", requestID, "dropped", dropped.Load())
	}()

	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second),
			)
			return
		}
	}
}
