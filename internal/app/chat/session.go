/*
Package chat contains the real-time session layer: the connection registry, the
per-connection protocol dispatcher, and the wire frame definitions.

This file defines the Session struct, representing an active WebSocket connection.
It manages the session's lifecycle, the message communication loops (ReadPump and
WritePump), and unconditional registry cleanup on exit.
*/
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"messenger/internal/app/assistant"
	"messenger/internal/app/friends"
	"messenger/internal/app/messages"
	"messenger/internal/pkg/errs"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/retry"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendQueueSize is the outbound queue capacity per session.
	sendQueueSize = 256
)

// Deps bundles the collaborators every session dispatches into.
type Deps struct {
	Registry  *Registry
	Messages  *messages.Facade
	Friends   *friends.Manager
	Generator assistant.Generator

	// ReactionRetry bounds the reaction aggregation retries.
	ReactionRetry retry.Policy
}

// Session represents an active WebSocket connection. The username is bound by
// the first register frame and owned by the read loop.
type Session struct {
	deps Deps

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// username of the registered user; empty until a register frame arrives.
	username string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// structured logger with session context.
	logger zerolog.Logger
}

// NewSession constructs a Session for a freshly upgraded connection.
func NewSession(deps Deps, wsConn *websocket.Conn) *Session {
	return &Session{
		deps:   deps,
		conn:   wsConn,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("component", "session").Logger(),
	}
}

// ReadPump handles reading frames from the WebSocket connection. It dispatches
// frames strictly in receipt order and performs cleanup upon connection closure.
func (s *Session) ReadPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxFrameSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.handleFrame(ctx, frameBytes)
	}
}

// cleanupOnDisconnect runs unconditionally when the read loop terminates. The
// registry entry is removed before any further dispatch can target this
// connection; a stale session never evicts its replacement.
func (s *Session) cleanupOnDisconnect() {
	if s.username != "" {
		s.deps.Registry.Remove(s.username, s)
		s.logger.Info().Str("username", s.username).Msg("User disconnected")
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Session connection close error")
	}
}

// WritePump handles writing frames from the Session.send channel to the
// WebSocket connection, interleaved with heartbeat pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue attempts a non-blocking push of payload onto the send queue.
func (s *Session) enqueue(payload []byte) error {
	select {
	case s.send <- payload:
		return nil
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping frame")
		return fmt.Errorf("session send queue full")
	}
}

// sendFrame marshals the frame and queues it for delivery to this session.
func (s *Session) sendFrame(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error marshaling frame for session")
		return
	}

	if err := s.enqueue(payload); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to queue frame")
	}
}

// sendError sends a typed error frame for the given application error to this
// session only.
func (s *Session) sendError(ce *errs.CustomError) {
	s.sendFrame(errorFrame{
		Type:    frameError,
		Code:    ce.Code,
		Message: ce.Message,
	})
}
