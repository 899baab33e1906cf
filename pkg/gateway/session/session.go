// Package session owns the websocket command/response protocol: one Session
// per connection, a single-slot Registry naming the active one, and the
// response normalization shared by both.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alrislabs/alris-gateway/pkg/agent"
)

// Conn is the subset of *websocket.Conn a Session needs; injectable for
// tests.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one live client connection. Writes are serialized on an
// internal mutex so the receive loop and the speech bridge can both send.
type Session struct {
	conn      Conn
	token     string
	processor agent.Processor
	logger    *slog.Logger

	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func New(conn Conn, processor agent.Processor, logger *slog.Logger, writeTimeout time.Duration) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Session{
		conn:         conn,
		token:        uuid.NewString(),
		processor:    processor,
		logger:       logger,
		writeTimeout: writeTimeout,
	}
}

// Token is the session's correlation token, passed to the processor with
// every command.
func (s *Session) Token() string { return s.token }

// Run drives the receive loop until the connection fails or ctx is
// canceled. Frame-level failures are reported to the client and keep the
// loop running; only a read error ends the session.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleFrame(ctx, data)
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Error("invalid JSON frame", "session", s.token)
		s.writeError("Invalid JSON format")
		return
	}

	command, _ := frame["command"].(string)
	if command == "" {
		s.logger.Error("frame missing command", "session", s.token)
		s.writeError("Command is required")
		return
	}

	if s.processor == nil {
		s.writeError("agent orchestrator is not available")
		return
	}

	raw, err := s.processor.Process(ctx, command, s.token)
	if err != nil {
		s.logger.Error("command processing failed", "session", s.token, "error", err)
		s.writeError(err.Error())
		return
	}

	if err := s.writeJSON(BuildFrame(raw)); err != nil {
		s.logger.Warn("response write failed", "session", s.token, "error", err)
	}
}

// Send delivers an out-of-band frame (e.g. a recognized speech command),
// blocking until the write completes, the write timeout elapses, or ctx's
// deadline passes.
func (s *Session) Send(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.writeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) writeError(message string) {
	if err := s.writeJSON(map[string]any{"type": "error", "message": message}); err != nil {
		s.logger.Warn("error frame write failed", "session", s.token, "error", err)
	}
}

func (s *Session) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// ErrNoActiveSession is returned by Registry.DeliverSpeech when no client
// is connected.
var ErrNoActiveSession = errors.New("no active session")
