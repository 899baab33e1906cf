// Package handlers holds the gateway's HTTP endpoints: the websocket
// command channel and the health report.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alrislabs/alris-gateway/pkg/gateway/lifecycle"
	"github.com/alrislabs/alris-gateway/pkg/gateway/mw"
	"github.com/alrislabs/alris-gateway/pkg/gateway/session"
)

// WSHandler upgrades clients onto the command channel and registers the
// resulting session as the active speech target.
type WSHandler struct {
	Orch         *lifecycle.Orchestrator
	Registry     *session.Registry
	Logger       *slog.Logger
	WriteTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewWSHandler(orch *lifecycle.Orchestrator, registry *session.Registry, logger *slog.Logger, writeTimeout time.Duration) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		Orch:         orch,
		Registry:     registry,
		Logger:       logger,
		WriteTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origins are vetted by the CORS middleware; the upgrade itself
			// accepts any.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Orch.IsDraining() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.Logger.Error("websocket upgrade failed", "error", err)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	s := session.New(conn, h.Orch.Processor(), h.Logger, h.WriteTimeout)
	if replaced := h.Registry.Activate(s); replaced {
		h.Logger.Info("active session replaced", "session", s.Token(), "request_id", reqID)
	}
	h.Logger.Info("websocket client connected", "session", s.Token(), "request_id", reqID)

	defer func() {
		h.Registry.Clear(s)
		s.Close()
		h.Logger.Info("websocket client disconnected", "session", s.Token())
	}()

	if err := s.Run(r.Context()); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.Logger.Info("session ended", "session", s.Token(), "error", err)
	}
}
