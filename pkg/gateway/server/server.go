// Package server assembles the gateway's HTTP surface: routes plus the
// middleware chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/alrislabs/alris-gateway/pkg/gateway/config"
	"github.com/alrislabs/alris-gateway/pkg/gateway/handlers"
	"github.com/alrislabs/alris-gateway/pkg/gateway/lifecycle"
	"github.com/alrislabs/alris-gateway/pkg/gateway/mw"
	"github.com/alrislabs/alris-gateway/pkg/gateway/session"
)

type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	orch     *lifecycle.Orchestrator
	registry *session.Registry
	mux      *http.ServeMux
}

func New(cfg config.Config, logger *slog.Logger, orch *lifecycle.Orchestrator, registry *session.Registry) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		orch:     orch,
		registry: registry,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /health", handlers.HealthHandler{Orch: s.orch})
	s.mux.Handle("/ws", handlers.NewWSHandler(s.orch, s.registry, s.logger, s.cfg.WSWriteTimeout))
}

// Handler wraps the mux in the middleware chain, outermost first:
// request ID, access log, panic recovery, CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
