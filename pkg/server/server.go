package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livetree-go/livetree/pkg/protocol"
)

// Server accepts websocket connections and runs one update session per
// connection.
type Server struct {
	config   Config
	registry *protocol.Registry
	metrics  *Metrics
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// New validates the configuration, builds the modifier registry, and
// assembles the router. Modifier configuration errors are returned here,
// before any connection is accepted.
func New(cfg Config) (*Server, error) {
	if cfg.NewApplication == nil {
		return nil, fmt.Errorf("server: Config.NewApplication is required")
	}
	cfg = cfg.withDefaults()

	registry, err := protocol.NewRegistry(cfg.Modifiers)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		registry: registry,
		metrics:  NewMetrics(cfg.Registerer),
		logger:   cfg.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get(cfg.WebSocketPath, s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if !cfg.DisableMetrics {
		// Gather from the configured registry when it is one, so custom
		// registries see their own collectors at /metrics.
		if gatherer, ok := cfg.Registerer.(prometheus.Gatherer); ok {
			r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}
	s.router = r

	return s, nil
}

// Registry returns the validated modifier registry.
func (s *Server) Registry() *protocol.Registry {
	return s.registry
}

// Handler returns the server's HTTP handler, for embedding in a larger
// router or for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewSession builds an unmounted session against a fresh Application.
// The websocket endpoint calls this per connection; tests use it to drive
// sessions directly.
func (s *Server) NewSession() *Session {
	return newSession(s.config.NewApplication(), s.registry, &s.config, s.metrics)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sess := s.NewSession()
	s.metrics.SessionsActive.Inc()
	s.metrics.SessionsTotal.Inc()
	defer s.metrics.SessionsActive.Dec()

	s.logger.Info("session connected", "session_id", sess.ID, "remote", r.RemoteAddr)
	if err := newWSConn(sess, conn, &s.config).serve(r.Context()); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("session ended with error", "session_id", sess.ID, "error", err)
	}
	s.logger.Info("session disconnected", "session_id", sess.ID)
}

// ListenAndServe runs the server on the configured address until Shutdown
// is called or the listener fails.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.config.Address,
		Handler: s.router,
	}
	s.logger.Info("listening", "addr", s.config.Address)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
