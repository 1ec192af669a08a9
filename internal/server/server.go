// Package server exposes the diarist HTTP API.
//
// Routes:
//
//	POST /chat                              — run one orchestration cycle
//	POST /conversations                     — start a new conversation
//	GET  /conversations                     — list conversations
//	GET  /conversations/{id}/messages       — read the turn history
//	GET  /appointments?conversation_id=…    — list mirrored appointments
//	GET  /healthz, /readyz                  — probes
//	GET  /metrics                           — Prometheus scrape endpoint
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/pcurran/diarist/internal/chat"
	"github.com/pcurran/diarist/internal/config"
	"github.com/pcurran/diarist/internal/health"
	"github.com/pcurran/diarist/internal/observe"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Server is the diarist HTTP server. Construct with [New], start with
// [Server.Run].
type Server struct {
	cfg     config.ServerConfig
	manager *chat.Manager
	probes  *health.Handler
	metrics *observe.Metrics
	logger  *slog.Logger

	httpServer *http.Server
}

// New creates a Server serving the chat API for manager. The probes handler
// carries the readiness checkers wired by the caller (database, calendar).
func New(cfg config.ServerConfig, manager *chat.Manager, probes *health.Handler, metrics *observe.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		manager: manager,
		probes:  probes,
		metrics: metrics,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /conversations", s.handleCreateConversation)
	mux.HandleFunc("GET /conversations", s.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}/messages", s.handleMessages)
	mux.HandleFunc("GET /appointments", s.handleAppointments)
	s.probes.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = observe.Middleware(metrics)(handler)
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}).Handler(handler)
	}

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// nil on clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
