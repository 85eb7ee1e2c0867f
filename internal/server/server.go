// Package server assembles the HTTP API for the marketplace: routing,
// middleware chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
	"github.com/alanyoungcy/fixedmarket/internal/server/handler"
	"github.com/alanyoungcy/fixedmarket/internal/server/middleware"
	"github.com/alanyoungcy/fixedmarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// MaxAuthSkew bounds how far a signed request timestamp may drift from
	// server time.
	MaxAuthSkew time.Duration

	// RateLimit is requests per RateWindow per client IP; zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Items  *handler.ItemHandler
}

// Server is the HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. The middleware
// chain is, outermost first: CORS, request logging, rate limiting, and
// signature authentication.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Item lifecycle endpoints.
	mux.HandleFunc("POST /api/items", handlers.Items.ListItem)
	mux.HandleFunc("POST /api/items/{id}/buy", handlers.Items.BuyItem)
	mux.HandleFunc("POST /api/items/{id}/unlist", handlers.Items.UnlistItem)
	mux.HandleFunc("GET /api/items/{id}", handlers.Items.ViewItem)
	mux.HandleFunc("GET /api/items", handlers.Items.ListBySeller)

	// Lifecycle event stream.
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux

	maxSkew := cfg.MaxAuthSkew
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	h = middleware.SignatureAuth(maxSkew)(h)

	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
