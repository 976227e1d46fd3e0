package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/promptlab/internal/config"
	"github.com/davidbz/promptlab/internal/http/middleware"
	"github.com/davidbz/promptlab/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.Config,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      cfg.Server,
		handler:     handler,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("POST /v1/generate", s.handler.HandleGenerate)
	mux.HandleFunc("GET /v1/generate/state", s.handler.HandleGenerationState)
	mux.HandleFunc("POST /v1/generate/select", s.handler.HandleSelectCandidate)
	mux.HandleFunc("POST /v1/compare", s.handler.HandleCompare)
	mux.HandleFunc("POST /v1/language", s.handler.HandleLanguageInput)
	mux.HandleFunc("GET /v1/language", s.handler.HandleLanguageState)
	mux.HandleFunc("GET /v1/history", s.handler.HandleHistoryList)
	mux.HandleFunc("DELETE /v1/history", s.handler.HandleHistoryClear)
	mux.HandleFunc("DELETE /v1/history/{id}", s.handler.HandleHistoryRemove)
	mux.HandleFunc("POST /v1/export", s.handler.HandleExport)
	mux.HandleFunc("/health", s.handler.HandleHealth)

	// Apply middleware chain.
	handlerWithMiddleware := s.middlewares(mux)

	// Create server with timeouts.
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handlerWithMiddleware,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
