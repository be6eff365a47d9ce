// Package api serves read-only queries over the entity registry.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/observability"
	"pool-analytics-lab/internal/pricing"
	"pool-analytics-lab/internal/registry"
)

// Options configures a Server.
type Options struct {
	Addr     string
	Registry *registry.Registry
	Resolver *pricing.Resolver
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// Server represents the HTTP query server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	reg        *registry.Registry
	resolver   *pricing.Resolver
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewServer creates a Server with its routes configured.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:   mux.NewRouter(),
		reg:      opts.Registry,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		logger:   logger,
	}

	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/checkpoint", s.handleCheckpoint).Methods(http.MethodGet)
	api.HandleFunc("/entities/{kind}", s.handleListEntities).Methods(http.MethodGet)
	api.HandleFunc("/entities/{kind}/{id}", s.handleGetEntity).Methods(http.MethodGet)
	api.HandleFunc("/assets/{address}/value", s.handleAssetValue).Methods(http.MethodGet)
	api.HandleFunc("/pools/{address}", s.handleGetPool).Methods(http.MethodGet)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting query API", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
