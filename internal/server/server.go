// Package server assembles the HTTP surface: documentation pages, the
// generation trigger and poll API, and operational endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/docshed/internal/errors"
	"github.com/3leaps/docshed/internal/server/handlers"
	"github.com/3leaps/docshed/internal/server/middleware"
	"github.com/3leaps/docshed/pkg/artifact"
	"github.com/3leaps/docshed/pkg/jobqueue"
	"github.com/3leaps/docshed/pkg/preload"
	"github.com/3leaps/docshed/pkg/resolve"
)

// Timeouts bound request handling and shutdown. Zero values leave the
// corresponding net/http timeout unset; a zero Shutdown falls back to
// defaultShutdownTimeout.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

const defaultShutdownTimeout = 10 * time.Second

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Resolver  *resolve.Resolver
	Queue     *jobqueue.Queue
	Layout    *artifact.Layout
	Extractor *preload.Extractor
	Health    *handlers.HealthManager
	Version   handlers.VersionInfo
	Timeouts  Timeouts
	Logger    *zap.Logger
}

// Server is the documentation HTTP server.
type Server struct {
	host   string
	port   int
	deps   Deps
	logger *zap.Logger

	httpServer *http.Server
}

// New creates a server. It does not start listening.
func New(host string, port int, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthManager(deps.Version.Version)
	}
	return &Server{
		host:   host,
		port:   port,
		deps:   deps,
		logger: logger,
	}
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, http.StatusNotFound,
			apperrors.CodeNotFound, "resource not found",
			middleware.GetRequestID(req.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, http.StatusMethodNotAllowed,
			apperrors.CodeMethodNotAllowed, "method not allowed",
			middleware.GetRequestID(req.Context()))
	})

	r.Get("/health", s.deps.Health.HealthHandler)
	r.Get("/health/live", s.deps.Health.LiveHandler)
	r.Get("/health/ready", s.deps.Health.ReadyHandler)
	r.Get("/version", handlers.Version(s.deps.Version))

	if s.deps.Resolver != nil && s.deps.Queue != nil {
		r.Post("/api/generate/*", handlers.Trigger(s.deps.Resolver, s.deps.Queue, s.logger))
		r.Get("/api/jobs/*", handlers.Poll(s.deps.Queue))
		r.Get("/docs/*", handlers.Docs(handlers.DocsDeps{
			Resolver:  s.deps.Resolver,
			Queue:     s.deps.Queue,
			Layout:    s.deps.Layout,
			Extractor: s.deps.Extractor,
			Logger:    s.logger,
		}))
	}

	return r
}

// newHTTPServer builds the net/http server with the configured timeouts.
func (s *Server) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.deps.Timeouts.Read,
		WriteTimeout:      s.deps.Timeouts.Write,
		IdleTimeout:       s.deps.Timeouts.Idle,
	}
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.deps.Timeouts.Shutdown > 0 {
		return s.deps.Timeouts.Shutdown
	}
	return defaultShutdownTimeout
}

// Start listens until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = s.newHTTPServer(addr)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}
