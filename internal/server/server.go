package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/wfkit/internal/store"
)

// DefaultMaxDocumentBytes caps the size of documents posted for rendering.
const DefaultMaxDocumentBytes = 8 << 20

// Server is the wfkit REST API server.
type Server struct {
	router           chi.Router
	logger           *slog.Logger
	startTime        time.Time
	store            store.Store
	metrics          *metrics
	version          string
	maxDocumentBytes int64
}

// Option configures optional Server settings.
type Option func(*Server)

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMaxDocumentBytes caps the request body of the render and validate
// endpoints.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Server) {
		s.maxDocumentBytes = n
	}
}

// New creates a new Server with all routes registered. st may be nil, in
// which case the run endpoints report that no registry is configured.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		logger:           logger.With("component", "server"),
		startTime:        time.Now(),
		store:            st,
		metrics:          newMetrics(),
		version:          "dev",
		maxDocumentBytes: DefaultMaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware(s.metrics))

	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Post("/render", s.handleRender)
		r.Post("/validate", s.handleValidate)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
		})
	})
}
