package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sjsage522/cafe24worker/logger"
)

// Server wraps the HTTP server exposing run management
type Server struct {
	server *http.Server
	log    *logger.Logger
}

// NewRouter builds the chi router for the run API
func NewRouter(handlers *Handlers) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Get("/healthz", handlers.Healthcheck)
	router.Route("/runs", func(r chi.Router) {
		r.Post("/", handlers.CreateRun)
		r.Get("/", handlers.ListRuns)
		r.Get("/{id}", handlers.GetRun)
		r.Get("/{id}/artifacts/{name}", handlers.DownloadArtifact)
	})
	return router
}

// NewServer wires the router into an HTTP server
func NewServer(addr string, handlers *Handlers) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(handlers),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		log: logger.ForAPI(),
	}
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
