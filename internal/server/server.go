// Package server wires the HTTP surface: router, middleware, module route
// registration and the websocket event stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/mgalanis/beacon/internal/config"
	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/events"
	"github.com/mgalanis/beacon/internal/modules/dashboard"
	"github.com/mgalanis/beacon/internal/modules/export"
	forecasthandlers "github.com/mgalanis/beacon/internal/modules/forecast/handlers"
	"github.com/mgalanis/beacon/internal/modules/views"
)

// Deps carries everything the server mounts.
type Deps struct {
	Cfg       *config.Config
	Log       zerolog.Logger
	Data      *dataset.Service
	Bus       *events.Bus
	Dashboard *dashboard.Handlers
	Forecast  *forecasthandlers.Handlers
	Export    *export.Handlers
	Sessions  *views.Handlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	deps   Deps
	stream *eventStream
}

// New creates a new HTTP server
func New(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    deps.Log.With().Str("component", "server").Logger(),
		deps:   deps,
		stream: newEventStream(deps.Bus, deps.Log),
	}

	s.setupMiddleware(deps.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/meta", s.handleMeta)
		r.Post("/refresh", s.handleRefresh)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		// Long-lived connection; the websocket upgrade hijacks it out
		// from under the server's write timeout.
		r.Get("/events/stream", s.stream.Handle)

		s.deps.Dashboard.RegisterRoutes(r)
		s.deps.Forecast.RegisterRoutes(r)
		s.deps.Export.RegisterRoutes(r)
		s.deps.Sessions.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
