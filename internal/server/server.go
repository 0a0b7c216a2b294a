// Package server exposes the message pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/confidant-ai/confidant/internal/audit"
	"github.com/confidant-ai/confidant/internal/chat"
	"github.com/confidant-ai/confidant/internal/db"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
	"github.com/confidant-ai/confidant/internal/profile"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for the SQLite DB
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server wires the pipeline, its stores, and the HTTP surface together.
type Server struct {
	cfg        Config
	db         *db.DB
	profiles   *profile.Store
	chats      *chat.Store
	audits     *audit.Store
	runner     *pipeline.Runner
	titler     *chat.Titler
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies wired.
func New(cfg Config, database *db.DB, provider llm.Provider, model string) *Server {
	profiles := profile.NewStore(database)
	audits := audit.NewStore(database)

	runner := pipeline.NewRunner(provider, model, profiles)
	runner.Audits = audits

	s := &Server{
		cfg:      cfg,
		db:       database,
		profiles: profiles,
		chats:    chat.NewStore(database),
		audits:   audits,
		runner:   runner,
		titler:   chat.NewTitler(provider, model),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.registerRoutes(r)
	audit.RegisterRoutes(r, s.audits)

	r.Get("/", s.handleIndex)
	r.Get("/ws/pipeline", s.handlePipelineSocket)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Runner returns the pipeline runner.
func (s *Server) Runner() *pipeline.Runner { return s.runner }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("confidant server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
