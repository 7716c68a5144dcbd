// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves devdock's HTTP and WebSocket API.
package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/devdock/internal/api/handlers"
	"github.com/wingedpig/devdock/internal/api/middleware"
	"github.com/wingedpig/devdock/internal/api/version"
	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/project"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host string
	Port int
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Controller *project.Controller
	Logs       *logs.Buffer
	EventBus   events.EventBus
}

// NewRouter creates the API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)
	r.Use(version.Middleware)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Project and process handlers
	projectHandler := handlers.NewProjectHandler(deps.Controller)
	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/stop-all", projectHandler.StopAll).Methods("POST")
	api.HandleFunc("/projects/{id}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{id}", projectHandler.Update).Methods("PATCH")
	api.HandleFunc("/projects/{id}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{id}/start", projectHandler.Start).Methods("POST")
	api.HandleFunc("/projects/{id}/stop", projectHandler.Stop).Methods("POST")
	api.HandleFunc("/running", projectHandler.Running).Methods("GET")

	// Log handlers
	logHandler := handlers.NewLogHandler(deps.Logs, deps.Controller.Registry())
	api.HandleFunc("/projects/{id}/logs", logHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{id}/logs", logHandler.Clear).Methods("DELETE")
	api.HandleFunc("/projects/{id}/logs/stats", logHandler.Stats).Methods("GET")
	api.HandleFunc("/projects/{id}/logs/errors", logHandler.Errors).Methods("GET")
	api.HandleFunc("/projects/{id}/logs/ws", logHandler.Stream).Methods("GET")
	api.HandleFunc("/logs", logHandler.ClearAll).Methods("DELETE")
	api.HandleFunc("/logs/usage", logHandler.Usage).Methods("GET")

	// Event handlers
	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	// mux skips middleware when no route matches, so these handlers carry
	// CORS themselves. Preflight requests end up in methodNotAllowed.
	notFound := middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, handlers.ErrNotFound, "no such endpoint")
	}))
	methodNotAllowed := middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusMethodNotAllowed, handlers.ErrMethodNotAllowed,
			r.Method+" is not supported on "+r.URL.Path)
	}))
	r.NotFoundHandler = notFound
	api.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed
	api.MethodNotAllowedHandler = methodNotAllowed

	return r
}

// Server represents the API server.
type Server struct {
	router   *mux.Router
	cfg      ServerConfig
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	return &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the bound address once Listen has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	}
	return s.listener.Addr().String()
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// ListenAndServe binds (if Listen was not called) and serves until Shutdown.
// A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	log.Printf("API server listening on http://%s", s.Addr())
	err := s.server.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
