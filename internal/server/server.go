// Package server owns HTTP server initialization and lifecycle.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/resolvhq/resolv/internal/api"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default HTTP server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         "8000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // synthesis calls can run long
		IdleTimeout:  60 * time.Second,
	}
}

// Server wraps the HTTP server and database.
type Server struct {
	config Config
	db     *sql.DB
	http   *http.Server
	logger *log.Logger
}

// NewServer creates the HTTP server around an already-wired router.
func NewServer(db *sql.DB, deps api.Deps, config Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	router := api.NewRouter(deps)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		config: config,
		db:     db,
		http:   httpServer,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Printf("starting HTTP server on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("shutting down server...")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close error: %w", err)
	}

	s.logger.Println("server shutdown complete")
	return nil
}
