// Package web serves the prediction form and a small JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zpam/playtennis/pkg/config"
	"github.com/zpam/playtennis/pkg/predictor"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server is the HTTP front end of a predictor
type Server struct {
	server    *http.Server
	predictor *predictor.Predictor
	config    config.ServerConfig
	logger    *zap.Logger
	page      *template.Template
}

// NewServer builds the routes and middleware chain for p
func NewServer(cfg config.ServerConfig, p *predictor.Predictor, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	s := &Server{
		predictor: p,
		config:    cfg,
		logger:    logger,
		page:      page,
	}

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	chain := Chain(
		Recovery(logger),
		RequestLogger(logger),
		SecurityHeaders,
	)

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      chain(mux),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Handler returns the wrapped router
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
