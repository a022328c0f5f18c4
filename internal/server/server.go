// Package server exposes the chart data API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chartstack/chartd/internal/common"
	"github.com/chartstack/chartd/internal/interfaces"
)

// Server hosts the HTTP API.
type Server struct {
	query  interfaces.QueryService
	sync   interfaces.SyncService
	logger *common.Logger
	http   *http.Server
}

// NewServer creates a server bound to the configured address. The long
// write timeout covers cold queries that trigger an upstream sync.
func NewServer(cfg common.ServerConfig, query interfaces.QueryService, syncService interfaces.SyncService, logger *common.Logger) *Server {
	s := &Server{
		query:  query,
		sync:   syncService,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the configured handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener is closed.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
