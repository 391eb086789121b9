// Package api exposes the optional status endpoint for long crawl runs:
// health, progress counters, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/metrics"
	"github.com/newsarchive/harvester/internal/progress"
)

// Server serves the status surface.
type Server struct {
	addr    string
	tracker *progress.Tracker
	logger  *zap.Logger
	http    *http.Server
}

// NewServer wires the routes.
func NewServer(addr string, tracker *progress.Tracker, logger *zap.Logger) *Server {
	s := &Server{addr: addr, tracker: tracker, logger: logger}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", s.healthz)
	r.Get("/progress", s.progress)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Status endpoint listening", zap.String("addr", s.addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("Status endpoint stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status endpoint: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
