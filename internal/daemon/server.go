package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harun/pagebot/internal/observability"
	"github.com/rs/zerolog"
)

// MetricsServer serves Prometheus metrics and a health check
type MetricsServer struct {
	addr   string
	daemon *Daemon
	logger zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// HealthResponse is the /healthz body
type HealthResponse struct {
	Status     string          `json:"status"`
	Uptime     string          `json:"uptime,omitempty"`
	Channels   map[string]bool `json:"channels"`
	Characters int             `json:"characters"`
	Lanes      int             `json:"lanes"`
}

// NewMetricsServer creates a metrics server for addr
func NewMetricsServer(addr string, d *Daemon) *MetricsServer {
	return &MetricsServer{
		addr:   addr,
		daemon: d,
		logger: d.logger.Component("metrics"),
	}
}

// Handler returns the HTTP routes
func (s *MetricsServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	return r
}

// Start listens on the configured address and serves in the background
func (s *MetricsServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("metrics server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}(s.server, s.done)

	return nil
}

// Addr returns the bound address, useful when listening on port 0
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server
func (s *MetricsServer) Stop() error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}
	<-done

	s.logger.Info().Msg("Metrics server stopped")
	return nil
}

func (s *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	registry := s.daemon.GetChannelRegistry()

	resp := HealthResponse{
		Status:     "ok",
		Channels:   make(map[string]bool, len(status.Channels)),
		Characters: status.Characters,
		Lanes:      status.Lanes,
	}
	if status.Running {
		resp.Uptime = status.Uptime.Round(time.Second).String()
	} else {
		resp.Status = "stopped"
	}

	for _, name := range status.Channels {
		started := registry.Started(name)
		resp.Channels[name] = started
		if !started && resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
