// Package observability provides the operational surface of the service:
// Prometheus metrics, health probes, and the sidecar HTTP server that
// exposes them separately from the public API.
package observability

import (
	"context"
	"net/http"
	"time"
)

// Server exposes /metrics and the health probes on their own listener so
// operational traffic never mixes with conversation traffic.
type Server struct {
	httpServer *http.Server
	addr       string
}

// NewServer creates an operational server bound to addr (e.g. ":9090").
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Start blocks serving operational endpoints until Shutdown or failure.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", HealthHandler())
	mux.HandleFunc("/livez", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler())
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
