// Package server exposes the coaching engine over HTTP. The public API
// lives under /api/v1; operational endpoints are served separately by
// pkg/observability.
package server

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joshuamtm/compas-navigator/internal/engine"
	metrics "github.com/joshuamtm/compas-navigator/pkg/observability"
	"github.com/joshuamtm/compas-navigator/pkg/security"
)

// Server routes conversation traffic to the engine.
type Server struct {
	echo    *echo.Echo
	engine  *engine.Engine
	limiter *security.RateLimiter
	addr    string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimiter throttles chat requests per session.
func WithRateLimiter(limiter *security.RateLimiter) ServerOption {
	return func(s *Server) { s.limiter = limiter }
}

// New creates the API server with routes registered.
func New(eng *engine.Engine, addr string, opts ...ServerOption) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestMetrics)

	s := &Server{echo: e, engine: eng, addr: addr}
	for _, opt := range opts {
		opt(s)
	}

	api := e.Group("/api/v1")
	api.POST("/sessions", s.createSession)
	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/chat", s.chat)
	api.GET("/sessions/:id/report", s.getReport)
	api.POST("/sessions/:id/artifacts", s.addArtifact)

	return s
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving the API until Shutdown or failure.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestMetrics records one counter/histogram sample per request using the
// route template so path cardinality stays bounded.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
		}
		metrics.RecordHTTPRequest(c.Request().Method, c.Path(), strconv.Itoa(status), time.Since(start))
		return err
	}
}
