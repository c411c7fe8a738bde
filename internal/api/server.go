// Package api exposes the operator-facing HTTP surface: liveness, readiness,
// and worker-pool status. spec.md §6 names no dashboard, chat, or websocket
// routes, so this mirrors only the health/ready slice of the teacher's API.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/artisanclarinets/smartupload/internal/store"
	"github.com/artisanclarinets/smartupload/internal/worker"
)

// PoolHealth is the subset of worker.PoolHealth the health endpoint reports.
// Declared as an interface so tests can substitute a fake pool without
// depending on internal/worker's concrete type.
type PoolHealth interface {
	Health() worker.PoolHealth
}

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	batches store.BatchStore
	pool    PoolHealth
	version string
}

// NewServer creates a new API server with Echo v5.
func NewServer(batches store.BatchStore, pool PoolHealth, version string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		batches: batches,
		pool:    pool,
		version: version,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.BodyLimit(1024 * 1024))

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ready", s.readyHandler)
}

// Start runs the HTTP server on the given address. It blocks until Shutdown
// is called (and then returns nil) or the listener fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

const readinessProbeBatchID = "__readiness_probe__"

// pingStore performs a cheap reachability check against the batch store. A
// not-found result still proves the store answered, which is all readiness
// needs; any other error means the store itself is unreachable.
func (s *Server) pingStore(ctx context.Context) error {
	_, err := s.batches.GetBatch(ctx, readinessProbeBatchID)
	if err == nil || err == store.ErrNotFound {
		return nil
	}
	return err
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if err := s.pingStore(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["store"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.pool != nil {
		ph := s.pool.Health()
		if !ph.IsHealthy {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded, Message: "no active workers"}
		} else {
			checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{Status: status, Checks: checks})
}

// readyHandler handles GET /ready. Unlike /health, this only reports
// whether the process can accept work right now (store reachable), without
// the worker-pool detail a liveness probe doesn't need.
func (s *Server) readyHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.pingStore(reqCtx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, &ReadyResponse{Ready: false, Reason: err.Error()})
	}
	return c.JSON(http.StatusOK, &ReadyResponse{Ready: true})
}
