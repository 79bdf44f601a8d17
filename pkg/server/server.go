// Package server exposes the latest evaluation over a read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/elonfeng/clubradar/internal/store"
	"github.com/elonfeng/clubradar/pkg/engine"
)

// Server provides the HTTP API.
type Server struct {
	result atomic.Pointer[engine.Result]
	store  store.Store
	port   int
	router *gin.Engine
}

// New creates a server. The store is optional and only backs /api/v1/runs.
func New(s store.Store, port int) *Server {
	if port == 0 {
		port = 8080
	}
	srv := &Server{store: s, port: port}
	srv.router = srv.routes()
	return srv
}

// SetResult swaps the served evaluation.
func (s *Server) SetResult(r *engine.Result) {
	s.result.Store(r)
}

// Result returns the served evaluation, or nil before the first run.
func (s *Server) Result() *engine.Result {
	return s.result.Load()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(otelgin.Middleware("clubradar"), recovery(), requestLogger())

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/clubs", s.handleClubs)
		v1.GET("/clubs/:id", s.handleClub)
		v1.GET("/clubs/:id/similar", s.handleSimilar)
		v1.GET("/groups", s.handleGroups)
		v1.GET("/rankings", s.handleRankings)
		v1.GET("/rankings/groups/:name", s.handleGroupRankings)
		v1.GET("/analytics/:id", s.handleAnalytics)
		v1.GET("/dashboard", s.handleDashboard)
		v1.GET("/statistics", s.handleStatistics)
		v1.GET("/runs", s.handleRuns)
	}
	return router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "clubradar server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
