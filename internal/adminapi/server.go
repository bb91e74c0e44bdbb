// Package adminapi is the optional, read-only management HTTP surface
// (§2 component, §11 DOMAIN STACK): cache/upstream statistics, process
// diagnostics, and a prometheus scrape endpoint. Disabled by default
// (api.enabled=false), matching the teacher's own safety default for
// its management API.
package adminapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jroosing/dnsforward/internal/adminapi/middleware"
)

// Server is the admin HTTP server.
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// Options configures Server construction (§6 api.* settings).
type Options struct {
	Host          string
	Port          int
	Logger        *slog.Logger
	CacheStats    CacheStatsFunc
	UpstreamStats UpstreamStatsFunc
	// Metrics is built by the caller (cmd/forwarder wires it to the
	// pipeline and upstream sender before the server is up) so the
	// same collectors registered here are the ones the query path
	// actually updates.
	Metrics *Metrics
}

// New builds a Server bound to opts.Host:opts.Port but does not start
// listening until ListenAndServe is called.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := NewHandler(logger, opts.CacheStats, opts.UpstreamStats)
	RegisterRoutes(engine, h, opts.Metrics)

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, engine: engine, httpServer: httpServer}
}

// Addr reports the bound listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Engine exposes the underlying gin engine for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
