// Package api exposes the gateway's HTTP boundary over Echo v5.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
	"github.com/codeready-toolchain/tarsy/pkg/store"
	"github.com/codeready-toolchain/tarsy/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	echo        *echo.Echo
	httpServer  *http.Server
	cfg         *config.Config
	orchestrator *pipeline.Orchestrator
	store       *store.Store // nil when AppDB is disabled
}

// NewServer creates a new API server with Echo v5, wired to the pipeline
// orchestrator and (optionally) the learning-loop store.
func NewServer(cfg *config.Config, orchestrator *pipeline.Orchestrator, appStore *store.Store) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        appStore,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(requestBodyCap(s.cfg.Server.RequestBodyCap)))
	s.echo.Use(securityHeaders())
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.cfg.Server.AllowedOrigins,
		}))
	}

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	admin := v1.Group("/admin", RequireAdmin(s.cfg.Server.AdminAPIKey))
	admin.POST("/query", s.queryHandler)
	admin.POST("/sessions/:id/cancel", s.cancelSessionHandler)
	admin.POST("/feedback", s.submitFeedbackHandler)
	admin.POST("/golden-questions", s.addGoldenQuestionHandler)
	admin.GET("/golden-questions", s.listGoldenQuestionsHandler)
}

func requestBodyCap(capBytes int64) int64 {
	if capBytes <= 0 {
		return 1 << 20
	}
	return capBytes
}

// Start starts the HTTP server on the given address and blocks until the
// server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := map[string]HealthCheck{}
	status := "healthy"

	if s.store != nil {
		if err := s.store.Ping(reqCtx); err != nil {
			checks["store"] = HealthCheck{Status: "unhealthy", Message: err.Error()}
			status = "degraded"
		} else {
			checks["store"] = HealthCheck{Status: "healthy"}
		}
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.Full(),
		Checks:  checks,
	})
}
