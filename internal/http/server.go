package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditHTTP "github.com/allisson/lockbox/internal/audit/http"
	"github.com/allisson/lockbox/internal/config"
	secretsHTTP "github.com/allisson/lockbox/internal/secrets/http"
)

// Server represents the HTTP API server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the API server with the full middleware chain and routes.
// metricsMiddleware is optional; pass nil when metrics are disabled.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	secretHandler *secretsHTTP.SecretHandler,
	eventHandler *auditHTTP.EventHandler,
	metricsMiddleware gin.HandlerFunc,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))
	if metricsMiddleware != nil {
		router.Use(metricsMiddleware)
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// Health and readiness endpoints bypass identity and rate limiting.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/v1")
	v1.Use(IdentityMiddleware())
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst))
	}

	v1.POST("/secrets", secretHandler.CreateHandler)
	v1.GET("/secrets", secretHandler.ListHandler)
	v1.GET("/secrets/search", secretHandler.SearchHandler)
	v1.GET("/secrets/:id", secretHandler.GetHandler)
	v1.POST("/secrets/:id/reveal", secretHandler.RevealHandler)
	v1.PUT("/secrets/:id", secretHandler.UpdateHandler)
	v1.DELETE("/secrets/:id", secretHandler.DeleteHandler)

	v1.GET("/audit-events", eventHandler.ListHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
