package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/middleware"
	"github.com/symptom-dx-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	engine        *service.Engine
	router        *gin.Engine
	server        *http.Server
	logger        *logrus.Logger
	version       string
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, engine *service.Engine, logger *logrus.Logger, version string) *Server {
	cfg := configManager.GetConfig()

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	if cfg.Server.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.Server.RateLimit).Middleware())
	}

	server := &Server{
		configManager: configManager,
		engine:        engine,
		router:        router,
		logger:        logger,
		version:       version,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens immediately, initializes the engine in the background and
// blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	s.logger.WithField("addr", listener.Addr().String()).Info("HTTP server listening")

	go func() {
		if err := s.engine.Initialize(ctx); err != nil && !errors.Is(err, service.ErrAlreadyInitializing) {
			s.logger.WithError(err).Error("Server is running without a diagnosis engine")
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHome)
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/symptoms", s.handleSymptoms)
		api.GET("/search_symptoms", s.handleSearchSymptoms)
		api.POST("/diagnose", s.handleDiagnose)
		api.GET("/history", s.handleHistory)
	}
}
