package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunflower/pkg/log"
	"sunflower/pkg/manager"
	"sunflower/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultShutdownTimeout = 10 * time.Second

// Server exposes providers, disk usage and operation queues over HTTP.
type Server struct {
	manager         *manager.Manager
	echo            *echo.Echo
	version         string
	shutdownTimeout time.Duration
}

func New(m *manager.Manager, version string) *Server {
	timeout := m.Config().Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	s := &Server{
		manager:         m,
		echo:            echo.New(),
		version:         version,
		shutdownTimeout: timeout,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", s.version).
			Bool("metrics", metrics.IsEnabled()).
			Msg("Starting sunflower server")

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server startup failed")
		return err
	case <-quit:
	}
	return s.Shutdown()
}

// Shutdown stops the HTTP server, then every calculation the manager runs.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	// Stop accepting requests and drain the ones in progress
	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}
	log.Info().Msg("Server gracefully stopped")

	// Cancel calculations and release archives
	if err := s.manager.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to release providers")
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())

	// API documentation
	s.echo.GET("/swagger", s.serveSwaggerUI)
	s.echo.GET("/swagger.yml", s.serveSwaggerSpec)

	// Filesystem inspection
	s.echo.GET("/version", s.getVersion)
	s.echo.GET("/fs/list", s.listDir)
	s.echo.GET("/fs/stat", s.getStat)
	s.echo.GET("/fs/system-size", s.getSystemSize)
	s.echo.GET("/fs/read", s.readFile)

	// Disk usage and queues
	s.echo.POST("/fs/usage", s.startUsage)
	s.echo.GET("/fs/usage", s.getUsage)
	s.echo.DELETE("/fs/usage", s.cancelUsage)
	s.echo.GET("/queues", s.getQueues)

	if reg := metrics.GetRegistry(); reg != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
}

func (s *Server) getVersion(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"version": s.version})
}
