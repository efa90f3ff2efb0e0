// Package server provides the HTTP server for the application.
// It handles server lifecycle, route setup, and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/verustcode/internal/api/router"
	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/dispatch"
	"github.com/verustcode/verustcode/internal/hub"
	"github.com/verustcode/verustcode/internal/lab"
	"github.com/verustcode/verustcode/internal/mirror"
	"github.com/verustcode/verustcode/internal/namemap"
	"github.com/verustcode/verustcode/pkg/logger"
)

// HTTP server timeout configuration
const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultStopTimeout     = 5 * time.Second
)

// Server represents the HTTP server.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	router     *gin.Engine
}

// New creates a new server instance, wiring a dispatcher from cfg: a repo
// cache rooted at cacheDir, a real git worker, and Hub/Lab API clients.
func New(cfg *config.Config, cacheDir string) (*Server, error) {
	hubClient, err := hub.NewClient(cfg.GitHub.APIHost(), cfg.GitHub.APIToken, false)
	if err != nil {
		return nil, err
	}

	labClient, err := lab.NewClient(cfg.GitLab.BaseURL(), cfg.GitLab.APIToken)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(
		cfg,
		mirror.NewCache(cacheDir),
		mirror.NewExecWorker(cfg.GitHub.SSHKey, cfg.GitLab.SSHKey),
		hubClient,
		labClient,
		namemap.New(cfg.HubToLab),
	)

	return NewWithDispatcher(cfg, d), nil
}

// NewWithDispatcher creates a server instance with an already-constructed
// dispatcher, primarily so tests can substitute fakes.
func NewWithDispatcher(cfg *config.Config, d *dispatch.Dispatcher) *Server {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	router.Setup(r, cfg, d)

	return &Server{
		cfg:    cfg,
		router: r,
	}
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.BindTo,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	logger.Info("starting HTTP server",
		zap.String("address", s.cfg.Server.BindTo),
		zap.Bool("debug", s.cfg.Server.Debug),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal arrives, then gracefully
// stops the server. A second signal forces immediate exit.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("received shutdown signal, starting graceful shutdown (press Ctrl+C again to force exit)",
		zap.String("signal", sig.String()))

	go func() {
		sig := <-quit
		logger.Warn("received second shutdown signal, forcing exit", zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// Stop stops the server immediately, respecting a short timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}
