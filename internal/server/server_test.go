// Package server provides HTTP server for the application.
// This file contains unit tests for the server package.
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/dispatch"
	"github.com/verustcode/verustcode/internal/mirror"
	"github.com/verustcode/verustcode/internal/namemap"
	"github.com/verustcode/verustcode/pkg/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

func testDispatcher(t *testing.T, cfg *config.Config) *dispatch.Dispatcher {
	t.Helper()
	return dispatch.New(cfg, mirror.NewCache(t.TempDir()), mirror.NewFakeWorker(), nil, nil, namemap.New(nil))
}

func TestServer_NewWithDispatcher(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BindTo = "localhost:0"

	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))
	require.NotNil(t, srv)
	assert.Equal(t, cfg, srv.cfg)
	assert.NotNil(t, srv.router)
}

func TestServer_DebugMode(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		expected string
	}{
		{name: "debug mode enabled", debug: true, expected: gin.DebugMode},
		{name: "debug mode disabled", debug: false, expected: gin.ReleaseMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Server.Debug = tt.debug

			_ = NewWithDispatcher(cfg, testDispatcher(t, cfg))
			assert.Equal(t, tt.expected, gin.Mode())
		})
	}
}

func TestServer_RouterConfiguration(t *testing.T) {
	cfg := config.Default()
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	assert.False(t, srv.router.RedirectTrailingSlash)
	assert.False(t, srv.router.RedirectFixedPath)
}

func TestServer_RoutesRespond(t *testing.T) {
	cfg := config.Default()
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestServer_StartAndStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BindTo = "127.0.0.1:0"
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	err := srv.Start()
	require.NoError(t, err)
	assert.NotNil(t, srv.httpServer)

	time.Sleep(50 * time.Millisecond)

	err = srv.Stop()
	require.NoError(t, err)
}

func TestServer_Stop_WithoutStart(t *testing.T) {
	cfg := config.Default()
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	err := srv.Stop()
	require.NoError(t, err)
}

func TestServer_Stop_WithTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BindTo = "127.0.0.1:0"
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	require.NoError(t, srv.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error)
	go func() {
		done <- srv.Stop()
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Stop() timed out")
	}
}

func TestServer_Router(t *testing.T) {
	cfg := config.Default()
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	router := srv.Router()
	assert.NotNil(t, router)
	assert.Equal(t, srv.router, router)
}

func TestServer_HTTPTimeouts(t *testing.T) {
	cfg := config.Default()
	cfg.Server.BindTo = "127.0.0.1:0"
	srv := NewWithDispatcher(cfg, testDispatcher(t, cfg))

	require.NoError(t, srv.Start())
	defer srv.Stop()

	assert.Equal(t, defaultReadTimeout, srv.httpServer.ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, srv.httpServer.WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, srv.httpServer.IdleTimeout)
}
