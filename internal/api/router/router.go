// Package router sets up the HTTP routes for the bridge.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/verustcode/verustcode/consts"
	"github.com/verustcode/verustcode/internal/api/handler"
	"github.com/verustcode/verustcode/internal/api/middleware"
	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/dispatch"
)

// Setup configures all routes on r.
func Setup(r *gin.Engine, cfg *config.Config, d *dispatch.Dispatcher) {
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(otelgin.Middleware(consts.ServiceName))

	r.GET("/check", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	webhookHandler := handler.NewWebhookHandler(cfg, d)
	r.POST("/github/events", webhookHandler.HandleGitHubEvent)
	r.POST("/gitlab/events", webhookHandler.HandleGitLabEvent)
}
