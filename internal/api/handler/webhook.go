// Package handler provides HTTP handlers for the API.
package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/dispatch"
	"github.com/verustcode/verustcode/internal/hub"
	"github.com/verustcode/verustcode/pkg/logger"
)

// maxWebhookBodyBytes bounds the size of an accepted webhook payload.
const maxWebhookBodyBytes = 10 << 20 // 10 MiB

// WebhookHandler handles Hub/Lab webhook ingress.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.Config, d *dispatch.Dispatcher) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, dispatcher: d}
}

// HandleGitHubEvent handles POST /github/events. It verifies the webhook
// signature before calling the dispatcher; signature failures and dispatcher
// errors (payload decode failures) are surfaced as 400, otherwise 200. Mirror
// and relay failures are logged by the dispatcher and still answered with 200.
func (h *WebhookHandler) HandleGitHubEvent(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)

	body, err := hub.ValidatePayload(c.Request, h.cfg.GitHub.WebhookSecret)
	if err != nil {
		logger.Warn("github webhook signature validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid webhook signature"})
		return
	}

	eventType := c.GetHeader("X-GitHub-Event")

	msg, err := h.dispatcher.HandleGitHubEvent(c.Request.Context(), eventType, body)
	if err != nil {
		logger.Warn("github webhook decode failed", zap.String("event_type", eventType), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// HandleGitLabEvent handles POST /gitlab/events. It is a placeholder that
// acknowledges receipt; no Lab-originated webhook is part of the core flow.
func (h *WebhookHandler) HandleGitLabEvent(c *gin.Context) {
	_, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	c.JSON(http.StatusOK, gin.H{"hello": "hi"})
}
