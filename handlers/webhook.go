package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/webhook"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 1 << 20

// WebhookHandler ingests identity provider user events and provisions the
// matching profile.
type WebhookHandler struct {
	verifier    *webhook.Verifier
	dedup       *webhook.Deduper
	provisioner middleware.Provisioner
}

func NewWebhookHandler(v *webhook.Verifier, d *webhook.Deduper, p middleware.Provisioner) *WebhookHandler {
	return &WebhookHandler{verifier: v, dedup: d, provisioner: p}
}

func (h *WebhookHandler) Register(r gin.IRoutes) {
	r.POST("/webhooks/identity", h.Receive)
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	msgID, err := h.verifier.Verify(body, c.Request.Header)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		logger.Warnf("webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	ev, err := webhook.ParseEvent(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	fresh, err := h.dedup.Claim(ctx, msgID)
	if err != nil {
		// Redis trouble must not drop deliveries; provisioning is idempotent.
		logger.Warnf("webhook dedup unavailable: %v", err)
		fresh = true
	}
	if !fresh {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if !ev.IsUserEvent() {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	user, err := ev.User()
	if err != nil {
		h.release(ctx, msgID)
		metrics.WebhookEvents.WithLabelValues(ev.Type, "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user payload"})
		return
	}
	p, err := h.provisioner.EnsureProfile(ctx, user.ID, user.PrimaryEmail())
	if err != nil {
		h.release(ctx, msgID)
		metrics.WebhookEvents.WithLabelValues(ev.Type, "failed").Inc()
		logger.Errorf("webhook %s: provision %s: %v", msgID, user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user profile"})
		return
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true, "storage_id": p.UserID.String()})
}

// release lets the provider's retry reprocess a delivery that failed here.
func (h *WebhookHandler) release(ctx context.Context, msgID string) {
	if err := h.dedup.Release(context.WithoutCancel(ctx), msgID); err != nil {
		logger.Warnf("webhook %s: release dedup claim: %v", msgID, err)
	}
}
