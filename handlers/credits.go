package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// SetCreditsRequest overwrites a balance. ExternalID defaults to the caller
// and Credits to the configured admin grant.
type SetCreditsRequest struct {
	ExternalID string  `json:"external_id"`
	Credits    *int    `json:"credits"`
	Tier       *string `json:"tier"`
}

type CreditsHandler struct {
	ledger *credits.Ledger
	grant  int
}

func NewCreditsHandler(l *credits.Ledger, defaultGrant int) *CreditsHandler {
	return &CreditsHandler{ledger: l, grant: defaultGrant}
}

func (h *CreditsHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/credits", h.Set)
}

func (h *CreditsHandler) Set(c *gin.Context) {
	var req SetCreditsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ext := req.ExternalID
	if ext == "" {
		ext = middleware.Subject(c)
	}
	if strings.TrimSpace(ext) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_id is required"})
		return
	}
	amount := h.grant
	if req.Credits != nil {
		amount = *req.Credits
	}
	var tier *models.Tier
	if req.Tier != nil {
		t := models.Tier(*req.Tier)
		tier = &t
	}

	p, err := h.ledger.SetAbsolute(c.Request.Context(), identity.DeriveStorageIdentity(ext), amount, tier)
	if err != nil {
		respondError(c, "set credits", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Set credits of %s to %d", ext, p.Credits),
		"profile": p,
	})
}
