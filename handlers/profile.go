package handlers

import (
	"net/http"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// ProfileHandler exposes the caller's provisioned profile. Routes must be
// mounted behind middleware.ProvisionProfile.
type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler { return &ProfileHandler{} }

func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.POST("/profile", h.Ensure)
}

// Me returns the profile together with both identities of the caller.
func (h *ProfileHandler) Me(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"external_id": middleware.Subject(c),
		"storage_id":  p.UserID.String(),
		"profile":     p,
	})
}

// Ensure returns the profile row; provisioning already happened in middleware.
func (h *ProfileHandler) Ensure(c *gin.Context) {
	p, ok := middleware.Profile(c)
	if !ok {
		respondError(c, "profile", identity.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, p)
}
