package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/gin-gonic/gin"
)

const profileKey = "profile"

// Provisioner is satisfied by *profiles.Service.
type Provisioner interface {
	EnsureProfile(ctx context.Context, externalID, email string) (*models.Profile, error)
}

// ProvisionProfile ensures the caller's profile exists before any handler
// runs and stores it on the context. Must run after AuthMiddleware.
func ProvisionProfile(p Provisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := Subject(c)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": identity.ErrUnauthenticated.Error()})
			return
		}
		profile, err := p.EnsureProfile(c.Request.Context(), sub, Email(c))
		if err != nil {
			logger.Errorf("ensure profile for %s: %v", sub, err)
			if errors.Is(err, context.Canceled) {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to provision profile"})
			return
		}
		c.Set(profileKey, profile)
		c.Next()
	}
}

// Profile returns the profile stored by ProvisionProfile.
func Profile(c *gin.Context) (*models.Profile, bool) {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Profile)
	return p, ok
}
