package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies the Bearer token and stores its claims on the context.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		scheme, token, ok := strings.Cut(auth, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		if sub, _ := claims["sub"].(string); sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": identity.ErrUnauthenticated.Error()})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the verified claims, if any.
func Claims(c *gin.Context) (map[string]interface{}, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	cm, ok := v.(map[string]interface{})
	return cm, ok
}

// Subject returns the external identity (the sub claim) of the caller.
func Subject(c *gin.Context) string {
	cm, ok := Claims(c)
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return sub
}

// Email returns the email claim or "".
func Email(c *gin.Context) string {
	cm, ok := Claims(c)
	if !ok {
		return ""
	}
	email, _ := cm["email"].(string)
	return email
}

// RequireSubject rejects requests whose subject is not accepted by allow.
func RequireSubject(allow func(sub string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := Subject(c)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": identity.ErrUnauthenticated.Error()})
			return
		}
		if !allow(sub) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
