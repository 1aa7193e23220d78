package handlers

import (
	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// API bundles the authenticated /api/v1 routes.
type API struct {
	Verifier    middleware.Verifier
	Provisioner middleware.Provisioner
	Gallery     *gallery.Service
	Ledger      *credits.Ledger
	AdminGrant  int
	IsAdmin     func(sub string) bool
	// GenerateLimit, when set, runs in front of emoji generation only.
	GenerateLimit gin.HandlerFunc
}

// Register mounts /api/v1. Every route authenticates and provisions the
// caller's profile before the handler runs.
func (a API) Register(r gin.IRouter) {
	api := r.Group("/api/v1", middleware.AuthMiddleware(a.Verifier), middleware.ProvisionProfile(a.Provisioner))

	NewProfileHandler().Register(api)

	var generateMW []gin.HandlerFunc
	if a.GenerateLimit != nil {
		generateMW = append(generateMW, a.GenerateLimit)
	}
	NewEmojiHandler(a.Gallery).Register(api, generateMW...)

	isAdmin := a.IsAdmin
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	admin := api.Group("/admin", middleware.RequireSubject(isAdmin))
	NewCreditsHandler(a.Ledger, a.AdminGrant).Register(admin)
}
