package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/generator"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, credits.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient credits"
	case errors.Is(err, gallery.ErrInvalidPrompt),
		errors.Is(err, gallery.ErrInvalidImage),
		errors.Is(err, gallery.ErrInvalidSort),
		errors.Is(err, gallery.ErrInvalidObjectKey),
		errors.Is(err, generator.ErrInvalidDataURL),
		errors.Is(err, credits.ErrInvalidAmount),
		errors.Is(err, credits.ErrInvalidTier),
		errors.Is(err, profiles.ErrEmptyExternalID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, gallery.ErrEmojiNotFound):
		return http.StatusNotFound, "emoji not found"
	case errors.Is(err, credits.ErrProfileNotFound):
		return http.StatusNotFound, "profile not found"
	case errors.Is(err, gallery.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, "image generator not configured"
	case errors.Is(err, gallery.ErrGenerationFailed):
		return http.StatusBadGateway, "failed to generate emoji"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timeout"
	}
	return http.StatusInternalServerError, "internal server error"
}

func respondError(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s: %v", op, err)
	} else {
		logger.Debugf("%s: %v", op, err)
	}
	c.JSON(status, gin.H{"error": msg})
}
