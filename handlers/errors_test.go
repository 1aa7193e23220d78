package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/credits"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/gallery"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/identity"
	"github.com/emojiforge/emojiforge/backend/go-services/internal/profiles"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("spend: %w", credits.ErrInsufficientCredits), http.StatusPaymentRequired},
		{gallery.ErrInvalidPrompt, http.StatusBadRequest},
		{profiles.ErrEmptyExternalID, http.StatusBadRequest},
		{gallery.ErrEmojiNotFound, http.StatusNotFound},
		{gallery.ErrGeneratorUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("replicate: %w", gallery.ErrGenerationFailed), http.StatusBadGateway},
		{fmt.Errorf("poll: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got, _ := statusFor(tc.err)
		require.Equal(t, tc.want, got, tc.err.Error())
	}
}

func TestHandlersRejectRequestsWithoutProfile(t *testing.T) {
	r := gin.New()
	NewProfileHandler().Register(r.Group(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
}
