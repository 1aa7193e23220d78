package handlers

import (
	"net/http"
	"testing"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

type setCreditsResponse struct {
	Success bool           `json:"success"`
	Profile models.Profile `json:"profile"`
}

func TestSetCredits_AdminOnly(t *testing.T) {
	h := newHarness(t, true)
	rw := h.postJSON(t, "/api/v1/admin/credits", "user_mallory", `{"credits":1000}`)
	require.Equal(t, http.StatusForbidden, rw.Code)
	require.Equal(t, 3, h.credits(t, "user_mallory"))
}

func TestSetCredits_OtherUser(t *testing.T) {
	h := newHarness(t, true)
	require.Equal(t, 3, h.credits(t, "user_bob"))

	rw := h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"external_id":"user_bob","credits":7,"tier":"pro"}`)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	var got setCreditsResponse
	decode(t, rw, &got)
	require.True(t, got.Success)
	require.Equal(t, 7, got.Profile.Credits)
	require.Equal(t, models.TierPro, got.Profile.Tier)

	require.Equal(t, 7, h.credits(t, "user_bob"))
}

func TestSetCredits_DefaultsToCallerAndGrant(t *testing.T) {
	h := newHarness(t, true)
	rw := h.do(t, http.MethodPost, "/api/v1/admin/credits", "user_admin", nil, "")
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	require.Equal(t, 10, h.credits(t, "user_admin"))
}

func TestSetCredits_Validation(t *testing.T) {
	h := newHarness(t, true)
	require.Equal(t, http.StatusBadRequest, h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"credits":-1}`).Code)
	require.Equal(t, http.StatusBadRequest, h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"tier":"platinum"}`).Code)
	require.Equal(t, http.StatusBadRequest, h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"credits":"many"}`).Code)
	require.Equal(t, http.StatusNotFound, h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"external_id":"user_ghost","credits":1}`).Code)
}

func TestSetCredits_ExternalIDIsNotTrimmed(t *testing.T) {
	h := newHarness(t, true)
	require.Equal(t, 3, h.credits(t, "user_bob"))

	rw := h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"external_id":" user_bob","credits":9}`)
	require.Equal(t, http.StatusNotFound, rw.Code, rw.Body.String())
	require.Equal(t, 3, h.credits(t, "user_bob"))

	require.Equal(t, http.StatusBadRequest, h.postJSON(t, "/api/v1/admin/credits", "user_admin", `{"external_id":"   "}`).Code)
}
