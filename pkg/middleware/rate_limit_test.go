package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware_BurstThenReject(t *testing.T) {
	r := generateRouter(RateLimitMiddleware(0.01, 2))

	allowed := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	rejected := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory"))

	require.Equal(t, http.StatusCreated, generateAs(r, "user_burst").Code)
	require.Equal(t, http.StatusCreated, generateAs(r, "user_burst").Code)
	w := generateAs(r, "user_burst")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	require.Equal(t, allowed+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
	require.Equal(t, rejected+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_Refills(t *testing.T) {
	r := generateRouter(RateLimitMiddleware(20, 1))

	require.Equal(t, http.StatusCreated, generateAs(r, "user_refill").Code)
	require.Equal(t, http.StatusTooManyRequests, generateAs(r, "user_refill").Code)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, http.StatusCreated, generateAs(r, "user_refill").Code)
}

func TestRateLimitMiddleware_SubjectsAndAnonymousAreSeparate(t *testing.T) {
	r := generateRouter(RateLimitMiddleware(0.01, 1))

	require.Equal(t, http.StatusCreated, generateAs(r, "user_one").Code)
	require.Equal(t, http.StatusTooManyRequests, generateAs(r, "user_one").Code)
	require.Equal(t, http.StatusCreated, generateAs(r, "user_two").Code)

	// no subject: keyed by client IP
	anon := func() int {
		req := httptest.NewRequest(http.MethodPost, "/emojis/generate", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusCreated, anon())
	require.Equal(t, http.StatusTooManyRequests, anon())
}
