package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// generateRouter mounts a limited route; the X-Sub header stands in for the
// verified subject.
func generateRouter(limit gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if sub := c.GetHeader("X-Sub"); sub != "" {
			c.Set(claimsKey, map[string]interface{}{"sub": sub})
		}
		c.Next()
	})
	r.POST("/emojis/generate", limit, func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func generateAs(r *gin.Engine, sub string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/emojis/generate", nil)
	req.Header.Set("X-Sub", sub)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedisRateLimitMiddleware_WindowPerSubject(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	r := generateRouter(RedisRateLimitMiddleware(client, 0, 2, time.Hour))

	w := generateAs(r, "user_a")
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, http.StatusCreated, generateAs(r, "user_a").Code)

	w = generateAs(r, "user_a")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "3600", w.Header().Get("Retry-After"))

	// another subject has its own window
	require.Equal(t, http.StatusCreated, generateAs(r, "user_b").Code)
	require.Len(t, m.Keys(), 2)

	// window keys expire once the window is over
	m.FastForward(2 * time.Hour)
	require.Empty(t, m.Keys())
}

func TestRedisRateLimitMiddleware_FallsBackWhenRedisDown(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r := generateRouter(RedisRateLimitMiddleware(client, 0.01, 1, time.Second))
	require.Equal(t, http.StatusCreated, generateAs(r, "user_fallback").Code)
	require.Equal(t, http.StatusTooManyRequests, generateAs(r, "user_fallback").Code)
}
