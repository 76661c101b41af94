package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	counts map[string]int64
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func TestRateLimitBlocksPerUser(t *testing.T) {
	limiter := &countingLimiter{}
	policy := NewRateLimitPolicy("orders", time.Minute, 2)
	handler := RateLimit(policy, limiter, nil)(okHandler(nil))

	send := func(uid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/orders", nil)
		req = req.WithContext(WithUserID(req.Context(), uid))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, send("u1").Code)
	require.Equal(t, http.StatusOK, send("u1").Code)
	blocked := send("u1")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.Equal(t, strconv.Itoa(60), blocked.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, send("u2").Code)
	require.Contains(t, limiter.counts, "orders:user:u1")
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	limiter := &countingLimiter{}
	handler := RateLimit(NewRateLimitPolicy("verify", time.Minute, 1), limiter, nil)(okHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Contains(t, limiter.counts, "verify:ip:203.0.113.9")
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	limiter := &countingLimiter{}
	handler := RateLimit(NewRateLimitPolicy("orders", 0, 0), limiter, nil)(okHandler(nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, limiter.counts)
}
