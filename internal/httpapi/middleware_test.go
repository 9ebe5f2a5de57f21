package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/zkfactor/internal/httputil"
)

func TestRequestID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	h := newHarness(t, WithCORS([]string{"https://app.example"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, WithRateLimit(1, 2))
	now := time.Unix(1_800_000_000, 0)
	h.srv.limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodGet, "/api/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode[httputil.ErrorResponse](t, rec)
	assert.Equal(t, "rate_limited", body.Code)
	assert.True(t, body.Retryable)

	// health checks are never throttled
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", nil).Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/history", nil).Code)
}

func TestRateLimit_SweepsIdleClients(t *testing.T) {
	rl := newRateLimiter(5, 5)
	now := time.Unix(1_800_000_000, 0)
	rl.now = func() time.Time { return now }

	require.True(t, rl.allow("10.0.0.1"))
	now = now.Add(limiterIdle + time.Second)
	require.True(t, rl.allow("10.0.0.2"))
	assert.Len(t, rl.clients, 1)
}
