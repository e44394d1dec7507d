package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perMinute int) (*Limiter, *time.Time) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(2)

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, reset := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, reset)

	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "clients are independent")

	*now = now.Add(30 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.False(t, ok, "steady traffic does not extend the window")

	*now = now.Add(31 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	assert.Equal(t, int64(2), rl.GetMetrics().LimitedRequests)
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(5)
	rl.Allow("1.1.1.1")
	*now = now.Add(2 * time.Minute)
	rl.Allow("2.2.2.2")

	rl.cleanupStaleEntries()
	assert.Equal(t, int64(1), rl.GetMetrics().ClientCount)
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
