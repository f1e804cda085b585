package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/silicity/silicity-server/internal/http/middleware"
)

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, assert.AnError
}

func limited(rl *mw.RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksAboveLimit(t *testing.T) {
	rl := mw.NewRateLimiter(mw.NewMemoryCounterStore(), 3, time.Minute)

	for i := 0; i < 3; i++ {
		rec := limited(rl, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := limited(rl, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_SourcesCountedSeparately(t *testing.T) {
	rl := mw.NewRateLimiter(mw.NewMemoryCounterStore(), 1, time.Minute)

	assert.Equal(t, http.StatusOK, limited(rl, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, limited(rl, "10.0.0.1:1234").Code)

	// A different source address still has its full budget.
	assert.Equal(t, http.StatusOK, limited(rl, "10.0.0.2:1234").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	rl := mw.NewRateLimiter(failingStore{}, 1, time.Minute)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, limited(rl, "10.0.0.1:1234").Code)
	}
}

func TestMemoryCounterStore_WindowResets(t *testing.T) {
	store := mw.NewMemoryCounterStore()
	ctx := context.Background()

	n, err := store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	time.Sleep(20 * time.Millisecond)

	n, err = store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClientIP_HeaderPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", mw.ClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", mw.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", mw.ClientIP(req))
}
