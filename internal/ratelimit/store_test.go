package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func TestStoreLimiterBlocksAfterLimit(t *testing.T) {
	l, err := NewStoreLimiter(memory.NewStore(), "2-M")
	require.NoError(t, err)
	require.Equal(t, 2, l.Limit())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, _, _, err := l.Allow(ctx, "callback:203.0.113.7", 0, 0)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, remaining, _, err := l.Allow(ctx, "callback:203.0.113.7", 0, 0)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, remaining)

	ok, _, _, err = l.Allow(ctx, "callback:198.51.100.1", 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreLimiterRejectsBadRate(t *testing.T) {
	_, err := NewStoreLimiter(memory.NewStore(), "lots")
	require.Error(t, err)
}

func TestHandlerWithStoreLimiter(t *testing.T) {
	l, err := NewStoreLimiter(memory.NewStore(), "1-H")
	require.NoError(t, err)
	h := Handler{Limiter: l, Config: Config{Key: ByClientIP("callback"), Max: l.Limit()}}
	next := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/callbacks/paynet", nil)
	req.RemoteAddr = "203.0.113.9:4000"

	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	next.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}
