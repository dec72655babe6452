package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

func newLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestAllowSliding(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, n, err := l.AllowSliding(ctx, "posts:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.EqualValues(t, i, n)
	}
	ok, _, err := l.AllowSliding(ctx, "posts:u1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _, _ = l.AllowSliding(ctx, "posts:u2", 3, time.Minute)
	assert.True(t, ok, "other keys have their own budget")

	mr.FastForward(2 * time.Minute)
	ok, _, _ = l.AllowSliding(ctx, "posts:u1", 3, time.Minute)
	assert.True(t, ok, "budget resets once the window passes")
}

func TestPolicyLimitHTTP(t *testing.T) {
	l, _ := newLimiter(t)
	p := Policy{L: l, Name: "posts", Limit: 1, Window: time.Minute}
	h := p.LimitHTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	call := func(uid string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
		if uid != "" {
			req = req.WithContext(httpx.WithUser(req.Context(), uid))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusCreated, call("u1"))
	assert.Equal(t, http.StatusTooManyRequests, call("u1"))
}

func TestPolicyFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	l := New(rdb)
	p := Policy{L: l, Name: "posts", Limit: 1, Window: time.Minute}

	_, err := p.Allow(context.Background(), "u1")
	assert.Error(t, err)

	h := p.LimitHTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(httpx.WithUser(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
