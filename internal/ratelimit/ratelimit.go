package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Limiter struct {
	R *redis.Client
}

func New(r *redis.Client) *Limiter { return &Limiter{R: r} }

// AllowSliding counts a hit on key and reports whether it is within limit.
// Every hit pushes the window forward, so a client that keeps hammering
// stays blocked until it pauses for a full window.
func (l *Limiter) AllowSliding(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	k := "rl:" + key
	pipe := l.R.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// Policy is a named limit, e.g. post creation per user.
type Policy struct {
	L      *Limiter
	Name   string
	Limit  int64
	Window time.Duration
}

func (p Policy) Allow(ctx context.Context, key string) (bool, error) {
	ok, _, err := p.L.AllowSliding(ctx, p.Name+":"+key, p.Limit, p.Window)
	return ok, err
}

// LimitHTTP limits next per authenticated user. Limiter failures let the
// request through.
func (p Policy) LimitHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := httpx.UserFromCtx(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrUnauthorized, "missing_user")
			return
		}
		ok, n, err := p.L.AllowSliding(r.Context(), p.Name+":"+uid, p.Limit, p.Window)
		if err == nil && !ok {
			httpx.WriteError(w, http.StatusTooManyRequests,
				fmt.Errorf("rate limit exceeded (count=%d, limit=%d)", n, p.Limit),
				"rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}
