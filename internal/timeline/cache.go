package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agaaaptr/open-socmed/internal/posts"
)

const keyTimelineFmt = "timeline:%s"

type Cache interface {
	Get(ctx context.Context, userID string) ([]posts.Post, bool, error)
	Set(ctx context.Context, userID string, items []posts.Post) error
	Invalidate(ctx context.Context, userIDs ...string) error
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func key(uid string) string { return fmt.Sprintf(keyTimelineFmt, uid) }

func (c *redisCache) Get(ctx context.Context, userID string) ([]posts.Post, bool, error) {
	b, err := c.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []posts.Post
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached timeline: %w", err)
	}
	return items, true, nil
}

func (c *redisCache) Set(ctx context.Context, userID string, items []posts.Post) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(userID), b, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
