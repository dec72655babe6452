package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxKept = 200

type Repository interface {
	Push(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, limit int64) ([]Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type redisRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepo{rdb: rdb, ttl: 30 * 24 * time.Hour}
}

func key(userID string) string { return fmt.Sprintf("notif:%s", userID) }

func (r *redisRepo) Push(ctx context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	k := key(n.RecipientUserID)
	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, k, b)
	pipe.LTrim(ctx, k, 0, maxKept-1)
	pipe.Expire(ctx, k, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepo) List(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > maxKept {
		limit = 50
	}
	vals, err := r.rdb.LRange(ctx, key(userID), 0, limit-1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]Notification, 0, len(vals))
	for _, v := range vals {
		var n Notification
		if json.Unmarshal([]byte(v), &n) == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// MarkAllRead rewrites the user's list with every entry read. The list is
// watched so a notification pushed meanwhile makes the rewrite retry instead
// of being lost.
func (r *redisRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	k := key(userID)
	var changed int
	txf := func(tx *redis.Tx) error {
		vals, err := tx.LRange(ctx, k, 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		changed = 0
		rewritten := make([]any, 0, len(vals))
		for _, v := range vals {
			var n Notification
			if json.Unmarshal([]byte(v), &n) != nil {
				continue
			}
			if !n.IsRead {
				n.IsRead = true
				changed++
			}
			b, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
			rewritten = append(rewritten, b)
		}
		if changed == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			pipe.RPush(ctx, k, rewritten...)
			pipe.Expire(ctx, k, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < 5; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return changed, err
	}
	return 0, errors.New("mark notifications read: too much contention")
}
