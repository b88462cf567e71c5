package credstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores the pair under two keys, "<prefix>:access" and
// "<prefix>:refresh". Writes go through MULTI so a reader never observes
// a half-updated pair.
type Redis struct {
	client     *redis.Client
	accessKey  string
	refreshKey string
}

// NewRedis returns a Redis-backed store. The prefix isolates credential
// keys from other users of the same database.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:     client,
		accessKey:  prefix + ":access",
		refreshKey: prefix + ":refresh",
	}
}

// Load implements Store. Missing keys yield a zero Pair.
func (r *Redis) Load(ctx context.Context) (Pair, error) {
	vals, err := r.client.MGet(ctx, r.accessKey, r.refreshKey).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var pair Pair
	if s, ok := vals[0].(string); ok {
		pair.Access = s
	}
	if s, ok := vals[1].(string); ok {
		pair.Refresh = s
	}
	return pair, nil
}

// Save implements Store. Both keys are replaced in one transaction.
func (r *Redis) Save(ctx context.Context, pair Pair) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.accessKey, pair.Access, 0)
	pipe.Set(ctx, r.refreshKey, pair.Refresh, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear implements Store. Deleting absent keys is not an error.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.accessKey, r.refreshKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
