package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/models"
)

// redisKV is the part of the redis client the state store uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient creates a client for the state backend.
func NewRedisClient(cfg config.StateConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// StateRedis keeps the RunState as JSON under a single key, for planners
// running without a persistent volume.
type StateRedis struct {
	client redisKV
	key    string
}

func NewStateRedis(client redisKV, key string) *StateRedis {
	return &StateRedis{client: client, key: key}
}

var _ StateStore = (*StateRedis)(nil)

func (r *StateRedis) Load(ctx context.Context) (*models.RunState, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	var s models.RunState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil
	}
	return &s, nil
}

func (r *StateRedis) Save(ctx context.Context, s models.RunState) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Close releases the redis client when it owns a connection pool.
func (r *StateRedis) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
