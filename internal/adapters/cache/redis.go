package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

const breakdownKeyPrefix = "settlement:breakdown:"

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisBreakdownCache stores opened breakdowns as JSON. Breakdowns never change
// after open, so entries are only ever written, never invalidated.
type RedisBreakdownCache struct {
	client *redis.Client
}

func NewRedisBreakdownCache(client *redis.Client) *RedisBreakdownCache {
	return &RedisBreakdownCache{client: client}
}

func (c *RedisBreakdownCache) Get(ctx context.Context, collaborationID string) (domain.Breakdown, bool, error) {
	raw, err := c.client.Get(ctx, breakdownKeyPrefix+collaborationID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Breakdown{}, false, nil
		}
		return domain.Breakdown{}, false, err
	}
	var b domain.Breakdown
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Breakdown{}, false, err
	}
	return b, true, nil
}

func (c *RedisBreakdownCache) Set(ctx context.Context, b domain.Breakdown, ttl time.Duration) error {
	if b.CollaborationID == "" {
		return domain.ErrInvalidInput
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, breakdownKeyPrefix+b.CollaborationID, raw, ttl).Err()
}

var _ ports.BreakdownCache = (*RedisBreakdownCache)(nil)
