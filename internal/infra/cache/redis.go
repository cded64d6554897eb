package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

const keyPrefix = "scamguard:verdict:"

// VerdictCache stores normalized results in redis keyed by input digest.
type VerdictCache struct {
	client *redis.Client
}

func NewVerdictCache(addr, password string, db int) *VerdictCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &VerdictCache{client: rdb}
}

func (c *VerdictCache) Get(ctx context.Context, key string) (*analysis.Result, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failure: %w", err)
	}
	var r analysis.Result
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, false, fmt.Errorf("decode cached verdict: %w", err)
	}
	return &r, true, nil
}

func (c *VerdictCache) Set(ctx context.Context, key string, r *analysis.Result, ttl time.Duration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+key, string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failure: %w", err)
	}
	return nil
}

func (c *VerdictCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *VerdictCache) Close() error {
	return c.client.Close()
}
