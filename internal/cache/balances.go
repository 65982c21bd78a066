// Package cache memoizes computed balances in Redis. The cache is never the
// source of truth: entries expire after a TTL and are dropped whenever an
// expense touching the user is written.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/splitledger/internal/models"
)

const (
	balanceKeyPrefix    = "splitledger:balances:"
	generationKeyPrefix = "splitledger:balances:gen:"
)

// BalanceCache stores models.Balances per viewer. A nil *BalanceCache is
// valid and behaves as an always-empty cache.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis server at url.
// Returns nil if the URL is empty (Redis not configured).
func New(ctx context.Context, url string, ttl time.Duration) (*BalanceCache, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

// Enabled reports whether reads can hit.
func (c *BalanceCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached balances for userID. ok is false on a miss.
func (c *BalanceCache) Get(ctx context.Context, userID string) (balances models.Balances, ok bool, err error) {
	if !c.Enabled() {
		return models.Balances{}, false, nil
	}

	data, err := c.client.Get(ctx, balanceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Balances{}, false, nil
	}
	if err != nil {
		return models.Balances{}, false, fmt.Errorf("get cached balances: %w", err)
	}

	if err := json.Unmarshal(data, &balances); err != nil {
		return models.Balances{}, false, fmt.Errorf("decode cached balances: %w", err)
	}
	return balances, true, nil
}

// Set stores balances for userID with the cache TTL.
func (c *BalanceCache) Set(ctx context.Context, userID string, balances models.Balances) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if err := c.client.Set(ctx, balanceKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached balances: %w", err)
	}
	return nil
}

// Generation returns the invalidation counter for userID. Read it before
// loading the ledger and pass it to SetIfGeneration.
func (c *BalanceCache) Generation(ctx context.Context, userID string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}

	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance generation: %w", err)
	}
	return gen, nil
}

// SetIfGeneration stores balances only if no invalidation for userID happened
// since gen was read. stored is false when the balances were computed from a
// superseded ledger.
func (c *BalanceCache) SetIfGeneration(ctx context.Context, userID string, gen int64, balances models.Balances) (stored bool, err error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := json.Marshal(balances)
	if err != nil {
		return false, fmt.Errorf("encode balances: %w", err)
	}

	genKey := generationKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey(userID), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set cached balances: %w", err)
	}
	return stored, nil
}

// Invalidate drops the cached balances of every listed user and bumps their
// generations so in-flight recomputations are not cached.
func (c *BalanceCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if !c.Enabled() || len(userIDs) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Del(ctx, balanceKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached balances: %w", err)
	}
	return nil
}

// Health checks if the Redis connection is healthy.
func (c *BalanceCache) Health(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *BalanceCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

func balanceKey(userID string) string {
	return balanceKeyPrefix + userID
}

func generationKey(userID string) string {
	return generationKeyPrefix + userID
}
