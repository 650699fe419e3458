package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stablecoin-checkout/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// BalanceCache implements ports.BalanceCache using Redis. Each wallet maps to
// a single key holding the whole snapshot as JSON, so a Set replaces the view
// atomically; readers never observe a half-updated snapshot.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance snapshot cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
	}
}

// Get retrieves the cached snapshot for a wallet.
// Returns nil, nil if no snapshot is cached.
func (c *BalanceCache) Get(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error) {
	val, err := c.client.Get(ctx, c.prefix+walletAddress).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	var snap domain.BalanceSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("redis balance decode: %w", err)
	}
	return &snap, nil
}

// Set stores a snapshot with TTL, replacing any cached one.
func (c *BalanceCache) Set(ctx context.Context, walletAddress string, snap *domain.BalanceSnapshot, ttl time.Duration) error {
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis balance encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+walletAddress, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}
