package capgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guregu/null/v6"
	"github.com/redis/go-redis/v9"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

var _ Cache = (*RedisCache)(nil)

// RedisCache keeps snapshots in Redis so repeated runs within the TTL share
// lookups. Backend errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: "marketcap"}
}

// Ping checks the connection to the Redis server.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *RedisCache) key(symbol string) string {
	return c.prefix + ":" + symbol
}

type redisSnapshot struct {
	MarketCap *float64  `json:"market_cap"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (model.CapSnapshot, bool) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "ticker", symbol, "error", err)
		}
		return model.CapSnapshot{}, false
	}
	var rs redisSnapshot
	if err := json.Unmarshal(data, &rs); err != nil {
		slog.Warn("redis cache entry unreadable", "ticker", symbol, "error", err)
		return model.CapSnapshot{}, false
	}
	return model.CapSnapshot{
		Symbol:    symbol,
		MarketCap: null.FloatFromPtr(rs.MarketCap),
		FetchedAt: rs.FetchedAt,
	}, true
}

func (c *RedisCache) Set(ctx context.Context, snap model.CapSnapshot) {
	data, err := json.Marshal(redisSnapshot{MarketCap: snap.MarketCap.Ptr(), FetchedAt: snap.FetchedAt})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(snap.Symbol), data, c.ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "ticker", snap.Symbol, "error", err)
	}
}
