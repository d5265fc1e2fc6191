package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Cache stores generated answers keyed by a hash of the prompt.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CacheKey derives a stable key from the model, kind and prompt.
func CacheKey(model, kind, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + kind + "\x00" + prompt))
	return "insight:" + kind + ":" + hex.EncodeToString(sum[:])
}

// InsightCacheStore is the slice of store.Store backing StoreCache.
type InsightCacheStore interface {
	GetCachedInsight(ctx context.Context, cacheKey string) ([]byte, error)
	SetCachedInsight(ctx context.Context, cacheKey string, data []byte, ttl time.Duration) error
}

// StoreCache keeps answers in the database's insight_cache table.
type StoreCache struct {
	st InsightCacheStore
}

// NewStoreCache wraps a store as a Cache.
func NewStoreCache(st InsightCacheStore) *StoreCache {
	return &StoreCache{st: st}
}

func (c *StoreCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.st.GetCachedInsight(ctx, key)
	if err != nil {
		return nil, false, eris.Wrap(err, "insights: store cache get")
	}
	return data, data != nil, nil
}

func (c *StoreCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return eris.Wrap(c.st.SetCachedInsight(ctx, key, data, ttl), "insights: store cache set")
}

// RedisCache keeps answers in Redis with a native TTL.
type RedisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects to addr and verifies the connection with PING.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrapf(err, "insights: redis ping %s", addr)
	}
	return &RedisCache{rdb: rdb}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *goredis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "insights: redis get")
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return eris.Wrap(c.rdb.Set(ctx, key, data, ttl).Err(), "insights: redis set")
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
