package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Redis read-through cache over another Store. Lookups
// by name are served from Redis within a short TTL; every write path
// invalidates the affected keys so a heartbeat-driven status change is
// visible on the next miss.
type RedisCache struct {
	store  Store
	client *redis.Client
	ttl    time.Duration
}

const listCacheKey = "services:list"

// NewRedisCache wraps store with a Redis cache at addr. A zero ttl
// defaults to 15 seconds.
func NewRedisCache(store Store, addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisCache{
		store:  store,
		client: client,
		ttl:    ttl,
	}, nil
}

// Client exposes the Redis connection for health checks.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func serviceCacheKey(name string) string {
	return "service:" + name
}

// Upsert writes through to the store and invalidates the cached row.
func (c *RedisCache) Upsert(ctx context.Context, inst ServiceInstance) (ServiceInstance, error) {
	stored, err := c.store.Upsert(ctx, inst)
	if err != nil {
		return ServiceInstance{}, err
	}
	c.client.Del(ctx, serviceCacheKey(inst.Name), listCacheKey)
	return stored, nil
}

// UpdateHeartbeat writes through to the store and invalidates the cached row.
func (c *RedisCache) UpdateHeartbeat(ctx context.Context, name string, status Status, at time.Time) error {
	if err := c.store.UpdateHeartbeat(ctx, name, status, at); err != nil {
		return err
	}
	c.client.Del(ctx, serviceCacheKey(name), listCacheKey)
	return nil
}

// Get serves the row from cache when possible, falling back to the store
// on a miss and repopulating. A known-missing name is not negatively
// cached; every miss goes to the store.
func (c *RedisCache) Get(ctx context.Context, name string) (ServiceInstance, error) {
	key := serviceCacheKey(name)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var inst ServiceInstance
		if err := json.Unmarshal([]byte(cached), &inst); err == nil {
			return inst, nil
		}
		// Corrupt entry, drop it and fall through to the store.
		c.client.Del(ctx, key)
	}

	inst, err := c.store.Get(ctx, name)
	if err != nil {
		return ServiceInstance{}, err
	}

	if data, err := json.Marshal(inst); err == nil {
		c.client.Set(ctx, key, data, c.ttl)
	}
	return inst, nil
}

// List serves the full row list from cache when possible.
func (c *RedisCache) List(ctx context.Context) ([]ServiceInstance, error) {
	cached, err := c.client.Get(ctx, listCacheKey).Result()
	if err == nil {
		var instances []ServiceInstance
		if err := json.Unmarshal([]byte(cached), &instances); err == nil {
			return instances, nil
		}
		c.client.Del(ctx, listCacheKey)
	}

	instances, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(instances); err == nil {
		c.client.Set(ctx, listCacheKey, data, c.ttl)
	}
	return instances, nil
}

// Delete writes through to the store and invalidates the cached row.
func (c *RedisCache) Delete(ctx context.Context, name string) error {
	if err := c.store.Delete(ctx, name); err != nil {
		return err
	}
	c.client.Del(ctx, serviceCacheKey(name), listCacheKey)
	return nil
}

// MarkStale writes through to the store and, when rows changed, drops
// the whole cache rather than tracking which names were demoted.
func (c *RedisCache) MarkStale(ctx context.Context, cutoff time.Time, at time.Time) (int64, error) {
	demoted, err := c.store.MarkStale(ctx, cutoff, at)
	if err != nil {
		return 0, err
	}
	if demoted > 0 {
		c.client.FlushDB(ctx)
	}
	return demoted, nil
}

// Close closes the Redis connection and the wrapped store.
func (c *RedisCache) Close() error {
	redisErr := c.client.Close()
	storeErr := c.store.Close()
	if redisErr != nil {
		return redisErr
	}
	return storeErr
}
