// Package cache provides a Redis-backed save slot for deployments without a local disk.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
)

// ErrMiss is returned by RedisClient.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// RedisClient is an interface for Redis operations.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SlotStore keeps save slots as plain Redis strings with no expiry.
type SlotStore struct {
	client RedisClient
	prefix string
}

// NewSlotStore creates a slot store over client.
func NewSlotStore(client RedisClient) *SlotStore {
	return &SlotStore{client: client, prefix: "beer:slot:"}
}

// Read returns the stored snapshot or storage.ErrSlotEmpty.
func (c *SlotStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.slotKey(key))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, storage.ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return []byte(data), nil
}

// Write overwrites the slot.
func (c *SlotStore) Write(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.slotKey(key), value, 0); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

// Delete removes the slot.
func (c *SlotStore) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.slotKey(key)); err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

// slotKey generates the Redis key for a save slot.
func (c *SlotStore) slotKey(key string) string {
	return c.prefix + key
}

// GoRedis adapts a go-redis client to RedisClient.
type GoRedis struct {
	Client *redis.Client
}

func (g GoRedis) Get(ctx context.Context, key string) (string, error) {
	v, err := g.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (g GoRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return g.Client.Set(ctx, key, value, expiration).Err()
}

func (g GoRedis) Del(ctx context.Context, keys ...string) error {
	return g.Client.Del(ctx, keys...).Err()
}

// Open connects to Redis and returns it as a storage backend.
func Open(ctx context.Context, cfg config.StorageConfig) (*storage.Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return storage.NewBackend(config.DriverRedis, NewSlotStore(GoRedis{Client: client}), nil, client.Close), nil
}

func init() {
	storage.Register(config.DriverRedis, Open)
}

var _ storage.SlotStore = (*SlotStore)(nil)
