// FilePath: internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smartfarm/irrigation-hub/internal/config"
	nuts "github.com/vaudience/go-nuts"
)

// Cache keys for the dashboard poll hot-path.
const (
	KeyRelayStatus   = "irrigation:relay:status"
	KeyLatestReading = "irrigation:sensor:latest"
)

// Service is a small read-through cache in front of PostgreSQL. All
// methods are safe on a nil receiver, which is how the hub runs when
// Redis is disabled. Cache failures are logged and treated as misses;
// the database stays the source of truth.
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

// NewService connects to Redis and verifies the connection.
func NewService(cfg config.RedisConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to Redis: %w", err)
	}

	nuts.L.Infof("[Cache] Connected to Redis at %s:%d", cfg.Host, cfg.Port)
	return &Service{client: client, ttl: cfg.TTL}, nil
}

// GetJSON loads a cached value into dest. Returns false on a miss or
// any cache failure.
func (s *Service) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil {
		return false
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		nuts.L.Warnf("[Cache] Get %s failed: %v", key, err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		nuts.L.Warnf("[Cache] Corrupt entry at %s, dropping: %v", key, err)
		s.client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores a value with the configured TTL. Best effort.
func (s *Service) SetJSON(ctx context.Context, key string, value any) {
	if s == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		nuts.L.Warnf("[Cache] Marshal for %s failed: %v", key, err)
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		nuts.L.Warnf("[Cache] Set %s failed: %v", key, err)
	}
}

// Invalidate drops cached entries after a write.
func (s *Service) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		nuts.L.Warnf("[Cache] Invalidate %v failed: %v", keys, err)
	}
}

// Close releases the Redis connection.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
