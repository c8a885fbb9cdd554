package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tutorbook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisIdempotencyStore shares cached responses across replicas. Entries expire via
// Redis TTL, so there is nothing to clean up locally.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, prefix string, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, prefix: prefix, log: log}
}

func (s *RedisIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("Discarding corrupt idempotency entry", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(key string, response *CachedResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	response.CreatedAt = time.Now()
	payload, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency entry", "error", err)
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotency entry", "error", err)
	}
}

func (s *RedisIdempotencyStore) Stop() {}
