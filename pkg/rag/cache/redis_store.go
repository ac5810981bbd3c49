package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("answer-cache")

const redisKeyPrefix = "qa:answer:"

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore stores JSON entries. ttl <= 0 means no expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	ctx, span := tracer.Start(ctx, "cache.redis.Get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &e, nil
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	ctx, span := tracer.Start(ctx, "cache.redis.Put", trace.WithAttributes(attribute.String("cache.key", e.Key)))
	defer span.End()

	bytes, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+e.Key, bytes, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
