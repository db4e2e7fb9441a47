package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "notification:sent:"

type RedisStore struct {
	client *redis.Client
	lg     zerolog.Logger
}

// NewRedisClient connects and pings so a bad address fails at startup,
// not on the first envelope.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(client *redis.Client, lg zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		lg:     lg.With().Str("component", "idempotency_store").Logger(),
	}
}

func (s *RedisStore) SeenOrMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("empty idempotency key")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	set, err := s.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	// SetNX returns false when the key already existed.
	return !set, nil
}
