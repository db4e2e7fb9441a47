package idempotency

import (
	"context"
	"time"
)

// Store deduplicates envelope sends across redeliveries and restarts.
type Store interface {
	// SeenOrMark atomically marks key and reports whether it was already
	// marked. true means a duplicate: the caller should skip the send.
	SeenOrMark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NoopStore is used when Redis is disabled; every envelope looks new.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SeenOrMark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, nil
}
