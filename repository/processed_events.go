package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedEventStore records webhook event ids that have already been
// applied, so redelivered events can be acknowledged without re-running
// side effects. The order transition itself is idempotent, so this
// store is an optimization and every operation is best-effort.
type ProcessedEventStore interface {
	// MarkProcessed records the event id and reports whether this call
	// was the first to do so.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Seen(ctx context.Context, eventID string) (bool, error)
}

type RedisProcessedEventStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedEventStore(client *redis.Client, ttl time.Duration) *RedisProcessedEventStore {
	return &RedisProcessedEventStore{client: client, ttl: ttl}
}

func (s *RedisProcessedEventStore) key(eventID string) string {
	return "webhook:event:" + eventID
}

func (s *RedisProcessedEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.client.SetNX(ctx, s.key(eventID), "1", s.ttl).Result()
}

func (s *RedisProcessedEventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
