package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryStore remembers which recommendation batches were already sent.
type DeliveryStore struct {
	client *redis.Client
}

func NewDeliveryStore(client *redis.Client) *DeliveryStore {
	return &DeliveryStore{client: client}
}

func (s *DeliveryStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery key: %w", err)
	}
	return n > 0, nil
}

// MarkSent is idempotent: an existing key counts as success.
func (s *DeliveryStore) MarkSent(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, key, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark delivery: %w", err)
	}
	return nil
}
