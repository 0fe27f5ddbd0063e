package store

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

const seenKeyPrefix = "seen:"

// RedisSeenStore keeps the dedup set in Redis; retention is enforced by key
// expiry, so PruneBefore has nothing to do.
type RedisSeenStore struct {
	client    *goredis.Client
	retention time.Duration
}

var _ SeenMessageStore = (*RedisSeenStore)(nil)

func NewRedisSeenStore(client *goredis.Client, retention time.Duration) (*RedisSeenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("seen retention must be positive")
	}

	return &RedisSeenStore{
		client:    client,
		retention: retention,
	}, nil
}

func (s *RedisSeenStore) Seen(ctx context.Context, messageID string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	n, err := s.client.Exists(ctx, seenKeyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seen message: %w", err)
	}
	return n > 0, nil
}

func (s *RedisSeenStore) Record(ctx context.Context, messageID string, at time.Time) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.client.SetNX(ctx, seenKeyPrefix+messageID, at.UTC().Format(time.RFC3339), s.retention).Err(); err != nil {
		return fmt.Errorf("failed to record seen message: %w", err)
	}
	return nil
}

func (s *RedisSeenStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}
