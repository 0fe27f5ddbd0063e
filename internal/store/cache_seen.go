package store

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// CacheSeenStore is an in-process seen set on top of a TTL cache. Entries
// expire at the retention boundary on their own; it does not survive a
// restart, which is acceptable for provider retry horizons.
type CacheSeenStore struct {
	cache *gocache.Cache
}

var _ SeenMessageStore = (*CacheSeenStore)(nil)

func NewCacheSeenStore(retention time.Duration) (*CacheSeenStore, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("seen retention must be positive")
	}
	return &CacheSeenStore{
		cache: gocache.New(retention, retention/2),
	}, nil
}

func (s *CacheSeenStore) Seen(ctx context.Context, messageID string) (bool, error) {
	_, ok := s.cache.Get(messageID)
	return ok, nil
}

func (s *CacheSeenStore) Record(ctx context.Context, messageID string, at time.Time) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	s.cache.SetDefault(messageID, at.UTC())
	return nil
}

// PruneBefore forces an expiry sweep; the cache already evicts on read.
func (s *CacheSeenStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	before := s.cache.ItemCount()
	s.cache.DeleteExpired()
	pruned := before - s.cache.ItemCount()
	if pruned < 0 {
		pruned = 0
	}
	return pruned, nil
}
