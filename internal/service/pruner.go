package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/store"
)

const (
	defaultPruneInterval = time.Hour
	defaultSeenRetention = 7 * 24 * time.Hour
	minimumSeenRetention = time.Minute
)

// SeenPruner periodically evicts expired entries from the seen-message set so
// the dedup window stays bounded. Stores with native expiry make PruneBefore
// a no-op, running the loop against them is harmless.
type SeenPruner struct {
	seen      store.SeenMessageStore
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewSeenPruner(seen store.SeenMessageStore, interval, retention time.Duration, logger *zap.Logger) (*SeenPruner, error) {
	if seen == nil {
		return nil, fmt.Errorf("seen message store is required")
	}
	if interval <= 0 {
		interval = defaultPruneInterval
	}
	if retention < minimumSeenRetention {
		retention = defaultSeenRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SeenPruner{
		seen:      seen,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (p *SeenPruner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial prune so a long-stopped process trims its backlog before
	// the first ticker edge.
	if err := p.pruneExpired(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("initial seen-set prune failed", zap.Error(err))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.pruneExpired(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("seen-set prune failed", zap.Error(err))
			}
		}
	}
}

func (p *SeenPruner) pruneExpired(ctx context.Context) error {
	cutoff := p.now().UTC().Add(-p.retention)

	removed, err := p.seen.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune seen messages: %w", err)
	}
	if removed > 0 {
		p.logger.Info("pruned expired seen messages",
			zap.Int("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
