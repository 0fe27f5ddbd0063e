// Package store persists sender attribution state and the seen-message
// dedup set. The file-backed store is the default deployment; gorm and
// redis implementations exist for database-backed setups.
package store

import (
	"context"
	"time"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// SenderStateRepository is the attribution engine's view of sender state.
// Implementations must tolerate unknown senders (ok=false, no error).
type SenderStateRepository interface {
	Get(ctx context.Context, senderID string) (domain.SenderState, bool, error)
	Put(ctx context.Context, senderID string, state domain.SenderState) error
}

// SeenMessageStore tracks already-processed provider message ids so that
// at-least-once webhook re-delivery stays idempotent.
type SeenMessageStore interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Record(ctx context.Context, messageID string, at time.Time) error
	// PruneBefore drops entries first seen before the cutoff and returns how
	// many were removed. Stores whose backend expires keys on its own return
	// (0, nil).
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}
