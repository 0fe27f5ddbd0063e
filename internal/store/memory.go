package store

import (
	"context"
	"sync"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// MemorySenderStateRepo is an in-memory SenderStateRepository, used in tests
// and available as a throwaway backend for local runs.
type MemorySenderStateRepo struct {
	mu     sync.Mutex
	states map[string]domain.SenderState
}

var _ SenderStateRepository = (*MemorySenderStateRepo)(nil)

func NewMemorySenderStateRepo() *MemorySenderStateRepo {
	return &MemorySenderStateRepo{states: make(map[string]domain.SenderState)}
}

func (r *MemorySenderStateRepo) Get(ctx context.Context, senderID string) (domain.SenderState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[senderID]
	return state, ok, nil
}

func (r *MemorySenderStateRepo) Put(ctx context.Context, senderID string, state domain.SenderState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[senderID] = state
	return nil
}
