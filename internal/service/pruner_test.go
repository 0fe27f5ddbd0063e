package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSeenStore struct {
	mu      sync.Mutex
	pruned  []time.Time
	removed int
	err     error
}

func (f *fakeSeenStore) Seen(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeSeenStore) Record(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeSeenStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.pruned = append(f.pruned, cutoff)
	return f.removed, nil
}

func (f *fakeSeenStore) pruneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pruned)
}

func TestSeenPrunerRunsInitialPrune(t *testing.T) {
	t.Parallel()

	seen := &fakeSeenStore{removed: 3}
	pruner, err := NewSeenPruner(seen, time.Hour, 24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSeenPruner: %v", err)
	}

	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	pruner.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pruner.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for seen.pruneCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial prune never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	seen.mu.Lock()
	cutoff := seen.pruned[0]
	seen.mu.Unlock()
	if want := fixed.Add(-24 * time.Hour); !cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", cutoff, want)
	}
}

func TestSeenPrunerTicks(t *testing.T) {
	t.Parallel()

	seen := &fakeSeenStore{}
	pruner, err := NewSeenPruner(seen, 20*time.Millisecond, 24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSeenPruner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pruner.Start(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for seen.pruneCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d prunes within deadline", seen.pruneCount())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestSeenPrunerStopsOnCancel(t *testing.T) {
	t.Parallel()

	pruner, err := NewSeenPruner(&fakeSeenStore{}, time.Hour, 24*time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSeenPruner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- pruner.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pruner did not stop after context cancel")
	}
}
