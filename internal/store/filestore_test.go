package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	promptAt := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	want := domain.SenderState{
		LastCode:      "260016",
		LastCodeSetAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		LastPromptAt:  &promptAt,
	}
	if err := first.Put(ctx, "4915112345678", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	seenAt := time.Date(2026, 8, 31, 9, 1, 0, 0, time.UTC)
	if err := first.Record(ctx, "wamid.1", seenAt); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// A fresh store over the same file must reproduce the saved state.
	second, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}

	got, ok, err := second.Get(ctx, "4915112345678")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want found", ok, err)
	}
	if got.LastCode != want.LastCode {
		t.Fatalf("LastCode = %q, want %q", got.LastCode, want.LastCode)
	}
	if !got.LastCodeSetAt.Equal(want.LastCodeSetAt) {
		t.Fatalf("LastCodeSetAt = %v, want %v", got.LastCodeSetAt, want.LastCodeSetAt)
	}
	if got.LastPromptAt == nil || !got.LastPromptAt.Equal(promptAt) {
		t.Fatalf("LastPromptAt = %v, want %v", got.LastPromptAt, promptAt)
	}

	seen, err := second.Seen(ctx, "wamid.1")
	if err != nil || !seen {
		t.Fatalf("Seen() = %v err=%v, want true", seen, err)
	}
}

func TestFileStoreUnknownSender(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, ok, err := s.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Fatal("Get() ok = true for unknown sender")
	}
}

func TestFileStoreCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"senders": {truncated`), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v, corruption must not fail startup", err)
	}

	_, ok, err := s.Get(context.Background(), "4915112345678")
	if err != nil || ok {
		t.Fatalf("Get() = ok=%v err=%v after corrupt load, want empty store", ok, err)
	}

	// The store must still be writable after falling back to empty.
	if err := s.Put(context.Background(), "4915112345678", domain.SenderState{LastCode: "123"}); err != nil {
		t.Fatalf("Put() after corrupt load error = %v", err)
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := s.Put(context.Background(), "sender", domain.SenderState{LastCode: "260016"}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file %q left behind after save", entry.Name())
		}
	}
}

func TestFileStorePruneBefore(t *testing.T) {
	t.Parallel()

	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	if err := s.Record(ctx, "old", now.Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(ctx, "fresh", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	pruned, err := s.PruneBefore(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if pruned != 1 {
		t.Fatalf("PruneBefore() = %d, want 1", pruned)
	}

	if seen, _ := s.Seen(ctx, "old"); seen {
		t.Fatal("old entry survived pruning")
	}
	if seen, _ := s.Seen(ctx, "fresh"); !seen {
		t.Fatal("fresh entry was pruned")
	}
}

func TestCacheSeenStore(t *testing.T) {
	t.Parallel()

	s, err := NewCacheSeenStore(7 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("NewCacheSeenStore() error = %v", err)
	}
	ctx := context.Background()

	if seen, _ := s.Seen(ctx, "wamid.1"); seen {
		t.Fatal("Seen() = true before Record()")
	}
	if err := s.Record(ctx, "wamid.1", time.Now()); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if seen, _ := s.Seen(ctx, "wamid.1"); !seen {
		t.Fatal("Seen() = false after Record()")
	}
	if err := s.Record(ctx, "", time.Now()); err == nil {
		t.Fatal("Record() with empty id should fail")
	}
}
