package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"go.uber.org/zap"
)

// document is the single JSON file layout: the whole sender map plus the
// seen-message set, rewritten on every mutation.
type document struct {
	Senders map[string]domain.SenderState `json:"senders"`
	Seen    map[string]time.Time          `json:"seen"`
}

// FileStore keeps sender state and the seen set in one JSON document.
// Every mutation rewrites the file via temp-file-then-rename so a crash
// mid-write never leaves a truncated state file behind.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu  sync.Mutex
	doc document
}

var (
	_ SenderStateRepository = (*FileStore)(nil)
	_ SeenMessageStore      = (*FileStore)(nil)
)

// NewFileStore loads the state file at path. A missing or corrupt file
// degrades to an empty store; it never fails startup for data reasons.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &FileStore{
		path:   path,
		logger: logger,
		doc:    emptyDocument(),
	}
	s.load()
	return s, nil
}

func emptyDocument() document {
	return document{
		Senders: make(map[string]domain.SenderState),
		Seen:    make(map[string]time.Time),
	}
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting empty",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("state file corrupt, starting empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return
	}

	if doc.Senders == nil {
		doc.Senders = make(map[string]domain.SenderState)
	}
	if doc.Seen == nil {
		doc.Seen = make(map[string]time.Time)
	}
	s.doc = doc
}

// save rewrites the whole document atomically. Caller holds s.mu.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, senderID string) (domain.SenderState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.doc.Senders[senderID]
	return state, ok, nil
}

func (s *FileStore) Put(ctx context.Context, senderID string, state domain.SenderState) error {
	if senderID == "" {
		return fmt.Errorf("%w: sender id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Senders[senderID] = state
	return s.save()
}

func (s *FileStore) Seen(ctx context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.doc.Seen[messageID]
	return ok, nil
}

func (s *FileStore) Record(ctx context.Context, messageID string, at time.Time) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Seen[messageID] = at.UTC()
	return s.save()
}

func (s *FileStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, firstSeen := range s.doc.Seen {
		if firstSeen.Before(cutoff) {
			delete(s.doc.Seen, id)
			pruned++
		}
	}
	if pruned == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		return pruned, err
	}
	return pruned, nil
}
