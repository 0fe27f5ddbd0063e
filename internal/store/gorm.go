package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// GormSenderStateRepo is the database-backed SenderStateRepository.
type GormSenderStateRepo struct {
	db *gorm.DB
}

var _ SenderStateRepository = (*GormSenderStateRepo)(nil)

func NewGormSenderStateRepo(db *gorm.DB) *GormSenderStateRepo {
	return &GormSenderStateRepo{db: db}
}

func (r *GormSenderStateRepo) Get(ctx context.Context, senderID string) (domain.SenderState, bool, error) {
	var model SenderStateModel
	err := r.db.WithContext(ctx).First(&model, "sender_id = ?", senderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SenderState{}, false, nil
	}
	if err != nil {
		return domain.SenderState{}, false, fmt.Errorf("failed to load sender state: %w", err)
	}
	return senderStateModelToDomain(&model), true, nil
}

func (r *GormSenderStateRepo) Put(ctx context.Context, senderID string, state domain.SenderState) error {
	if senderID == "" {
		return fmt.Errorf("%w: sender id is required", domain.ErrValidation)
	}

	model := senderStateModelFromDomain(senderID, state)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sender_id"}},
			UpdateAll: true,
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to save sender state: %w", err)
	}
	return nil
}

// GormSeenStore is the database-backed SeenMessageStore.
type GormSeenStore struct {
	db *gorm.DB
}

var _ SeenMessageStore = (*GormSeenStore)(nil)

func NewGormSeenStore(db *gorm.DB) *GormSeenStore {
	return &GormSeenStore{db: db}
}

func (s *GormSeenStore) Seen(ctx context.Context, messageID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&SeenMessageModel{}).
		Where("message_id = ?", messageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check seen message: %w", err)
	}
	return count > 0, nil
}

func (s *GormSeenStore) Record(ctx context.Context, messageID string, at time.Time) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}

	model := &SeenMessageModel{MessageID: messageID, FirstSeenAt: at.UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to record seen message: %w", err)
	}
	return nil
}

func (s *GormSeenStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Where("first_seen_at < ?", cutoff.UTC()).
		Delete(&SeenMessageModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune seen messages: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
