package store

import (
	"time"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// SenderStateModel is the persistence shape for sender attribution state.
type SenderStateModel struct {
	SenderID      string  `gorm:"type:varchar(64);primaryKey"`
	LastCode      *string `gorm:"type:varchar(32)"`
	LastCodeSetAt *time.Time
	LastPromptAt  *time.Time
	UpdatedAt     time.Time
}

func (SenderStateModel) TableName() string { return "sender_states" }

// SeenMessageModel is one dedup entry, pruned by FirstSeenAt age.
type SeenMessageModel struct {
	MessageID   string    `gorm:"type:varchar(128);primaryKey"`
	FirstSeenAt time.Time `gorm:"not null;index"`
}

func (SeenMessageModel) TableName() string { return "seen_messages" }

func senderStateModelFromDomain(senderID string, state domain.SenderState) *SenderStateModel {
	m := &SenderStateModel{SenderID: senderID}
	if state.LastCode != "" {
		code := state.LastCode
		m.LastCode = &code
		setAt := state.LastCodeSetAt
		m.LastCodeSetAt = &setAt
	}
	if state.LastPromptAt != nil {
		promptAt := *state.LastPromptAt
		m.LastPromptAt = &promptAt
	}
	return m
}

func senderStateModelToDomain(m *SenderStateModel) domain.SenderState {
	var state domain.SenderState
	if m.LastCode != nil {
		state.LastCode = *m.LastCode
	}
	if m.LastCodeSetAt != nil {
		state.LastCodeSetAt = *m.LastCodeSetAt
	}
	if m.LastPromptAt != nil {
		promptAt := *m.LastPromptAt
		state.LastPromptAt = &promptAt
	}
	return state
}
