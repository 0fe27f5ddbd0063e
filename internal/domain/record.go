package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProcessedMessageRecord is one journal line. Records are append-only and
// immutable once written; MessageID is the dedup identity when present.
type ProcessedMessageRecord struct {
	ReceivedAt        time.Time   `json:"receivedAt"`
	ProviderTimestamp time.Time   `json:"providerTimestamp,omitempty"`
	SenderID          string      `json:"senderId"`
	MessageID         string      `json:"messageId,omitempty"`
	MessageType       MessageType `json:"messageType"`
	SiteCode          string      `json:"siteCode"`
	Text              string      `json:"text,omitempty"`
	MediaFile         string      `json:"mediaFile,omitempty"`
	MediaMime         string      `json:"mediaMime,omitempty"`
	Error             string      `json:"error,omitempty"`
}

func (r *ProcessedMessageRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is required", ErrValidation)
	}
	if strings.TrimSpace(r.SenderID) == "" {
		return fmt.Errorf("%w: senderId is required", ErrValidation)
	}
	if strings.TrimSpace(r.SiteCode) == "" {
		return fmt.Errorf("%w: siteCode is required", ErrValidation)
	}
	if !r.MessageType.IsValid() {
		return fmt.Errorf("%w: invalid message type %q", ErrValidation, r.MessageType)
	}
	if r.ReceivedAt.IsZero() {
		return fmt.Errorf("%w: receivedAt is required", ErrValidation)
	}
	return nil
}
