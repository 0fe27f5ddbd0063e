// Package service wires the attribution engine, journal, and outbound
// collaborators into the webhook processing pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/attribution"
	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/observability"
	"github.com/alexkrista/whatsapp-webhook/internal/provider"
)

const defaultPromptBody = "Bitte senden Sie den Baustellen-Code als #<Nummer>, z.B. #260016."

// Resolver maps an inbound message to a site code with sender-state side
// effects.
type Resolver interface {
	Resolve(ctx context.Context, msg domain.InboundMessage) (attribution.Resolution, error)
}

// JournalWriter appends records and media under the storage root.
type JournalWriter interface {
	Append(record domain.ProcessedMessageRecord) error
	WriteMedia(siteCode string, ts time.Time, mediaID, mimeType string, data []byte) (string, error)
}

// IngestService runs the per-message pipeline: resolve the site, download
// media, journal the record, and nudge codeless senders. The webhook transport
// has already been acknowledged by the time this runs, so collaborator
// failures are logged and recorded on the journal line, never surfaced.
type IngestService struct {
	resolver   Resolver
	journal    JournalWriter
	media      provider.MediaFetcher
	sender     provider.TextSender
	logger     *zap.Logger
	metrics    *observability.Metrics
	promptBody string
	now        func() time.Time
}

func NewIngestService(
	resolver Resolver,
	journal JournalWriter,
	media provider.MediaFetcher,
	sender provider.TextSender,
	promptBody string,
	logger *zap.Logger,
) (*IngestService, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("journal writer is required")
	}
	if media == nil {
		return nil, fmt.Errorf("media fetcher is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("text sender is required")
	}
	if promptBody == "" {
		promptBody = defaultPromptBody
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IngestService{
		resolver:   resolver,
		journal:    journal,
		media:      media,
		sender:     sender,
		logger:     logger,
		promptBody: promptBody,
		now:        time.Now,
	}, nil
}

func (s *IngestService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ProcessMessage handles one inbound message end to end. Duplicates and
// invalid messages are dropped; everything else produces exactly one journal
// line, under "unknown" when no site could be attributed.
func (s *IngestService) ProcessMessage(ctx context.Context, msg domain.InboundMessage) {
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.resolver.Resolve(ctx, msg)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.logger.Warn("dropping invalid inbound message",
				zap.String("senderId", msg.From),
				zap.String("messageId", msg.ID),
				zap.Error(err),
			)
			s.metrics.IncMessageProcessed(msg.Type.String(), "invalid")
			return
		}
		// State persistence failed after attribution; the resolution is still
		// usable, so the message is journaled rather than dropped.
		s.logger.Error("attribution completed with state error",
			zap.String("senderId", msg.From),
			zap.String("messageId", msg.ID),
			zap.Error(err),
		)
	}

	if res.Duplicate {
		s.logger.Info("dropping re-delivered message",
			zap.String("senderId", msg.From),
			zap.String("messageId", msg.ID),
		)
		s.metrics.IncDuplicate()
		return
	}

	receivedAt := s.now().UTC()
	record := domain.ProcessedMessageRecord{
		ReceivedAt:        receivedAt,
		ProviderTimestamp: msg.Timestamp,
		SenderID:          msg.From,
		MessageID:         msg.ID,
		MessageType:       msg.Type,
		SiteCode:          res.SiteCode,
		Text:              recordText(msg),
	}

	if msg.Type.HasMedia() && msg.MediaID != "" {
		s.attachMedia(ctx, &record, msg)
	}

	if err := s.journal.Append(record); err != nil {
		s.logger.Error("failed to journal message",
			zap.String("senderId", msg.From),
			zap.String("messageId", msg.ID),
			zap.String("siteCode", record.SiteCode),
			zap.Error(err),
		)
		s.metrics.IncJournalAppend("error")
		s.metrics.IncMessageProcessed(msg.Type.String(), "journal_error")
		return
	}
	s.metrics.IncJournalAppend("ok")

	if res.ShouldPrompt {
		s.sendPrompt(ctx, msg.From)
	}

	s.metrics.IncMessageProcessed(msg.Type.String(), outcomeLabel(res))
}

func (s *IngestService) attachMedia(ctx context.Context, record *domain.ProcessedMessageRecord, msg domain.InboundMessage) {
	content, err := s.media.FetchMedia(ctx, msg.MediaID)
	if err != nil {
		s.logger.Error("failed to fetch media",
			zap.String("senderId", msg.From),
			zap.String("mediaId", msg.MediaID),
			zap.Error(err),
		)
		s.metrics.IncMediaFetched("error")
		record.Error = fmt.Sprintf("media fetch failed: %v", err)
		return
	}
	s.metrics.IncMediaFetched("ok")

	mimeType := content.MimeType
	if mimeType == "" {
		mimeType = msg.MimeType
	}

	name, err := s.journal.WriteMedia(record.SiteCode, record.ReceivedAt, msg.MediaID, mimeType, content.Data)
	if err != nil {
		s.logger.Error("failed to store media file",
			zap.String("senderId", msg.From),
			zap.String("mediaId", msg.MediaID),
			zap.Error(err),
		)
		record.Error = fmt.Sprintf("media write failed: %v", err)
		return
	}

	record.MediaFile = name
	record.MediaMime = mimeType
}

func (s *IngestService) sendPrompt(ctx context.Context, to string) {
	if _, err := s.sender.SendText(ctx, to, s.promptBody); err != nil {
		s.logger.Error("failed to send code prompt",
			zap.String("senderId", to),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncPromptSent()
}

func recordText(msg domain.InboundMessage) string {
	if msg.Type == domain.MessageText {
		return msg.Text
	}
	return msg.Caption
}

func outcomeLabel(res attribution.Resolution) string {
	switch {
	case res.ExplicitCode:
		return "explicit"
	case res.SiteCode == domain.UnknownSite:
		return "unknown"
	default:
		return "sticky"
	}
}
