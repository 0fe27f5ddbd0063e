// Package webhook decodes WhatsApp Business webhook payloads into domain
// messages at the transport boundary.
package webhook

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

// Envelope is the provider's nested delivery payload:
// entry[].changes[].value.messages[].
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Messages         []Message         `json:"messages"`
	Statuses         []json.RawMessage `json:"statuses"`
}

type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`

	Text     *Text  `json:"text"`
	Image    *Media `json:"image"`
	Audio    *Media `json:"audio"`
	Video    *Media `json:"video"`
	Document *Media `json:"document"`
}

type Text struct {
	Body string `json:"body"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
}

// ParseEnvelope decodes a webhook body. A body that is not valid JSON is a
// transport-input error for the caller to degrade on, never a panic.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// InboundMessages flattens the envelope into domain messages, preserving the
// array order the provider supplied. Deliveries carrying only status
// callbacks flatten to an empty slice.
func (e Envelope) InboundMessages() []domain.InboundMessage {
	var messages []domain.InboundMessage
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				messages = append(messages, msg.toDomain())
			}
		}
	}
	return messages
}

func (m Message) toDomain() domain.InboundMessage {
	out := domain.InboundMessage{
		ID:        strings.TrimSpace(m.ID),
		From:      strings.TrimSpace(m.From),
		Type:      domain.ParseMessageTypeFromString(m.Type),
		Timestamp: parseProviderTimestamp(m.Timestamp),
	}

	if m.Text != nil {
		out.Text = m.Text.Body
	}

	if media := m.media(); media != nil {
		out.MediaID = media.ID
		out.MimeType = media.MimeType
		out.Caption = media.Caption
		out.Filename = media.Filename
	}

	return out
}

func (m Message) media() *Media {
	switch domain.ParseMessageTypeFromString(m.Type) {
	case domain.MessageImage:
		return m.Image
	case domain.MessageAudio:
		return m.Audio
	case domain.MessageVideo:
		return m.Video
	case domain.MessageDocument:
		return m.Document
	}
	return nil
}

// parseProviderTimestamp parses the provider's seconds-since-epoch numeric
// string. Malformed values degrade to the zero time.
func parseProviderTimestamp(raw string) time.Time {
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
