package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageType represents the payload kind of an inbound message.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageAudio    MessageType = "audio"
	MessageVideo    MessageType = "video"
	MessageDocument MessageType = "document"
	MessageOther    MessageType = "other"
)

func (t MessageType) String() string { return string(t) }

func (t MessageType) IsValid() bool {
	switch t {
	case MessageText, MessageImage, MessageAudio, MessageVideo, MessageDocument, MessageOther:
		return true
	}
	return false
}

// HasMedia reports whether messages of this type carry a downloadable payload.
func (t MessageType) HasMedia() bool {
	switch t {
	case MessageImage, MessageAudio, MessageVideo, MessageDocument:
		return true
	}
	return false
}

// HasCaption reports whether messages of this type can carry a media caption.
func (t MessageType) HasCaption() bool {
	switch t {
	case MessageImage, MessageVideo, MessageDocument:
		return true
	}
	return false
}

func ParseMessageTypeFromString(s string) MessageType {
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return MessageOther
	}
	return t
}

// InboundMessage is a provider message normalized at the transport boundary.
// The attribution engine and the ingest pipeline only ever see this type,
// never the raw webhook payload.
type InboundMessage struct {
	ID        string
	From      string
	Type      MessageType
	Timestamp time.Time

	// Text is the message body for text messages.
	Text string
	// Caption is the media caption, when the provider supplied one.
	Caption string

	MediaID  string
	MimeType string
	Filename string
}

func (m InboundMessage) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("%w: sender is required", ErrValidation)
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("%w: invalid message type %q", ErrValidation, m.Type)
	}
	return nil
}

// CodeText returns the text to scan for a site code. Captions only
// participate when caption scanning is enabled.
func (m InboundMessage) CodeText(captionCodes bool) string {
	if m.Type == MessageText {
		return m.Text
	}
	if captionCodes && m.Type.HasCaption() {
		return m.Caption
	}
	return ""
}
