// Package provider holds the outbound collaborator ports: the messaging
// provider's Graph API (text replies, media download) and the report mailer.
package provider

import "context"

// TextSender sends an outbound text message to a sender.
type TextSender interface {
	SendText(ctx context.Context, to string, body string) (*SendResponse, error)
}

// SendResponse stores provider call metadata for logging.
type SendResponse struct {
	MessageID string
}

// MediaFetcher resolves a provider media id to raw bytes plus MIME type.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) (*MediaContent, error)
}

// MediaContent is a downloaded media payload.
type MediaContent struct {
	Data     []byte
	MimeType string
}

// Mailer delivers a built report to the fixed recipient.
type Mailer interface {
	SendReport(ctx context.Context, subject string, body string, attachmentName string, attachment []byte) error
}
