// Package handler exposes the HTTP surface: webhook verification and intake,
// on-demand report runs, and health probes.
package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/observability"
	"github.com/alexkrista/whatsapp-webhook/internal/webhook"
)

const signatureHeader = "X-Hub-Signature-256"

// MessageProcessor runs the attribution and journaling pipeline for one
// inbound message. It never returns an error; by the time it runs the
// transport response is already sent.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg domain.InboundMessage)
}

type WebhookHandler struct {
	processor   MessageProcessor
	verifyToken string
	appSecret   string
	logger      *zap.Logger
}

func NewWebhookHandler(processor MessageProcessor, verifyToken, appSecret string, logger *zap.Logger) (*WebhookHandler, error) {
	if processor == nil {
		return nil, fmt.Errorf("message processor is required")
	}
	if strings.TrimSpace(verifyToken) == "" {
		return nil, fmt.Errorf("verify token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		processor:   processor,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      logger,
	}, nil
}

func RegisterWebhookRoutes(router fiber.Router, processor MessageProcessor, verifyToken, appSecret string, logger *zap.Logger) error {
	h, err := NewWebhookHandler(processor, verifyToken, appSecret, logger)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/webhook", h.Verify)
	v1.Post("/webhook", h.Receive)

	return nil
}

// Verify answers the provider's subscription handshake: echo the challenge
// for a matching verify token, 403 for everything else.
func (h *WebhookHandler) Verify(c *fiber.Ctx) error {
	mode := queryWithFallback(c, "hub.mode", "mode")
	token := queryWithFallback(c, "hub.verify_token", "verify_token")
	challenge := queryWithFallback(c, "hub.challenge", "challenge")

	if mode == "subscribe" && token == h.verifyToken {
		return c.Status(fiber.StatusOK).SendString(challenge)
	}

	h.logger.Warn("webhook verification rejected",
		zap.String("mode", mode),
	)
	return c.SendStatus(fiber.StatusForbidden)
}

// Receive acknowledges a webhook delivery immediately and processes its
// messages asynchronously. Except for a bad signature every delivery gets a
// 200; the provider retries on anything else and re-delivery is already
// handled by the dedup set.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()

	if h.appSecret != "" && !webhook.VerifySignature(h.appSecret, body, c.Get(signatureHeader)) {
		h.logger.Warn("webhook delivery with invalid signature rejected")
		return c.SendStatus(fiber.StatusForbidden)
	}

	envelope, err := webhook.ParseEnvelope(body)
	if err != nil {
		// Malformed payloads are acknowledged so the provider stops
		// re-delivering something that will never parse.
		h.logger.Warn("discarding unparseable webhook delivery", zap.Error(err))
		return c.SendStatus(fiber.StatusOK)
	}

	messages := envelope.InboundMessages()
	if len(messages) > 0 {
		correlationID := uuid.NewString()
		ctx := observability.WithCorrelationID(context.Background(), correlationID)
		logger := h.logger.With(zap.String("correlationId", correlationID))

		go func() {
			for _, msg := range messages {
				h.processor.ProcessMessage(ctx, msg)
			}
			logger.Debug("webhook delivery processed", zap.Int("messages", len(messages)))
		}()
	}

	return c.SendStatus(fiber.StatusOK)
}

func queryWithFallback(c *fiber.Ctx, key, fallback string) string {
	if value := c.Query(key); value != "" {
		return value
	}
	return c.Query(fallback)
}
