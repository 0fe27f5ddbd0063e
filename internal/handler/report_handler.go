package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
)

const adminSecretHeader = "X-Admin-Secret"

// ReportRunner builds and mails day reports on demand.
type ReportRunner interface {
	RunDay(ctx context.Context, day time.Time) error
	RunSite(ctx context.Context, siteCode string, day time.Time) error
}

type ReportHandler struct {
	runner      ReportRunner
	adminSecret string
	logger      *zap.Logger
}

func NewReportHandler(runner ReportRunner, adminSecret string, logger *zap.Logger) (*ReportHandler, error) {
	if runner == nil {
		return nil, fmt.Errorf("report runner is required")
	}
	if strings.TrimSpace(adminSecret) == "" {
		return nil, fmt.Errorf("admin secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReportHandler{runner: runner, adminSecret: adminSecret, logger: logger}, nil
}

func RegisterReportRoutes(router fiber.Router, runner ReportRunner, adminSecret string, logger *zap.Logger) error {
	h, err := NewReportHandler(runner, adminSecret, logger)
	if err != nil {
		return err
	}

	router.Group("/v1").Post("/reports/run", h.RunReport)
	return nil
}

type runReportRequest struct {
	SiteCode string `json:"siteCode"`
	Date     string `json:"date"`
}

// RunReport triggers a report build for one site, or for every site with a
// journal on the given date when no site code is sent.
func (h *ReportHandler) RunReport(c *fiber.Ctx) error {
	if subtle.ConstantTimeCompare([]byte(c.Get(adminSecretHeader)), []byte(h.adminSecret)) != 1 {
		h.logger.Warn("report run with invalid admin secret rejected")
		return fiber.NewError(fiber.StatusForbidden, "invalid admin secret")
	}

	var req runReportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	day, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return toHTTPError(fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrValidation))
	}

	siteCode := strings.TrimSpace(req.SiteCode)
	if siteCode != "" {
		if err := h.runner.RunSite(c.Context(), siteCode, day); err != nil {
			return toHTTPError(err)
		}
	} else {
		if err := h.runner.RunDay(c.Context(), day); err != nil {
			return toHTTPError(err)
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"date":     day.Format("2006-01-02"),
		"siteCode": siteCode,
		"status":   "completed",
	})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
