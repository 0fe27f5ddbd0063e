package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/observability"
	"github.com/alexkrista/whatsapp-webhook/internal/provider"
)

const reportBuildConcurrency = 4

// ReportBuilder renders one (site, day) journal into a document.
type ReportBuilder interface {
	Build(siteCode string, day time.Time) ([]byte, error)
}

// SiteLister enumerates sites with a journal for a given day.
type SiteLister interface {
	SitesForDay(day time.Time) ([]string, error)
}

// ReportService builds day reports and emails them to the fixed recipient.
// Delivery failures are logged per site and never retried.
type ReportService struct {
	builder ReportBuilder
	sites   SiteLister
	mailer  provider.Mailer
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewReportService(builder ReportBuilder, sites SiteLister, mailer provider.Mailer, logger *zap.Logger) (*ReportService, error) {
	if builder == nil {
		return nil, fmt.Errorf("report builder is required")
	}
	if sites == nil {
		return nil, fmt.Errorf("site lister is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReportService{
		builder: builder,
		sites:   sites,
		mailer:  mailer,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (s *ReportService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// RunDay builds and mails one report per site that has a journal for the
// given day. One site failing does not stop the others.
func (s *ReportService) RunDay(ctx context.Context, day time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sites, err := s.sites.SitesForDay(day)
	if err != nil {
		return fmt.Errorf("failed to list sites for %s: %w", day.UTC().Format("2006-01-02"), err)
	}
	if len(sites) == 0 {
		s.logger.Info("no journals for day, skipping report run",
			zap.String("day", day.UTC().Format("2006-01-02")),
		)
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(reportBuildConcurrency)
	for _, siteCode := range sites {
		g.Go(func() error {
			if err := s.RunSite(groupCtx, siteCode, day); err != nil {
				s.logger.Error("report run failed for site",
					zap.String("siteCode", siteCode),
					zap.String("day", day.UTC().Format("2006-01-02")),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunSite builds and mails the report for a single (site, day). A day with no
// journal yields domain.ErrNotFound.
func (s *ReportService) RunSite(ctx context.Context, siteCode string, day time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dayName := day.UTC().Format("2006-01-02")
	start := s.now()

	pdf, err := s.builder.Build(siteCode, day)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.metrics.IncReportBuilt("error")
		}
		return fmt.Errorf("failed to build report for site %s: %w", siteCode, err)
	}

	subject := fmt.Sprintf("Tagesbericht Baustelle %s - %s", siteCode, dayName)
	body := fmt.Sprintf("Tagesbericht für Baustelle %s am %s im Anhang.", siteCode, dayName)
	attachmentName := fmt.Sprintf("bericht_%s_%s.pdf", siteCode, dayName)

	if err := s.mailer.SendReport(ctx, subject, body, attachmentName, pdf); err != nil {
		s.metrics.IncReportBuilt("mail_error")
		return fmt.Errorf("failed to mail report for site %s: %w", siteCode, err)
	}

	s.metrics.IncReportBuilt("ok")
	s.metrics.ObserveReportBuildDuration(s.now().Sub(start))
	s.logger.Info("report delivered",
		zap.String("siteCode", siteCode),
		zap.String("day", dayName),
		zap.Int("pdfBytes", len(pdf)),
	)
	return nil
}
