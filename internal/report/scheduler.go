package report

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultCronSpec = "0 6 * * *"

// DayRunner builds and delivers the reports for one calendar day.
type DayRunner interface {
	RunDay(ctx context.Context, day time.Time) error
}

// Scheduler triggers the day runner on a cron schedule, building the previous
// day's reports so a day's journal is complete before it is rendered.
type Scheduler struct {
	runner DayRunner
	cron   *cron.Cron
	spec   string
	logger *zap.Logger
	now    func() time.Time
}

func NewScheduler(runner DayRunner, spec string, logger *zap.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("day runner is required")
	}
	if spec == "" {
		spec = defaultCronSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		runner: runner,
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		day := s.now().UTC().AddDate(0, 0, -1)
		if err := s.runner.RunDay(ctx, day); err != nil {
			s.logger.Error("scheduled report run failed",
				zap.String("day", day.Format("2006-01-02")),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register report cron job: %w", err)
	}

	s.cron.Start()

	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
	}()

	return nil
}
