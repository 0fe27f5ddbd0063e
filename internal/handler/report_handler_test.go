package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/transport"
)

type fakeReportRunner struct {
	dayRuns  []time.Time
	siteRuns []string
	siteErr  error
}

func (f *fakeReportRunner) RunDay(_ context.Context, day time.Time) error {
	f.dayRuns = append(f.dayRuns, day)
	return nil
}

func (f *fakeReportRunner) RunSite(_ context.Context, siteCode string, _ time.Time) error {
	if f.siteErr != nil {
		return f.siteErr
	}
	f.siteRuns = append(f.siteRuns, siteCode)
	return nil
}

func newReportApp(t *testing.T, runner ReportRunner) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterReportRoutes(app, runner, "admin-secret", zap.NewNop()); err != nil {
		t.Fatalf("RegisterReportRoutes: %v", err)
	}
	return app
}

func postReport(t *testing.T, app *fiber.App, secret, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/v1/reports/run", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set(adminSecretHeader, secret)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestRunReportForSingleSite(t *testing.T) {
	t.Parallel()

	runner := &fakeReportRunner{}
	app := newReportApp(t, runner)

	status := postReport(t, app, "admin-secret", `{"siteCode":"260016","date":"2026-08-30"}`)
	if status != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", status)
	}
	if len(runner.siteRuns) != 1 || runner.siteRuns[0] != "260016" {
		t.Fatalf("site runs = %v", runner.siteRuns)
	}
}

func TestRunReportForWholeDay(t *testing.T) {
	t.Parallel()

	runner := &fakeReportRunner{}
	app := newReportApp(t, runner)

	status := postReport(t, app, "admin-secret", `{"date":"2026-08-30"}`)
	if status != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", status)
	}
	if len(runner.dayRuns) != 1 {
		t.Fatalf("day runs = %v", runner.dayRuns)
	}
	if want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC); !runner.dayRuns[0].Equal(want) {
		t.Fatalf("day = %v, want %v", runner.dayRuns[0], want)
	}
}

func TestRunReportRejectsBadSecret(t *testing.T) {
	t.Parallel()

	runner := &fakeReportRunner{}
	app := newReportApp(t, runner)

	if status := postReport(t, app, "wrong", `{"date":"2026-08-30"}`); status != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if status := postReport(t, app, "", `{"date":"2026-08-30"}`); status != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403 without secret", status)
	}
	if len(runner.dayRuns)+len(runner.siteRuns) != 0 {
		t.Fatal("runner must not run without a valid secret")
	}
}

func TestRunReportRejectsBadDate(t *testing.T) {
	t.Parallel()

	app := newReportApp(t, &fakeReportRunner{})

	if status := postReport(t, app, "admin-secret", `{"date":"30.08.2026"}`); status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if status := postReport(t, app, "admin-secret", `{}`); status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing date", status)
	}
}

func TestRunReportMissingJournal(t *testing.T) {
	t.Parallel()

	runner := &fakeReportRunner{siteErr: fmt.Errorf("%w: no journal", domain.ErrNotFound)}
	app := newReportApp(t, runner)

	if status := postReport(t, app, "admin-secret", `{"siteCode":"999999","date":"2026-08-30"}`); status != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}
