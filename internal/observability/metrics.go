package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the webhook and report flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	messagesProcessedTotal *prometheus.CounterVec
	duplicatesTotal        prometheus.Counter
	promptsSentTotal       prometheus.Counter
	mediaFetchedTotal      *prometheus.CounterVec
	journalAppendsTotal    *prometheus.CounterVec
	reportsBuiltTotal      *prometheus.CounterVec
	reportBuildDuration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sitelog",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "messages_processed_total",
				Help:      "Total number of inbound messages processed by type and resolved outcome.",
			},
			[]string{"type", "outcome"},
		),
		duplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "duplicate_messages_total",
				Help:      "Total number of re-delivered messages dropped by the dedup set.",
			},
		),
		promptsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "prompts_sent_total",
				Help:      "Total number of send-a-code prompts dispatched to senders.",
			},
		),
		mediaFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "media_fetched_total",
				Help:      "Total number of media downloads grouped by result.",
			},
			[]string{"result"},
		),
		journalAppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "journal_appends_total",
				Help:      "Total number of journal record appends grouped by result.",
			},
			[]string{"result"},
		),
		reportsBuiltTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitelog",
				Name:      "reports_built_total",
				Help:      "Total number of report builds grouped by result.",
			},
			[]string{"result"},
		),
		reportBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "sitelog",
				Name:      "report_build_duration_seconds",
				Help:      "Report build plus delivery duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesProcessedTotal,
		m.duplicatesTotal,
		m.promptsSentTotal,
		m.mediaFetchedTotal,
		m.journalAppendsTotal,
		m.reportsBuiltTotal,
		m.reportBuildDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageProcessed(messageType string, outcome string) {
	if m == nil {
		return
	}
	m.messagesProcessedTotal.WithLabelValues(normalizeLabel(messageType), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.duplicatesTotal.Inc()
}

func (m *Metrics) IncPromptSent() {
	if m == nil {
		return
	}
	m.promptsSentTotal.Inc()
}

func (m *Metrics) IncMediaFetched(result string) {
	if m == nil {
		return
	}
	m.mediaFetchedTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncJournalAppend(result string) {
	if m == nil {
		return
	}
	m.journalAppendsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) IncReportBuilt(result string) {
	if m == nil {
		return
	}
	m.reportsBuiltTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveReportBuildDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.reportBuildDuration.Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
