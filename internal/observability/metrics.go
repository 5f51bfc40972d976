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

// Metrics stores Prometheus collectors used by the API and delivery flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	cohortSendsTotal     *prometheus.CounterVec
	cohortSendDuration   *prometheus.HistogramVec
	escalationsTotal     *prometheus.CounterVec
	rateLimitedTotal     *prometheus.CounterVec
	complianceScoreGauge *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailcourier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mailcourier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		cohortSendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailcourier",
				Name:      "cohort_sends_total",
				Help:      "Total cohort send attempts by cohort, template tier, and outcome.",
			},
			[]string{"cohort", "tier", "outcome"},
		),
		cohortSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mailcourier",
				Name:      "cohort_send_duration_seconds",
				Help:      "Transport provider send duration in seconds grouped by cohort.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"cohort"},
		),
		escalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailcourier",
				Name:      "escalations_total",
				Help:      "Total template escalation retries for the sensitive cohort.",
			},
			[]string{"outcome"},
		),
		rateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailcourier",
				Name:      "rate_limited_total",
				Help:      "Total sensitive-cohort sends rejected by the sender rate limiter.",
			},
			[]string{"sender_domain"},
		),
		complianceScoreGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mailcourier",
				Name:      "compliance_score",
				Help:      "Last observed sending-domain authentication score (0-100).",
			},
			[]string{"domain"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.cohortSendsTotal,
		m.cohortSendDuration,
		m.escalationsTotal,
		m.rateLimitedTotal,
		m.complianceScoreGauge,
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

func (m *Metrics) IncCohortSend(cohort string, tier string, success bool) {
	if m == nil {
		return
	}
	m.cohortSendsTotal.WithLabelValues(normalizeLabel(cohort), normalizeLabel(tier), outcomeLabel(success)).Inc()
}

func (m *Metrics) ObserveCohortSendDuration(cohort string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.cohortSendDuration.WithLabelValues(normalizeLabel(cohort)).Observe(seconds)
}

func (m *Metrics) IncEscalation(success bool) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(outcomeLabel(success)).Inc()
}

func (m *Metrics) IncRateLimited(senderDomain string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(normalizeLabel(senderDomain)).Inc()
}

func (m *Metrics) SetComplianceScore(domain string, score int) {
	if m == nil {
		return
	}
	m.complianceScoreGauge.WithLabelValues(normalizeLabel(domain)).Set(float64(score))
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

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
