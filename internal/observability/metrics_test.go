package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDeliveryCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncCohortSend("STANDARD", "RICH", true)
	metrics.IncCohortSend("sensitive", "compatible", false)
	metrics.ObserveCohortSendDuration("sensitive", 120*time.Millisecond)
	metrics.IncEscalation(true)
	metrics.IncRateLimited("acme.example")
	metrics.SetComplianceScore("acme.example", 67)

	if got := testutil.ToFloat64(metrics.cohortSendsTotal.WithLabelValues("standard", "rich", "success")); got != 1 {
		t.Fatalf("cohort_sends_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.cohortSendsTotal.WithLabelValues("sensitive", "compatible", "failure")); got != 1 {
		t.Fatalf("cohort_sends_total failure = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.escalationsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("escalations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.rateLimitedTotal.WithLabelValues("acme.example")); got != 1 {
		t.Fatalf("rate_limited_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.complianceScoreGauge.WithLabelValues("acme.example")); got != 67 {
		t.Fatalf("compliance_score = %v, want 67", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/healthz", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncCohortSend("standard", "rich", true)
	metrics.IncEscalation(false)
	metrics.IncRateLimited("")
	metrics.SetComplianceScore("", 0)
	metrics.ObserveCohortSendDuration("", -time.Second)
	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to default promhttp handler")
	}
}
