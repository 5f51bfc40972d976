package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aix-dean/mailcourier/internal/compliance"
	"github.com/aix-dean/mailcourier/internal/domain"
	"github.com/aix-dean/mailcourier/internal/repository"
	"github.com/aix-dean/mailcourier/internal/service"
	"github.com/aix-dean/mailcourier/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestDeliveryIntegration_CreateDelivery(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		sendFn: func(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error) {
			if err := cmd.Request.Validate(); err != nil {
				return nil, err
			}
			if len(cmd.Request.Attachments) != 1 || string(cmd.Request.Attachments[0].Content) != "pdf-bytes" {
				t.Fatalf("attachments = %+v, want decoded pdf-bytes", cmd.Request.Attachments)
			}
			if cmd.CompanyID != "company-7" {
				t.Fatalf("companyId = %q, want company-7", cmd.CompanyID)
			}
			messageID := "msg-1"
			return &domain.DeliveryResult{
				DeliveryID:     "d-created",
				SucceededCount: 2,
				Attempts: []domain.DeliveryAttempt{
					{
						Cohort:            domain.CohortStandard,
						TemplateTier:      domain.TierRich,
						AttemptNumber:     1,
						Success:           true,
						ProviderMessageID: &messageID,
						RecipientCount:    2,
					},
				},
			}, nil
		},
	}

	app := newDeliveryTestApp(t, svc)

	content := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))
	validBody := fmt.Sprintf(`{
		"to": ["buyer@corp.example"],
		"cc": ["assistant@corp.example"],
		"replyTo": "rep@acme.example",
		"subject": "Proposal for Q3",
		"body": "Hello",
		"proposalId": "prop-42",
		"companyId": "company-7",
		"attachments": [{"filename": "proposal.pdf", "content": "%s"}]
	}`, content)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/deliveries", validBody)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["deliveryId"] != "d-created" {
		t.Fatalf("deliveryId = %v, want d-created", parsed["deliveryId"])
	}
	if parsed["success"] != true {
		t.Fatalf("success = %v, want true", parsed["success"])
	}
	note, ok := parsed["deliveryNote"].(string)
	if !ok || note == "" {
		t.Fatalf("deliveryNote = %v, want a non-empty string", parsed["deliveryNote"])
	}

	missingSubject := `{"to":["buyer@corp.example"],"subject":"","body":"Hello"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/deliveries", missingSubject)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing subject", resp.StatusCode)
	}

	badBase64 := `{"to":["buyer@corp.example"],"subject":"s","body":"b","attachments":[{"filename":"a.pdf","content":"%%%"}]}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/deliveries", badBase64)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid base64", resp.StatusCode)
	}
}

func TestDeliveryIntegration_CreateDeliveryRateLimited(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		sendFn: func(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error) {
			errText := "sender rate limit exceeded"
			result := &domain.DeliveryResult{
				DeliveryID:  "d-limited",
				FailedCount: 1,
				Attempts: []domain.DeliveryAttempt{
					{
						Cohort:         domain.CohortSensitive,
						TemplateTier:   domain.TierCompatible,
						AttemptNumber:  1,
						RateLimited:    true,
						Error:          &errText,
						RecipientCount: 1,
					},
				},
			}
			return result, fmt.Errorf("%w: sender exceeded the sending window", domain.ErrRateLimited)
		},
	}

	app := newDeliveryTestApp(t, svc)

	body := `{"to":["owner@gmail.com"],"subject":"Proposal","body":"Hello"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/deliveries", body)
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["success"] != false {
		t.Fatalf("success = %v, want false", parsed["success"])
	}
	note, ok := parsed["deliveryNote"].(string)
	if !ok || note == "" {
		t.Fatalf("deliveryNote = %v, want a non-empty string even on failure", parsed["deliveryNote"])
	}
	attempts, ok := parsed["attempts"].([]any)
	if !ok || len(attempts) != 1 {
		t.Fatalf("attempts = %v, want 1 recorded attempt", parsed["attempts"])
	}
}

func TestDeliveryIntegration_CreateDeliveryOversizeAttachment(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		sendFn: func(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error) {
			return nil, fmt.Errorf("%w: too big", domain.ErrAttachmentTooLarge)
		},
	}

	app := newDeliveryTestApp(t, svc)

	body := `{"to":["buyer@corp.example"],"subject":"s","body":"b"}`
	resp, _ := performRequest(t, app, http.MethodPost, "/v1/deliveries", body)
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestDeliveryIntegration_GetDelivery(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		getFn: func(ctx context.Context, id string) (*domain.Delivery, []domain.DeliveryAttempt, error) {
			if id != "d-found" {
				return nil, nil, domain.ErrNotFound
			}
			score := 100
			return &domain.Delivery{
					ID:              "d-found",
					ProposalID:      "prop-42",
					Subject:         "Proposal",
					FromAddress:     "noreply@acme.example",
					RecipientCount:  2,
					SucceededCount:  2,
					OverallSuccess:  true,
					ComplianceScore: &score,
					CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				}, []domain.DeliveryAttempt{
					{Cohort: domain.CohortStandard, TemplateTier: domain.TierRich, AttemptNumber: 1, Success: true, RecipientCount: 2},
				}, nil
		},
	}

	app := newDeliveryTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/deliveries/d-found", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["id"] != "d-found" {
		t.Fatalf("id = %v, want d-found", parsed["id"])
	}
	if parsed["complianceScore"] != float64(100) {
		t.Fatalf("complianceScore = %v, want 100", parsed["complianceScore"])
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/deliveries/not-exists", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeliveryIntegration_ListDeliveriesPaginationAndFilters(t *testing.T) {
	t.Parallel()

	svc := &stubDeliveryService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Delivery, int64, error) {
			if params.Page != 2 || params.PageSize != 10 {
				t.Fatalf("pagination = %d/%d, want 2/10", params.Page, params.PageSize)
			}
			if params.OverallSuccess == nil || *params.OverallSuccess != false {
				t.Fatalf("success filter = %v, want false", params.OverallSuccess)
			}
			if params.ProposalID != "prop-42" {
				t.Fatalf("proposalId filter = %q, want prop-42", params.ProposalID)
			}
			return []domain.Delivery{{ID: "d-1", ProposalID: "prop-42"}}, 1, nil
		},
	}

	app := newDeliveryTestApp(t, svc)

	path := "/v1/deliveries?page=2&pageSize=10&success=false&proposalId=prop-42"
	resp, body := performRequest(t, app, http.MethodGet, path, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Page     int   `json:"page"`
			PageSize int   `json:"pageSize"`
			Total    int64 `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Meta.Page != 2 || parsed.Meta.PageSize != 10 || parsed.Meta.Total != 1 {
		t.Fatalf("meta = %+v, want page=2,pageSize=10,total=1", parsed.Meta)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/deliveries?success=maybe", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid success filter", resp.StatusCode)
	}
}

func TestComplianceIntegration_AuditDomain(t *testing.T) {
	t.Parallel()

	svc := &stubComplianceService{
		auditFn: func(ctx context.Context, domainName string) (*compliance.Report, error) {
			if domainName != "acme.example" {
				t.Fatalf("domain = %q, want acme.example", domainName)
			}
			return &compliance.Report{
				Domain:       "acme.example",
				SPFPresent:   true,
				DMARCPresent: false,
				Score:        33,
				Recommendations: []string{
					"publish a DMARC policy at _dmarc.acme.example (start with p=none to monitor)",
				},
			}, nil
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterComplianceRoutes(app, svc); err != nil {
		t.Fatalf("RegisterComplianceRoutes() error = %v", err)
	}

	resp, body := performRequest(t, app, http.MethodGet, "/v1/compliance/acme.example", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed compliance.Report
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Score != 33 || !parsed.SPFPresent || parsed.DMARCPresent {
		t.Fatalf("report = %+v", parsed)
	}
}

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sql.OpenDB(stubConnector{}), nil)

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz tolerates missing redis", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when postgres down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

type stubDeliveryService struct {
	sendFn func(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error)
	getFn  func(ctx context.Context, id string) (*domain.Delivery, []domain.DeliveryAttempt, error)
	listFn func(ctx context.Context, params repository.ListParams) ([]domain.Delivery, int64, error)
}

func (s *stubDeliveryService) Send(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error) {
	if s.sendFn != nil {
		return s.sendFn(ctx, cmd)
	}
	return nil, errors.New("not implemented")
}

func (s *stubDeliveryService) GetDelivery(ctx context.Context, id string) (*domain.Delivery, []domain.DeliveryAttempt, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil, domain.ErrNotFound
}

func (s *stubDeliveryService) ListDeliveries(ctx context.Context, params repository.ListParams) ([]domain.Delivery, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

type stubComplianceService struct {
	auditFn func(ctx context.Context, domainName string) (*compliance.Report, error)
}

func (s *stubComplianceService) AuditDomain(ctx context.Context, domainName string) (*compliance.Report, error) {
	if s.auditFn != nil {
		return s.auditFn(ctx, domainName)
	}
	return nil, errors.New("not implemented")
}

func newDeliveryTestApp(t *testing.T, svc DeliveryService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterDeliveryRoutes(app, svc); err != nil {
		t.Fatalf("RegisterDeliveryRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c stubConn) Ping(context.Context) error {
	return c.pingErr
}
