package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aix-dean/mailcourier/internal/attachments"
	"github.com/aix-dean/mailcourier/internal/domain"
	"github.com/aix-dean/mailcourier/internal/repository"
	"github.com/aix-dean/mailcourier/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type DeliveryService interface {
	Send(ctx context.Context, cmd service.SendCommand) (*domain.DeliveryResult, error)
	GetDelivery(ctx context.Context, id string) (*domain.Delivery, []domain.DeliveryAttempt, error)
	ListDeliveries(ctx context.Context, params repository.ListParams) ([]domain.Delivery, int64, error)
}

type DeliveryHandler struct {
	service DeliveryService
}

func NewDeliveryHandler(service DeliveryService) (*DeliveryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &DeliveryHandler{service: service}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, service DeliveryService) error {
	h, err := NewDeliveryHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/deliveries", h.CreateDelivery)
	v1.Get("/deliveries/:id", h.GetDelivery)
	v1.Get("/deliveries", h.ListDeliveries)

	return nil
}

type brandingRequest struct {
	CompanyName    string `json:"companyName"`
	CompanyLogoURL string `json:"companyLogoUrl"`
	CompanyWebsite string `json:"companyWebsite"`
	CompanyAddress string `json:"companyAddress"`
	SenderName     string `json:"senderName"`
	SenderTitle    string `json:"senderTitle"`
}

type attachmentRequest struct {
	Filename string `json:"filename"`
	// Content is the base64-encoded file body.
	Content string `json:"content"`
}

type storedAttachmentRequest struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type createDeliveryRequest struct {
	To                []string                  `json:"to"`
	CC                []string                  `json:"cc"`
	ReplyTo           string                    `json:"replyTo"`
	Subject           string                    `json:"subject"`
	Body              string                    `json:"body"`
	ProposalID        string                    `json:"proposalId"`
	CompanyID         string                    `json:"companyId"`
	Branding          brandingRequest           `json:"branding"`
	Attachments       []attachmentRequest       `json:"attachments"`
	StoredAttachments []storedAttachmentRequest `json:"storedAttachments"`
}

type attemptResponse struct {
	Cohort            string  `json:"cohort"`
	TemplateTier      string  `json:"templateTier"`
	AttemptNumber     int     `json:"attemptNumber"`
	Success           bool    `json:"success"`
	RateLimited       bool    `json:"rateLimited,omitempty"`
	ProviderMessageID *string `json:"providerMessageId,omitempty"`
	Error             *string `json:"error,omitempty"`
	RecipientCount    int     `json:"recipientCount"`
}

type deliveryResponse struct {
	DeliveryID      string            `json:"deliveryId"`
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	DeliveryNote    string            `json:"deliveryNote"`
	SucceededCount  int               `json:"succeededCount"`
	FailedCount     int               `json:"failedCount"`
	ComplianceScore *int              `json:"complianceScore,omitempty"`
	Attempts        []attemptResponse `json:"attempts"`
}

type deliveryRecordResponse struct {
	ID              string            `json:"id"`
	ProposalID      string            `json:"proposalId"`
	Subject         string            `json:"subject"`
	FromAddress     string            `json:"fromAddress"`
	ReplyTo         *string           `json:"replyTo,omitempty"`
	RecipientCount  int               `json:"recipientCount"`
	SucceededCount  int               `json:"succeededCount"`
	FailedCount     int               `json:"failedCount"`
	OverallSuccess  bool              `json:"overallSuccess"`
	ComplianceScore *int              `json:"complianceScore,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	Attempts        []attemptResponse `json:"attempts,omitempty"`
}

type listDeliveriesResponse struct {
	Data []deliveryRecordResponse `json:"data"`
	Meta listMeta                 `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *DeliveryHandler) CreateDelivery(c *fiber.Ctx) error {
	var req createDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cmd, err := requestToSendCommand(req)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.Send(c.UserContext(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) && result != nil {
			// No transport call happened at all; surface the distinct kind
			// along with the recorded rate-limited attempt.
			return c.Status(fiber.StatusTooManyRequests).JSON(toDeliveryResponse(result, err.Error()))
		}
		return toHTTPError(err)
	}

	message := "delivered"
	if !result.OverallSuccess() {
		message = result.FirstError()
		if message == "" {
			message = "delivery failed"
		}
	} else if result.FailedCount > 0 {
		message = "delivered with partial failure"
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(result, message))
}

func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	delivery, attempts, err := h.service.GetDelivery(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryRecordResponse(delivery, attempts))
}

func (h *DeliveryHandler) ListDeliveries(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	deliveries, total, err := h.service.ListDeliveries(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]deliveryRecordResponse, 0, len(deliveries))
	for i := range deliveries {
		data = append(data, toDeliveryRecordResponse(&deliveries[i], nil))
	}

	return c.Status(fiber.StatusOK).JSON(listDeliveriesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:       c.QueryInt("page", defaultPage),
		PageSize:   c.QueryInt("pageSize", defaultPageSize),
		ProposalID: strings.TrimSpace(c.Query("proposalId")),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if raw := strings.TrimSpace(c.Query("success")); raw != "" {
		switch strings.ToLower(raw) {
		case "true":
			value := true
			params.OverallSuccess = &value
		case "false":
			value := false
			params.OverallSuccess = &value
		default:
			return repository.ListParams{}, fmt.Errorf("%w: success must be true or false", domain.ErrValidation)
		}
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func requestToSendCommand(req createDeliveryRequest) (service.SendCommand, error) {
	inline := make([]domain.Attachment, 0, len(req.Attachments))
	for _, item := range req.Attachments {
		content, err := base64.StdEncoding.DecodeString(item.Content)
		if err != nil {
			return service.SendCommand{}, fmt.Errorf("%w: attachment %q is not valid base64", domain.ErrValidation, item.Filename)
		}
		inline = append(inline, domain.Attachment{
			Filename: item.Filename,
			Content:  content,
		})
	}

	stored := make([]attachments.StoredRef, 0, len(req.StoredAttachments))
	for _, item := range req.StoredAttachments {
		if strings.TrimSpace(item.URL) == "" {
			return service.SendCommand{}, fmt.Errorf("%w: stored attachment %q has no url", domain.ErrValidation, item.Filename)
		}
		stored = append(stored, attachments.StoredRef{
			Filename: item.Filename,
			URL:      item.URL,
		})
	}

	return service.SendCommand{
		Request: domain.SendRequest{
			To:          trimAll(req.To),
			CC:          trimAll(req.CC),
			ReplyTo:     strings.TrimSpace(req.ReplyTo),
			Subject:     strings.TrimSpace(req.Subject),
			Body:        req.Body,
			Attachments: inline,
			ProposalID:  strings.TrimSpace(req.ProposalID),
			Branding: domain.Branding{
				CompanyName:    strings.TrimSpace(req.Branding.CompanyName),
				CompanyLogoURL: strings.TrimSpace(req.Branding.CompanyLogoURL),
				CompanyWebsite: strings.TrimSpace(req.Branding.CompanyWebsite),
				CompanyAddress: strings.TrimSpace(req.Branding.CompanyAddress),
				SenderName:     strings.TrimSpace(req.Branding.SenderName),
				SenderTitle:    strings.TrimSpace(req.Branding.SenderTitle),
			},
		},
		StoredRefs: stored,
		CompanyID:  strings.TrimSpace(req.CompanyID),
	}, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toDeliveryResponse(result *domain.DeliveryResult, message string) deliveryResponse {
	if result == nil {
		return deliveryResponse{Message: message, DeliveryNote: deliveryNote(nil)}
	}

	return deliveryResponse{
		DeliveryID:      result.DeliveryID,
		Success:         result.OverallSuccess(),
		Message:         message,
		DeliveryNote:    deliveryNote(result),
		SucceededCount:  result.SucceededCount,
		FailedCount:     result.FailedCount,
		ComplianceScore: result.ComplianceScore,
		Attempts:        toAttemptResponses(result.Attempts),
	}
}

// deliveryNote gives the caller guidance worth showing next to the outcome.
// Always populated, even on failure.
func deliveryNote(result *domain.DeliveryResult) string {
	if result == nil || len(result.Attempts) == 0 {
		return "No delivery was attempted."
	}
	if result.RateLimitedOnly() {
		return "The sender reached its sending window. Wait for the window to reset, then resend."
	}

	var sensitive, escalated bool
	for _, attempt := range result.Attempts {
		if attempt.Cohort == domain.CohortSensitive {
			sensitive = true
		}
		if attempt.TemplateTier == domain.TierUltraSimple {
			escalated = true
		}
	}

	switch {
	case escalated:
		return "Some recipients were reached with a simplified fallback message without attachments. Ask them to check the spam folder if it does not arrive."
	case sensitive:
		return "Recipients on consumer mail providers may see delayed delivery or spam-folder placement. Suggest they mark the sender as trusted."
	default:
		return "All recipients were addressed through the standard transport path."
	}
}

func toDeliveryRecordResponse(d *domain.Delivery, attempts []domain.DeliveryAttempt) deliveryRecordResponse {
	if d == nil {
		return deliveryRecordResponse{}
	}

	return deliveryRecordResponse{
		ID:              d.ID,
		ProposalID:      d.ProposalID,
		Subject:         d.Subject,
		FromAddress:     d.FromAddress,
		ReplyTo:         d.ReplyTo,
		RecipientCount:  d.RecipientCount,
		SucceededCount:  d.SucceededCount,
		FailedCount:     d.FailedCount,
		OverallSuccess:  d.OverallSuccess,
		ComplianceScore: d.ComplianceScore,
		CreatedAt:       d.CreatedAt,
		Attempts:        toAttemptResponses(attempts),
	}
}

func toAttemptResponses(attempts []domain.DeliveryAttempt) []attemptResponse {
	out := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, attemptResponse{
			Cohort:            attempt.Cohort.String(),
			TemplateTier:      attempt.TemplateTier.String(),
			AttemptNumber:     attempt.AttemptNumber,
			Success:           attempt.Success,
			RateLimited:       attempt.RateLimited,
			ProviderMessageID: attempt.ProviderMessageID,
			Error:             attempt.Error,
			RecipientCount:    attempt.RecipientCount,
		})
	}
	return out
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrAttachmentTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrEmptyAttachment), errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
