// Package service hosts the delivery orchestrator: the state machine that
// turns one proposal send request into per-cohort transport calls with a
// bounded escalation policy.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aix-dean/mailcourier/internal/assets"
	"github.com/aix-dean/mailcourier/internal/attachments"
	"github.com/aix-dean/mailcourier/internal/classify"
	"github.com/aix-dean/mailcourier/internal/compliance"
	"github.com/aix-dean/mailcourier/internal/directory"
	"github.com/aix-dean/mailcourier/internal/domain"
	"github.com/aix-dean/mailcourier/internal/observability"
	"github.com/aix-dean/mailcourier/internal/provider"
	"github.com/aix-dean/mailcourier/internal/ratelimit"
	"github.com/aix-dean/mailcourier/internal/repository"
	"github.com/aix-dean/mailcourier/internal/template"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// urgentSubjectPrefix marks the last-resort escalation retry so the recipient
// sees the message matters even when all styling has been stripped.
const urgentSubjectPrefix = "[Important] "

// SendCommand is one orchestrated delivery: the message itself plus optional
// enrichment handles resolved by the caller.
type SendCommand struct {
	Request    domain.SendRequest
	StoredRefs []attachments.StoredRef

	// CompanyID, when set, resolves branding from the company directory for
	// any Branding fields the request leaves empty.
	CompanyID string
}

// Deps collects the orchestrator's collaborators. Classifier, Limiter,
// Provider, and Attachments are required; everything else degrades gracefully
// when absent.
type Deps struct {
	Classifier  *classify.Classifier
	Limiter     ratelimit.RateLimiter
	Auditor     *compliance.Auditor
	Colors      *assets.ColorResolver
	Attachments *attachments.Processor
	Provider    provider.Provider
	Companies   directory.CompanyDirectory
	Users       directory.UserDirectory
	Deliveries  repository.DeliveryRepository
	Attempts    repository.AttemptRepository
	Metrics     *observability.Metrics
	Logger      *zap.Logger

	FromAddress       string
	SendingDomain     string
	ProposalLinkBase  string
	EscalationMarkers []string
}

type DeliveryService struct {
	classifier  *classify.Classifier
	limiter     ratelimit.RateLimiter
	auditor     *compliance.Auditor
	colors      *assets.ColorResolver
	attachments *attachments.Processor
	provider    provider.Provider
	companies   directory.CompanyDirectory
	users       directory.UserDirectory
	deliveries  repository.DeliveryRepository
	attempts    repository.AttemptRepository
	metrics     *observability.Metrics
	logger      *zap.Logger

	fromAddress       string
	sendingDomain     string
	proposalLinkBase  string
	escalationMarkers []string

	now func() time.Time
}

func NewDeliveryService(deps Deps) (*DeliveryService, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("transport provider is required")
	}
	if deps.Attachments == nil {
		return nil, fmt.Errorf("attachment processor is required")
	}
	if strings.TrimSpace(deps.FromAddress) == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &DeliveryService{
		classifier:        deps.Classifier,
		limiter:           deps.Limiter,
		auditor:           deps.Auditor,
		colors:            deps.Colors,
		attachments:       deps.Attachments,
		provider:          deps.Provider,
		companies:         deps.Companies,
		users:             deps.Users,
		deliveries:        deps.Deliveries,
		attempts:          deps.Attempts,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		fromAddress:       strings.TrimSpace(deps.FromAddress),
		sendingDomain:     strings.TrimSpace(deps.SendingDomain),
		proposalLinkBase:  deps.ProposalLinkBase,
		escalationMarkers: deps.EscalationMarkers,
		now:               time.Now,
	}, nil
}

// log returns the service logger enriched with the request's correlation id,
// when the context carries one.
func (s *DeliveryService) log(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(s.logger, ctx)
}

// Send runs the full pipeline for one request. Partial failure is reported
// through the result, not the error: Send returns a non-nil error only when
// nothing was attempted at all (validation, attachments) or when every
// recorded attempt was a rate-limit rejection.
func (s *DeliveryService) Send(ctx context.Context, cmd SendCommand) (*domain.DeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req := cmd.Request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	processed, err := s.attachments.Process(ctx, req.Attachments, cmd.StoredRefs)
	if err != nil {
		return nil, err
	}

	branding := s.resolveBranding(ctx, req, cmd.CompanyID)
	accent := s.resolveAccent(ctx, branding.CompanyLogoURL)

	sensitiveTo, standardTo := s.classifier.Partition(req.To)
	sensitiveCC, standardCC := s.classifier.Partition(req.CC)

	deliveryID := uuid.NewString()
	senderKey := strings.TrimSpace(req.ReplyTo)
	if senderKey == "" {
		senderKey = s.fromAddress
	}

	renderInput := template.Input{
		Subject:          req.Subject,
		Body:             req.Body,
		ProposalID:       req.ProposalID,
		ProposalLinkBase: s.proposalLinkBase,
		Branding:         branding,
		ReplyTo:          req.ReplyTo,
		AccentColor:      accent,
	}

	var (
		standardAttempts  []domain.DeliveryAttempt
		sensitiveAttempts []domain.DeliveryAttempt
		report            *compliance.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		standardAttempts = s.sendStandard(gctx, deliveryID, renderInput, req, standardTo, standardCC, processed)
		return nil
	})
	g.Go(func() error {
		sensitiveAttempts = s.sendSensitive(gctx, deliveryID, renderInput, req, sensitiveTo, sensitiveCC, processed, senderKey)
		return nil
	})
	g.Go(func() error {
		report = s.auditSendingDomain(gctx)
		return nil
	})
	_ = g.Wait()

	result := s.aggregate(deliveryID, standardAttempts, sensitiveAttempts, report)
	s.persist(ctx, req, result)

	if result.RateLimitedOnly() {
		return result, fmt.Errorf("%w: sender %q exceeded the sending window", domain.ErrRateLimited, senderKey)
	}
	return result, nil
}

// sendStandard is the single-attempt standard cohort send. Rich is already
// the primary tier for these providers, so there is no further fallback.
func (s *DeliveryService) sendStandard(
	ctx context.Context,
	deliveryID string,
	in template.Input,
	req domain.SendRequest,
	to []string,
	cc []string,
	atts []domain.Attachment,
) []domain.DeliveryAttempt {
	if len(to) == 0 && len(cc) == 0 {
		return nil
	}

	attempt := s.dispatch(ctx, deliveryID, domain.CohortStandard, domain.TierRich, 1, in, req.Subject, req.ReplyTo, to, cc, atts)
	return []domain.DeliveryAttempt{attempt}
}

// sendSensitive runs the rate check, the compatible-tier send, and at most
// one ultra-simple escalation retry.
func (s *DeliveryService) sendSensitive(
	ctx context.Context,
	deliveryID string,
	in template.Input,
	req domain.SendRequest,
	to []string,
	cc []string,
	atts []domain.Attachment,
	senderKey string,
) []domain.DeliveryAttempt {
	if len(to) == 0 && len(cc) == 0 {
		return nil
	}

	allowed, err := s.limiter.Allow(ctx, senderKey)
	if err != nil {
		// A broken limiter must not silently drop mail; proceed and log.
		s.log(ctx).Warn("rate limiter unavailable, allowing send",
			zap.String("deliveryId", deliveryID),
			zap.Error(err),
		)
		allowed = true
	}
	if !allowed {
		s.metrics.IncRateLimited(domain.AddressDomain(senderKey))
		s.log(ctx).Info("sensitive cohort rate limited",
			zap.String("deliveryId", deliveryID),
			zap.Int("recipients", len(to)+len(cc)),
		)
		errText := "sender rate limit exceeded"
		return []domain.DeliveryAttempt{{
			ID:             uuid.NewString(),
			DeliveryID:     deliveryID,
			Cohort:         domain.CohortSensitive,
			TemplateTier:   domain.TierCompatible,
			AttemptNumber:  1,
			Success:        false,
			RateLimited:    true,
			Error:          &errText,
			RecipientCount: len(to) + len(cc),
			CreatedAt:      s.now().UTC(),
		}}
	}

	first := s.dispatch(ctx, deliveryID, domain.CohortSensitive, domain.TierCompatible, 1, in, req.Subject, req.ReplyTo, to, cc, atts)
	attempts := []domain.DeliveryAttempt{first}
	if first.Success {
		return attempts
	}

	if !s.shouldEscalate(first) {
		return attempts
	}

	// Last resort: strip attachments and styling, flag the subject.
	escalated := in
	escalated.Subject = urgentSubjectPrefix + strings.TrimSpace(req.Subject)
	retry := s.dispatch(ctx, deliveryID, domain.CohortSensitive, domain.TierUltraSimple, 2,
		escalated, escalated.Subject, req.ReplyTo, to, cc, nil)
	s.metrics.IncEscalation(retry.Success)
	s.log(ctx).Info("sensitive cohort escalated",
		zap.String("deliveryId", deliveryID),
		zap.Bool("success", retry.Success),
	)

	return append(attempts, retry)
}

// dispatch renders one tier and makes one transport call, returning the
// recorded attempt.
func (s *DeliveryService) dispatch(
	ctx context.Context,
	deliveryID string,
	cohort domain.Cohort,
	tier domain.TemplateTier,
	attemptNumber int,
	in template.Input,
	subject string,
	replyTo string,
	to []string,
	cc []string,
	atts []domain.Attachment,
) domain.DeliveryAttempt {
	// The transport requires at least one To recipient; a cohort whose
	// members all arrived as copies still gets its own send.
	if len(to) == 0 {
		to, cc = cc, nil
	}

	attempt := domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		DeliveryID:     deliveryID,
		Cohort:         cohort,
		TemplateTier:   tier,
		AttemptNumber:  attemptNumber,
		RecipientCount: len(to) + len(cc),
		CreatedAt:      s.now().UTC(),
	}

	html, err := template.Render(tier, in)
	if err != nil {
		text := err.Error()
		attempt.Error = &text
		s.metrics.IncCohortSend(cohort.String(), tier.String(), false)
		return attempt
	}

	start := s.now()
	resp, err := s.provider.Send(ctx, provider.Email{
		From:        s.fromAddress,
		ReplyTo:     replyTo,
		To:          to,
		CC:          cc,
		Subject:     subject,
		HTMLBody:    html,
		Attachments: atts,
	})
	s.metrics.ObserveCohortSendDuration(cohort.String(), s.now().Sub(start))

	if err != nil {
		text := err.Error()
		attempt.Error = &text
		s.metrics.IncCohortSend(cohort.String(), tier.String(), false)
		s.log(ctx).Warn("cohort send failed",
			zap.String("deliveryId", deliveryID),
			zap.String("cohort", cohort.String()),
			zap.String("tier", tier.String()),
			zap.Int("attempt", attemptNumber),
			zap.Error(err),
		)
		return attempt
	}

	attempt.Success = true
	if resp != nil && resp.MessageID != "" {
		id := resp.MessageID
		attempt.ProviderMessageID = &id
	}
	s.metrics.IncCohortSend(cohort.String(), tier.String(), true)
	return attempt
}

func (s *DeliveryService) shouldEscalate(attempt domain.DeliveryAttempt) bool {
	if attempt.Error == nil {
		return false
	}
	return provider.IsFilterRejection(
		&provider.ProviderError{Message: *attempt.Error},
		s.escalationMarkers,
	)
}

func (s *DeliveryService) auditSendingDomain(ctx context.Context) *compliance.Report {
	if s.auditor == nil || s.sendingDomain == "" {
		return nil
	}

	report := s.auditor.Audit(ctx, s.sendingDomain)
	s.metrics.SetComplianceScore(report.Domain, report.Score)
	if len(report.Recommendations) > 0 {
		s.log(ctx).Info("sending domain audit",
			zap.String("domain", report.Domain),
			zap.Int("score", report.Score),
			zap.Strings("recommendations", report.Recommendations),
		)
	}
	return &report
}

func (s *DeliveryService) aggregate(
	deliveryID string,
	standard []domain.DeliveryAttempt,
	sensitive []domain.DeliveryAttempt,
	report *compliance.Report,
) *domain.DeliveryResult {
	result := &domain.DeliveryResult{DeliveryID: deliveryID}
	result.Attempts = append(result.Attempts, standard...)
	result.Attempts = append(result.Attempts, sensitive...)

	// Per-cohort recipient accounting: the final attempt decides a cohort's
	// outcome, so an escalation success is not double-counted as a failure.
	final := map[domain.Cohort]domain.DeliveryAttempt{}
	for _, attempt := range result.Attempts {
		if prev, ok := final[attempt.Cohort]; !ok || attempt.AttemptNumber > prev.AttemptNumber {
			final[attempt.Cohort] = attempt
		}
	}
	for _, attempt := range final {
		if attempt.Success {
			result.SucceededCount += attempt.RecipientCount
		} else {
			result.FailedCount += attempt.RecipientCount
		}
	}

	if report != nil {
		score := report.Score
		result.ComplianceScore = &score
	}
	return result
}

// persist writes the audit trail. Storage failures are logged, never
// surfaced: the mail already left (or didn't), and the caller's answer must
// reflect transport reality.
func (s *DeliveryService) persist(ctx context.Context, req domain.SendRequest, result *domain.DeliveryResult) {
	if s.deliveries == nil {
		return
	}

	var replyTo *string
	if trimmed := strings.TrimSpace(req.ReplyTo); trimmed != "" {
		replyTo = &trimmed
	}

	record := &domain.Delivery{
		ID:              result.DeliveryID,
		ProposalID:      req.ProposalID,
		Subject:         req.Subject,
		FromAddress:     s.fromAddress,
		ReplyTo:         replyTo,
		RecipientCount:  result.SucceededCount + result.FailedCount,
		SucceededCount:  result.SucceededCount,
		FailedCount:     result.FailedCount,
		OverallSuccess:  result.OverallSuccess(),
		ComplianceScore: result.ComplianceScore,
	}
	if err := s.deliveries.Create(ctx, record); err != nil {
		s.log(ctx).Error("failed to persist delivery",
			zap.String("deliveryId", result.DeliveryID),
			zap.Error(err),
		)
		return
	}

	if s.attempts != nil && len(result.Attempts) > 0 {
		batch := make([]*domain.DeliveryAttempt, 0, len(result.Attempts))
		for i := range result.Attempts {
			batch = append(batch, &result.Attempts[i])
		}
		if err := s.attempts.CreateBatch(ctx, batch); err != nil {
			s.log(ctx).Error("failed to persist delivery attempts",
				zap.String("deliveryId", result.DeliveryID),
				zap.Error(err),
			)
		}
	}
}

// resolveBranding fills empty Branding fields from the directories. Lookup
// failures degrade to whatever the request carried.
func (s *DeliveryService) resolveBranding(ctx context.Context, req domain.SendRequest, companyID string) domain.Branding {
	branding := req.Branding

	if s.companies != nil && strings.TrimSpace(companyID) != "" {
		company, err := s.companies.GetCompany(ctx, companyID)
		if err != nil {
			s.log(ctx).Debug("company lookup failed, using request branding",
				zap.String("companyId", companyID),
				zap.Error(err),
			)
		} else if company != nil {
			if branding.CompanyName == "" {
				branding.CompanyName = company.Name
			}
			if branding.CompanyWebsite == "" {
				branding.CompanyWebsite = company.Website
			}
			if branding.CompanyAddress == "" {
				branding.CompanyAddress = company.Address
			}
			if branding.CompanyLogoURL == "" {
				branding.CompanyLogoURL = company.LogoURL
			}
		}
	}

	if s.users != nil && branding.SenderName == "" && strings.TrimSpace(req.ReplyTo) != "" {
		user, err := s.users.GetUserByEmail(ctx, req.ReplyTo)
		if err != nil {
			s.log(ctx).Debug("user lookup failed, using request sender fields",
				zap.String("email", req.ReplyTo),
				zap.Error(err),
			)
		} else if user != nil {
			branding.SenderName = strings.TrimSpace(user.FirstName + " " + user.LastName)
			if branding.SenderTitle == "" {
				branding.SenderTitle = user.Title
			}
		}
	}

	return branding
}

func (s *DeliveryService) resolveAccent(ctx context.Context, logoURL string) string {
	if s.colors == nil {
		return ""
	}
	return s.colors.ResolveAccentColor(ctx, logoURL)
}

// GetDelivery loads one persisted delivery with its attempts.
func (s *DeliveryService) GetDelivery(ctx context.Context, id string) (*domain.Delivery, []domain.DeliveryAttempt, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	if s.deliveries == nil {
		return nil, nil, fmt.Errorf("%w: delivery storage is not configured", domain.ErrNotFound)
	}

	delivery, err := s.deliveries.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, nil, err
	}

	var attempts []domain.DeliveryAttempt
	if s.attempts != nil {
		attempts, err = s.attempts.GetByDeliveryID(ctx, delivery.ID)
		if err != nil {
			return nil, nil, err
		}
	}
	return delivery, attempts, nil
}

// ListDeliveries pages through the persisted audit trail.
func (s *DeliveryService) ListDeliveries(ctx context.Context, params repository.ListParams) ([]domain.Delivery, int64, error) {
	if s.deliveries == nil {
		return nil, 0, nil
	}
	return s.deliveries.List(ctx, params)
}

// AuditDomain exposes the compliance check for the standalone endpoint.
func (s *DeliveryService) AuditDomain(ctx context.Context, domainName string) (*compliance.Report, error) {
	if strings.TrimSpace(domainName) == "" {
		return nil, fmt.Errorf("%w: domain is required", domain.ErrValidation)
	}
	if s.auditor == nil {
		return nil, fmt.Errorf("compliance auditor is not configured")
	}
	report := s.auditor.Audit(ctx, domainName)
	s.metrics.SetComplianceScore(report.Domain, report.Score)
	return &report, nil
}
