package provider

import (
	"context"

	"github.com/aix-dean/mailcourier/internal/domain"
)

// Email is one fully-rendered transport call: a single HTML body for one
// recipient cohort. This subsystem never speaks SMTP itself; a Provider
// wraps an external transactional-email service.
type Email struct {
	From        string
	ReplyTo     string
	To          []string
	CC          []string
	Subject     string
	HTMLBody    string
	Attachments []domain.Attachment
}

// Provider is the outbound mail delivery port.
type Provider interface {
	Send(ctx context.Context, email Email) (*ProviderResponse, error)
}

// ProviderResponse stores provider call metadata for audit and persistence.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
