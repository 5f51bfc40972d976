package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Branding carries the company and sender fields used for template theming.
// All fields except CompanyName and SenderName are optional; renderers fall
// back to neutral defaults when they are empty.
type Branding struct {
	CompanyName    string
	CompanyLogoURL string
	CompanyWebsite string
	CompanyAddress string
	SenderName     string
	SenderTitle    string
}

// Attachment is a single named binary attached to a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// SendRequest is the immutable input to the delivery pipeline: one logical
// message that may fan out into multiple cohort sends.
type SendRequest struct {
	To          []string
	CC          []string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
	Branding    Branding
	ProposalID  string
}

func (r *SendRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is required", ErrValidation)
	}
	if len(r.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}

	for _, address := range r.To {
		if err := ValidateAddress(address); err != nil {
			return err
		}
	}
	for _, address := range r.CC {
		if err := ValidateAddress(address); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.ReplyTo) != "" {
		if err := ValidateAddress(r.ReplyTo); err != nil {
			return err
		}
	}

	return nil
}

// ValidateAddress checks that an address is a bare, syntactically valid
// local@domain form.
func ValidateAddress(address string) error {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return fmt.Errorf("%w: empty recipient address", ErrValidation)
	}

	parsed, err := mail.ParseAddress(trimmed)
	if err != nil {
		return fmt.Errorf("%w: invalid address %q", ErrValidation, address)
	}
	// Reject display-name forms; the pipeline works on bare addresses.
	if parsed.Address != trimmed {
		return fmt.Errorf("%w: invalid address %q", ErrValidation, address)
	}
	if AddressDomain(trimmed) == "" {
		return fmt.Errorf("%w: invalid address %q", ErrValidation, address)
	}

	return nil
}

// AddressDomain returns the lower-cased domain part of an address, or ""
// when the address has no domain.
func AddressDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}
