// Package template renders the three escalating HTML variants of a proposal
// message. The tiers trade visual fidelity for deliverability: rich for
// standard providers, compatible for filtering-sensitive ones, ultra-simple
// as the last-resort escalation. Rendering is pure: the same input always
// produces byte-identical markup.
package template

import (
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"

	"github.com/aix-dean/mailcourier/internal/domain"
)

const (
	defaultCompanyName = "Company"
	defaultSenderTitle = "Sales Executive"
	defaultAccentColor = "#2f6f9f"
)

// Input carries everything a tier needs. AccentColor may be empty; renderers
// fall back to the default palette.
type Input struct {
	Subject          string
	Body             string
	ProposalID       string
	ProposalLinkBase string
	Branding         domain.Branding
	ReplyTo          string
	AccentColor      string
}

// Render produces the HTML body for one tier.
func Render(tier domain.TemplateTier, in Input) (string, error) {
	view := newView(in)

	switch tier {
	case domain.TierRich:
		return renderTemplate(richTemplate, view)
	case domain.TierCompatible:
		return renderTemplate(compatibleTemplate, view)
	case domain.TierUltraSimple:
		return renderTemplate(ultraSimpleTemplate, view)
	default:
		return "", fmt.Errorf("%w: invalid template tier %q", domain.ErrValidation, tier)
	}
}

// view is the resolved template model with all defaults applied.
type view struct {
	Subject     string
	Paragraphs  [][]string
	Link        string
	CompanyName string
	Website     string
	Address     string
	LogoURL     string
	SenderName  string
	SenderTitle string
	ReplyTo     string
	Accent      string
	AccentDark  string
}

func newView(in Input) view {
	accent := strings.TrimSpace(in.AccentColor)
	if !isHexColor(accent) {
		accent = defaultAccentColor
	}

	companyName := strings.TrimSpace(in.Branding.CompanyName)
	if companyName == "" {
		companyName = defaultCompanyName
	}

	senderName := strings.TrimSpace(in.Branding.SenderName)
	if senderName == "" {
		senderName = companyName
	}

	senderTitle := strings.TrimSpace(in.Branding.SenderTitle)
	if senderTitle == "" {
		senderTitle = defaultSenderTitle
	}

	return view{
		Subject:     strings.TrimSpace(in.Subject),
		Paragraphs:  Paragraphs(in.Body),
		Link:        DeepLink(in.ProposalLinkBase, in.ProposalID),
		CompanyName: companyName,
		Website:     strings.TrimSpace(in.Branding.CompanyWebsite),
		Address:     strings.TrimSpace(in.Branding.CompanyAddress),
		LogoURL:     strings.TrimSpace(in.Branding.CompanyLogoURL),
		SenderName:  senderName,
		SenderTitle: senderTitle,
		ReplyTo:     strings.TrimSpace(in.ReplyTo),
		Accent:      accent,
		AccentDark:  darken(accent),
	}
}

// Paragraphs converts a plain-text body into paragraph blocks of trimmed
// lines. Blank lines delimit paragraphs (consecutive blanks collapse into a
// single break, leading and trailing blanks are dropped); line breaks inside
// a paragraph are kept, so no break the author typed is lost in the markup.
func Paragraphs(body string) [][]string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")

	var paragraphs [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, current)
			current = nil
		}
	}

	for _, line := range strings.Split(normalized, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	return paragraphs
}

// DeepLink builds the proposal tracking link.
func DeepLink(base string, proposalID string) string {
	trimmedBase := strings.TrimRight(strings.TrimSpace(base), "/")
	return trimmedBase + "/" + url.PathEscape(strings.TrimSpace(proposalID))
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// darken derives the second theme color from the accent.
func darken(hex string) string {
	var red, green, blue int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &red, &green, &blue); err != nil {
		return hex
	}
	return fmt.Sprintf("#%02x%02x%02x", red*2/3, green*2/3, blue*2/3)
}

func renderTemplate(t *htmltemplate.Template, data view) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return sb.String(), nil
}
