package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RedisURL          string `env:"REDIS_URL"`
	TransportEndpoint string `env:"TRANSPORT_ENDPOINT,required=true"`
	TransportAPIKey   string `env:"TRANSPORT_API_KEY"`

	SendingDomain    string `env:"SENDING_DOMAIN,required=true"`
	FromAddress      string `env:"FROM_ADDRESS,required=true"`
	ProposalLinkBase string `env:"PROPOSAL_LINK_BASE,default=https://app.example.com/proposals"`

	CompanyDirectoryURL string `env:"COMPANY_DIRECTORY_URL"`
	UserDirectoryURL    string `env:"USER_DIRECTORY_URL"`

	RateLimitWindowSec int   `env:"RATE_LIMIT_WINDOW_SEC,default=60"`
	RateLimitMax       int   `env:"RATE_LIMIT_MAX,default=5"`
	AttachmentMaxBytes int64 `env:"ATTACHMENT_MAX_BYTES,default=524288000"`

	SensitiveDomains  string `env:"SENSITIVE_DOMAINS,default=gmail.com;googlemail.com;yahoo.com;hotmail.com;outlook.com;live.com;aol.com;icloud.com"`
	EscalationMarkers string `env:"ESCALATION_MARKERS,default=domain;spam;blocked;rejected"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// SensitiveDomainList returns the configured filtering-sensitive domains,
// lower-cased with empty entries dropped.
func (c *Config) SensitiveDomainList() []string {
	return splitList(c.SensitiveDomains)
}

// EscalationMarkerList returns the provider error substrings that trigger a
// template escalation retry for the sensitive cohort.
func (c *Config) EscalationMarkerList() []string {
	return splitList(c.EscalationMarkers)
}

// splitList accepts semicolon- or comma-separated values.
func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
