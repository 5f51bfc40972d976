// Package compliance scores a sending domain's authentication posture via
// best-effort DNS lookups. Reports are advisory: they are logged and stored
// for operator visibility and never gate or delay a send.
package compliance

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	spfScore   = 33
	dkimScore  = 33
	dmarcScore = 34

	defaultLookupTimeout = 3 * time.Second
)

// Report describes the authentication posture of one sending domain.
type Report struct {
	Domain          string   `json:"domain"`
	SPFPresent      bool     `json:"spfPresent"`
	DMARCPresent    bool     `json:"dmarcPresent"`
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// Resolver is the DNS lookup dependency; *net.Resolver satisfies it.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

type Auditor struct {
	resolver Resolver
	logger   *zap.Logger
	timeout  time.Duration
}

func NewAuditor(resolver Resolver, logger *zap.Logger) *Auditor {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Auditor{
		resolver: resolver,
		logger:   logger,
		timeout:  defaultLookupTimeout,
	}
}

// Audit checks SPF and DMARC records for a domain. The two lookups fail
// independently: a DNS error on one degrades that check to "not verified"
// with a recommendation instead of aborting the other.
func (a *Auditor) Audit(ctx context.Context, domainName string) Report {
	report := Report{Domain: strings.ToLower(strings.TrimSpace(domainName))}
	if report.Domain == "" {
		report.Recommendations = append(report.Recommendations, "configure a sending domain before auditing")
		return report
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report.SPFPresent = a.hasRecord(ctx, report.Domain, "v=spf1")
	if report.SPFPresent {
		report.Score += spfScore
	} else {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("publish an SPF TXT record on %s authorizing your transactional provider", report.Domain))
	}

	report.DMARCPresent = a.hasRecord(ctx, "_dmarc."+report.Domain, "v=dmarc1")
	if report.DMARCPresent {
		report.Score += dmarcScore
	} else {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("publish a DMARC policy at _dmarc.%s (start with p=none to monitor)", report.Domain))
	}

	// DKIM selectors are provider-specific and not discoverable by a generic
	// lookup; assume keys are in place when both published records are.
	if report.SPFPresent && report.DMARCPresent {
		report.Score += dkimScore
	} else {
		report.Recommendations = append(report.Recommendations,
			"verify DKIM signing is enabled for your transactional provider")
	}

	return report
}

func (a *Auditor) hasRecord(ctx context.Context, name string, prefix string) bool {
	records, err := a.resolver.LookupTXT(ctx, name)
	if err != nil {
		a.logger.Debug("txt lookup failed",
			zap.String("name", name),
			zap.Error(err),
		)
		return false
	}

	for _, record := range records {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(record)), prefix) {
			return true
		}
	}
	return false
}
