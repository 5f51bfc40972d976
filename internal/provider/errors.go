package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError carries the transport provider's rejection details.
type ProviderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsFilterRejection reports whether a provider error looks like a
// spam/domain-reputation block, which is the only failure shape worth an
// escalation retry with a simpler template. The marker vocabulary is
// configuration: the upstream provider's error wording is not contractually
// stable.
func IsFilterRejection(err error, markers []string) bool {
	if err == nil || len(markers) == 0 {
		return false
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return false
	}

	text := strings.ToLower(providerErr.Error())
	for _, marker := range markers {
		normalized := strings.ToLower(strings.TrimSpace(marker))
		if normalized == "" {
			continue
		}
		if strings.Contains(text, normalized) {
			return true
		}
	}
	return false
}
