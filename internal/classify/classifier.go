// Package classify splits recipient addresses into provider-sensitivity
// cohorts. Classification is a pure domain-set lookup; malformed addresses
// are rejected by request validation before they reach this package.
package classify

import (
	"strings"

	"github.com/aix-dean/mailcourier/internal/domain"
)

// Classifier assigns addresses to cohorts based on a configured set of
// filtering-sensitive mail domains.
type Classifier struct {
	sensitive map[string]struct{}
}

func NewClassifier(sensitiveDomains []string) *Classifier {
	set := make(map[string]struct{}, len(sensitiveDomains))
	for _, d := range sensitiveDomains {
		normalized := strings.ToLower(strings.TrimSpace(d))
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return &Classifier{sensitive: set}
}

// Classify returns the cohort for a single address. Addresses whose domain is
// not in the sensitive set, including ones with no parsable domain, land in
// the standard cohort.
func (c *Classifier) Classify(address string) domain.Cohort {
	if c == nil {
		return domain.CohortStandard
	}
	if _, ok := c.sensitive[domain.AddressDomain(address)]; ok {
		return domain.CohortSensitive
	}
	return domain.CohortStandard
}

// Partition groups addresses by cohort. Every input address lands in exactly
// one group; duplicates are collapsed, order is preserved otherwise.
func (c *Classifier) Partition(addresses []string) (sensitive []string, standard []string) {
	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		key := strings.ToLower(strings.TrimSpace(address))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if c.Classify(address) == domain.CohortSensitive {
			sensitive = append(sensitive, address)
		} else {
			standard = append(standard, address)
		}
	}
	return sensitive, standard
}
