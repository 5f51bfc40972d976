package domain

import (
	"fmt"
	"strings"
	"time"
)

// Cohort identifies the provider-sensitivity group a recipient belongs to.
type Cohort string

const (
	CohortStandard  Cohort = "STANDARD"
	CohortSensitive Cohort = "SENSITIVE"
)

func (c Cohort) String() string { return string(c) }

func (c Cohort) IsValid() bool {
	switch c {
	case CohortStandard, CohortSensitive:
		return true
	}
	return false
}

func ParseCohortFromString(s string) (Cohort, error) {
	c := Cohort(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid cohort %q", ErrValidation, s)
	}
	return c, nil
}

// TemplateTier identifies one of the three decreasing-fidelity renderings.
type TemplateTier string

const (
	TierRich        TemplateTier = "RICH"
	TierCompatible  TemplateTier = "COMPATIBLE"
	TierUltraSimple TemplateTier = "ULTRA_SIMPLE"
)

func (t TemplateTier) String() string { return string(t) }

func (t TemplateTier) IsValid() bool {
	switch t {
	case TierRich, TierCompatible, TierUltraSimple:
		return true
	}
	return false
}

// DeliveryAttempt records one transport call for one cohort. A cohort gets at
// most two attempts: the initial send plus a single escalation retry.
type DeliveryAttempt struct {
	ID                string       `gorm:"type:uuid;primaryKey"`
	DeliveryID        string       `gorm:"type:uuid;not null"`
	Cohort            Cohort       `gorm:"type:varchar(10);not null"`
	TemplateTier      TemplateTier `gorm:"type:varchar(15);not null"`
	AttemptNumber     int          `gorm:"not null"`
	Success           bool         `gorm:"not null"`
	RateLimited       bool         `gorm:"not null;default:false"`
	ProviderMessageID *string      `gorm:"type:varchar(255)"`
	Error             *string      `gorm:"type:text"`
	RecipientCount    int          `gorm:"not null"`
	CreatedAt         time.Time
}

// Delivery is the persisted audit record for one orchestrated send.
type Delivery struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	ProposalID      string  `gorm:"type:varchar(64);not null"`
	Subject         string  `gorm:"type:text;not null"`
	FromAddress     string  `gorm:"type:varchar(255);not null"`
	ReplyTo         *string `gorm:"type:varchar(255)"`
	RecipientCount  int     `gorm:"not null"`
	SucceededCount  int     `gorm:"not null"`
	FailedCount     int     `gorm:"not null"`
	OverallSuccess  bool    `gorm:"not null"`
	ComplianceScore *int    `gorm:"type:int"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DeliveryResult is the aggregate outcome returned to the caller. Attempts
// are ordered as they happened; partial failure is never collapsed into a
// single boolean.
type DeliveryResult struct {
	DeliveryID      string
	Attempts        []DeliveryAttempt
	SucceededCount  int
	FailedCount     int
	ComplianceScore *int
}

// OverallSuccess reports whether at least one attempt succeeded.
func (r *DeliveryResult) OverallSuccess() bool {
	if r == nil {
		return false
	}
	for _, attempt := range r.Attempts {
		if attempt.Success {
			return true
		}
	}
	return false
}

// RateLimitedOnly reports whether every recorded attempt was a rate-limit
// rejection, meaning no transport call was made at all.
func (r *DeliveryResult) RateLimitedOnly() bool {
	if r == nil || len(r.Attempts) == 0 {
		return false
	}
	for _, attempt := range r.Attempts {
		if !attempt.RateLimited {
			return false
		}
	}
	return true
}

// FirstError returns the first failed attempt's error text, if any.
func (r *DeliveryResult) FirstError() string {
	if r == nil {
		return ""
	}
	for _, attempt := range r.Attempts {
		if !attempt.Success && attempt.Error != nil {
			return *attempt.Error
		}
	}
	return ""
}
