package repository

import (
	"time"

	"github.com/aix-dean/mailcourier/internal/domain"
)

// DeliveryModel is the persistence model for the deliveries table.
type DeliveryModel struct {
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

func (DeliveryModel) TableName() string {
	return "deliveries"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID                string              `gorm:"type:uuid;primaryKey"`
	DeliveryID        string              `gorm:"type:uuid;not null"`
	Cohort            domain.Cohort       `gorm:"type:varchar(10);not null"`
	TemplateTier      domain.TemplateTier `gorm:"type:varchar(15);not null"`
	AttemptNumber     int                 `gorm:"not null"`
	Success           bool                `gorm:"not null"`
	RateLimited       bool                `gorm:"not null;default:false"`
	ProviderMessageID *string             `gorm:"type:varchar(255)"`
	Error             *string             `gorm:"type:text"`
	RecipientCount    int                 `gorm:"not null"`
	CreatedAt         time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func deliveryModelFromDomain(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}

	return &DeliveryModel{
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
		UpdatedAt:       d.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:              m.ID,
		ProposalID:      m.ProposalID,
		Subject:         m.Subject,
		FromAddress:     m.FromAddress,
		ReplyTo:         m.ReplyTo,
		RecipientCount:  m.RecipientCount,
		SucceededCount:  m.SucceededCount,
		FailedCount:     m.FailedCount,
		OverallSuccess:  m.OverallSuccess,
		ComplianceScore: m.ComplianceScore,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:                a.ID,
		DeliveryID:        a.DeliveryID,
		Cohort:            a.Cohort,
		TemplateTier:      a.TemplateTier,
		AttemptNumber:     a.AttemptNumber,
		Success:           a.Success,
		RateLimited:       a.RateLimited,
		ProviderMessageID: a.ProviderMessageID,
		Error:             a.Error,
		RecipientCount:    a.RecipientCount,
		CreatedAt:         a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:                m.ID,
		DeliveryID:        m.DeliveryID,
		Cohort:            m.Cohort,
		TemplateTier:      m.TemplateTier,
		AttemptNumber:     m.AttemptNumber,
		Success:           m.Success,
		RateLimited:       m.RateLimited,
		ProviderMessageID: m.ProviderMessageID,
		Error:             m.Error,
		RecipientCount:    m.RecipientCount,
		CreatedAt:         m.CreatedAt,
	}
}
