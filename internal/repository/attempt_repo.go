package repository

import (
	"context"

	"github.com/aix-dean/mailcourier/internal/domain"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	CreateBatch(ctx context.Context, attempts []*domain.DeliveryAttempt) error
	GetByDeliveryID(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) CreateBatch(ctx context.Context, attempts []*domain.DeliveryAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	models := make([]DeliveryAttemptModel, 0, len(attempts))
	for _, attempt := range attempts {
		if model := attemptModelFromDomain(attempt); model != nil {
			models = append(models, *model)
		}
	}

	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *GormAttemptRepo) GetByDeliveryID(ctx context.Context, deliveryID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Order("created_at ASC, attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
