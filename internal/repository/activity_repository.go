package repository

import (
	"context"

	"desorientado_backend/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.DB.WithContext(ctx).Create(log).Error
}

func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ActiveLearnersOn counts distinct learners with activity on date.
func (r *ActivityRepository) ActiveLearnersOn(ctx context.Context, date string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.ActivityLog{}).
		Where("date = ?", date).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}
