package repository

import (
	"context"
	"errors"

	"desorientado_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

// List returns the curriculum in teaching order.
func (r *LessonRepository) List(ctx context.Context) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).Order("position ASC").Order("slug ASC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) Exists(ctx context.Context, slug string) (bool, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Select("slug").First(&lesson, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
