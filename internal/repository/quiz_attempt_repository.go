package repository

import (
	"context"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// Add records an attempt and prunes the lesson's history to limit rows.
func (r *QuizAttemptRepository) Add(ctx context.Context, userID uint, lessonID string, a progress.QuizAttempt, limit int) error {
	if limit <= 0 {
		limit = progress.DefaultHistoryCap
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := model.QuizAttempt{
			UserID:      userID,
			LessonID:    lessonID,
			Score:       a.Score,
			Total:       a.Total,
			AttemptedAt: a.Timestamp.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var keep []uint
		err := tx.Model(&model.QuizAttempt{}).
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			Order("attempted_at DESC").Order("id DESC").
			Limit(limit).
			Pluck("id", &keep).Error
		if err != nil {
			return err
		}

		return tx.Where("user_id = ? AND lesson_id = ? AND id NOT IN ?", userID, lessonID, keep).
			Delete(&model.QuizAttempt{}).Error
	})
}

// History returns every lesson's attempts, oldest first.
func (r *QuizAttemptRepository) History(ctx context.Context, userID uint) (progress.QuizHistory, error) {
	var rows []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attempted_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	h := progress.QuizHistory{}
	for _, row := range rows {
		h[row.LessonID] = append(h[row.LessonID], progress.QuizAttempt{
			Score:     row.Score,
			Total:     row.Total,
			Timestamp: row.AttemptedAt,
		})
	}
	return h, nil
}

func (r *QuizAttemptRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.QuizAttempt{}).Error
}
