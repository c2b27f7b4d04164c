package repository

import (
	"context"
	"errors"
	"time"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/progress"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository is the document store for progress records.
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Load returns the stored record, or the default record and found=false
// when the learner has none yet.
func (r *ProgressRepository) Load(ctx context.Context, userID uint) (progress.Progress, bool, error) {
	var doc model.ProgressDocument
	err := r.DB.WithContext(ctx).First(&doc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return progress.Default(), false, nil
	}
	if err != nil {
		return progress.Default(), false, err
	}
	return progress.Decode([]byte(doc.Data)), true, nil
}

func (r *ProgressRepository) Save(ctx context.Context, userID uint, p progress.Progress) error {
	data, err := progress.Encode(p)
	if err != nil {
		return err
	}

	doc := model.ProgressDocument{
		UserID:         userID,
		Data:           string(data),
		XP:             p.XP,
		StreakCurrent:  p.Streak.Current,
		StreakLongest:  p.Streak.Longest,
		CompletedCount: len(p.CompletedLessons),
		UpdatedAt:      time.Now().UTC(),
	}

	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "xp", "streak_current", "streak_longest", "completed_count", "updated_at"}),
	}).Create(&doc).Error
}

// TopByXP returns the summary rows ordered for the leaderboard. Documents
// of disabled or missing users are excluded before the limit applies.
func (r *ProgressRepository) TopByXP(ctx context.Context, limit int) ([]model.ProgressDocument, error) {
	var docs []model.ProgressDocument
	err := r.DB.WithContext(ctx).
		Select("progress_documents.user_id", "progress_documents.xp", "progress_documents.streak_current",
			"progress_documents.streak_longest", "progress_documents.completed_count", "progress_documents.updated_at").
		Joins("JOIN users ON users.id = progress_documents.user_id AND users.disabled = ?", false).
		Order("progress_documents.xp DESC").Order("progress_documents.user_id ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// XPValues returns every learner's XP, for aggregate views.
func (r *ProgressRepository) XPValues(ctx context.Context) ([]int, error) {
	var xp []int
	err := r.DB.WithContext(ctx).Model(&model.ProgressDocument{}).Pluck("xp", &xp).Error
	return xp, err
}

// Each visits every stored document in batches of size.
func (r *ProgressRepository) Each(ctx context.Context, size int, fn func(doc model.ProgressDocument) error) error {
	var batch []model.ProgressDocument
	var fnErr error
	res := r.DB.WithContext(ctx).Order("user_id").FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		for _, doc := range batch {
			if fnErr = fn(doc); fnErr != nil {
				return fnErr
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	return res.Error
}
