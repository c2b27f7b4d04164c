package model

import "time"

// ProgressDocument stores one learner's progress record as JSON. The
// numeric columns duplicate values from Data so rankings and dashboards
// can be answered without decoding every document.
type ProgressDocument struct {
	UserID         uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Data           string    `gorm:"type:text;not null" json:"-"`
	XP             int       `gorm:"index;default:0" json:"xp"`
	StreakCurrent  int       `gorm:"default:0" json:"streakCurrent"`
	StreakLongest  int       `gorm:"default:0" json:"streakLongest"`
	CompletedCount int       `gorm:"default:0" json:"completedCount"`
	UpdatedAt      time.Time `gorm:"index" json:"updatedAt"`
}

func (ProgressDocument) TableName() string {
	return "progress_documents"
}
