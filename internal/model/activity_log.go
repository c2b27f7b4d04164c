package model

// ActivityLog is one accepted progress event.
type ActivityLog struct {
	UUIDBase
	UserID   uint   `gorm:"index;not null" json:"userId"`
	Type     string `gorm:"size:40;not null" json:"type"`
	LessonID string `gorm:"size:100" json:"lessonId"`
	XP       int    `json:"xp"`
	Date     string `gorm:"size:10" json:"date"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
