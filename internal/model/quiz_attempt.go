package model

import "time"

type QuizAttempt struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index:idx_quiz_attempt_user_lesson;not null" json:"userId"`
	LessonID    string    `gorm:"size:100;index:idx_quiz_attempt_user_lesson;not null" json:"lessonId"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
