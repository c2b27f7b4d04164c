// Package progress holds the learner progress record and the pure
// functions that move it forward: XP accounting, streaks, levels and
// review scheduling. Nothing in here performs I/O.
package progress

import (
	"errors"
	"slices"
	"time"
)

// DateFormat is the calendar date layout used for every date in a record.
const DateFormat = "2006-01-02"

var (
	ErrInvalidLesson = errors.New("lesson id is required")
	ErrInvalidQuiz   = errors.New("quiz score must be within 0..total and total must be positive")
	ErrInvalidDate   = errors.New("date must be formatted as YYYY-MM-DD")
)

// QuizScore is the latest quiz summary kept for a lesson.
type QuizScore struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Valid reports whether the summary can be trusted by consumers.
func (q QuizScore) Valid() bool {
	return q.Total > 0 && q.Score >= 0 && q.Score <= q.Total
}

// Accuracy returns score/total, or 0 for an invalid summary.
func (q QuizScore) Accuracy() float64 {
	if !q.Valid() {
		return 0
	}
	return float64(q.Score) / float64(q.Total)
}

type Streak struct {
	Current  int    `json:"current"`
	Longest  int    `json:"longest"`
	LastDate string `json:"lastDate"`
}

// Progress is the per-learner record. The zero value is not ready for
// use; start from Default.
type Progress struct {
	CompletedLessons []string             `json:"completedLessons"`
	QuizResults      map[string]QuizScore `json:"quizResults"`
	Favorites        []string             `json:"favorites"`
	XP               int                  `json:"xp"`
	Streak           Streak               `json:"streak"`
	LastStudied      map[string]string    `json:"lastStudied"`
}

// Default returns the empty record a learner starts with.
func Default() Progress {
	return Progress{
		CompletedLessons: []string{},
		QuizResults:      map[string]QuizScore{},
		Favorites:        []string{},
		LastStudied:      map[string]string{},
	}
}

// Clone returns a deep copy so transformations never alias the input.
func (p Progress) Clone() Progress {
	out := Progress{
		CompletedLessons: append([]string{}, p.CompletedLessons...),
		QuizResults:      make(map[string]QuizScore, len(p.QuizResults)),
		Favorites:        append([]string{}, p.Favorites...),
		XP:               p.XP,
		Streak:           p.Streak,
		LastStudied:      make(map[string]string, len(p.LastStudied)),
	}
	for k, v := range p.QuizResults {
		out.QuizResults[k] = v
	}
	for k, v := range p.LastStudied {
		out.LastStudied[k] = v
	}
	return out
}

func (p Progress) IsCompleted(lessonID string) bool {
	return slices.Contains(p.CompletedLessons, lessonID)
}

func (p Progress) IsFavorite(lessonID string) bool {
	return slices.Contains(p.Favorites, lessonID)
}

// ParseDate parses a calendar date as midnight UTC. Day arithmetic on the
// result is exact because UTC has no daylight-saving shifts.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DaysBetween returns the calendar-day difference to-from.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateFormat)
}
