package progress

// XP rewards. These are fixed game rules, not configuration.
const (
	XPLessonCompleted = 50
	XPQuizHigh        = 30
	XPQuizMedium      = 20
	XPQuizLow         = 10
)

// Accuracy cut-offs for quiz rewards.
const (
	quizHighAccuracy   = 0.8
	quizMediumAccuracy = 0.6
)

// QuizXP returns the reward for a quiz attempt. Any valid attempt earns
// at least XPQuizLow.
func QuizXP(score, total int) int {
	// integer comparison avoids float rounding at the 80% and 60% edges
	switch {
	case score*10 >= total*8:
		return XPQuizHigh
	case score*10 >= total*6:
		return XPQuizMedium
	default:
		return XPQuizLow
	}
}

// CompleteLesson marks lessonID done on today. Completing a lesson twice
// has no effect, so repeated clicks never award XP twice. The returned int
// is the XP awarded.
func CompleteLesson(p Progress, lessonID, today string) (Progress, int, error) {
	if lessonID == "" {
		return p, 0, ErrInvalidLesson
	}
	if _, err := ParseDate(today); err != nil {
		return p, 0, err
	}
	if p.IsCompleted(lessonID) {
		return p, 0, nil
	}

	next := p.Clone()
	next.CompletedLessons = append(next.CompletedLessons, lessonID)
	next.XP += XPLessonCompleted
	next.Streak, _ = UpdateStreak(next.Streak, today)
	next.LastStudied[lessonID] = today
	return next, XPLessonCompleted, nil
}

// SaveQuizResult records a quiz submission. Unlike CompleteLesson every
// call awards XP: retaking a quiz is rewarded.
func SaveQuizResult(p Progress, lessonID string, score, total int, today string) (Progress, int, error) {
	if lessonID == "" {
		return p, 0, ErrInvalidLesson
	}
	if !(QuizScore{Score: score, Total: total}).Valid() {
		return p, 0, ErrInvalidQuiz
	}
	if _, err := ParseDate(today); err != nil {
		return p, 0, err
	}

	award := QuizXP(score, total)

	next := p.Clone()
	next.QuizResults[lessonID] = QuizScore{Score: score, Total: total}
	next.XP += award
	next.Streak, _ = UpdateStreak(next.Streak, today)
	next.LastStudied[lessonID] = today
	return next, award, nil
}

// ToggleFavorite adds or removes lessonID from the favorites set. It does
// not count as study activity.
func ToggleFavorite(p Progress, lessonID string) (Progress, bool, error) {
	if lessonID == "" {
		return p, false, ErrInvalidLesson
	}

	next := p.Clone()
	for i, id := range next.Favorites {
		if id == lessonID {
			next.Favorites = append(next.Favorites[:i], next.Favorites[i+1:]...)
			return next, false, nil
		}
	}
	next.Favorites = append(next.Favorites, lessonID)
	return next, true, nil
}
