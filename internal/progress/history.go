package progress

import "time"

// DefaultHistoryCap is how many attempts are kept per lesson.
const DefaultHistoryCap = 10

type QuizAttempt struct {
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// QuizHistory maps lesson id to attempts ordered oldest to newest.
type QuizHistory map[string][]QuizAttempt

// AddQuizAttempt returns a copy of h with attempt appended to lessonID,
// dropping the oldest entries beyond limit. A non-positive limit uses
// DefaultHistoryCap.
func AddQuizAttempt(h QuizHistory, lessonID string, attempt QuizAttempt, limit int) QuizHistory {
	if limit <= 0 {
		limit = DefaultHistoryCap
	}

	out := make(QuizHistory, len(h)+1)
	for k, v := range h {
		out[k] = v
	}

	list := append(append([]QuizAttempt{}, h[lessonID]...), attempt)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	out[lessonID] = list
	return out
}

// Attempts returns how many attempts are recorded for lessonID.
func (h QuizHistory) Attempts(lessonID string) int {
	return len(h[lessonID])
}
