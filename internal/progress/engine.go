package progress

// EventType names a progress mutation.
type EventType string

const (
	EventLessonCompleted EventType = "lesson_completed"
	EventQuizSubmitted   EventType = "quiz_submitted"
	EventFavoriteToggled EventType = "favorite_toggled"
)

// Event describes an accepted mutation.
type Event struct {
	Type     EventType
	LessonID string
	XP       int
	Date     string
	Score    int
	Total    int
	Favorite bool
}

// Observer is notified after each accepted mutation. It must not block;
// anything slow belongs on the observer's own goroutine.
type Observer func(Event)

// Engine wraps the pure operations and reports accepted events to an
// optional observer. Observer failures never reach the caller.
type Engine struct {
	observer Observer
}

func NewEngine(observer Observer) *Engine {
	return &Engine{observer: observer}
}

func (e *Engine) CompleteLesson(p Progress, lessonID, today string) (Progress, int, error) {
	next, award, err := CompleteLesson(p, lessonID, today)
	if err == nil && award > 0 {
		e.notify(Event{Type: EventLessonCompleted, LessonID: lessonID, XP: award, Date: today})
	}
	return next, award, err
}

func (e *Engine) SaveQuizResult(p Progress, lessonID string, score, total int, today string) (Progress, int, error) {
	next, award, err := SaveQuizResult(p, lessonID, score, total, today)
	if err == nil {
		e.notify(Event{Type: EventQuizSubmitted, LessonID: lessonID, XP: award, Date: today, Score: score, Total: total})
	}
	return next, award, err
}

func (e *Engine) ToggleFavorite(p Progress, lessonID, today string) (Progress, bool, error) {
	next, on, err := ToggleFavorite(p, lessonID)
	if err == nil {
		e.notify(Event{Type: EventFavoriteToggled, LessonID: lessonID, Date: today, Favorite: on})
	}
	return next, on, err
}

func (e *Engine) notify(ev Event) {
	if e == nil || e.observer == nil {
		return
	}
	defer func() { _ = recover() }()
	e.observer(ev)
}
