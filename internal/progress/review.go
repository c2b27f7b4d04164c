package progress

import (
	"cmp"
	"iter"
	"slices"
)

// Reason explains why a lesson is suggested for review.
type Reason string

const (
	ReasonLowScore Reason = "low_score"
	ReasonPeriodic Reason = "periodic_review"
)

// Policy holds the review heuristics. The values are tunable through
// configuration.
type Policy struct {
	// LowAccuracy is the accuracy below which a lesson needs reinforcement.
	LowAccuracy float64
	// LowScoreMinDays is how long to wait before re-suggesting a weak lesson.
	LowScoreMinDays int
	// Intervals are the periodic review gaps in days, indexed by the number
	// of recorded quiz attempts. The last interval repeats.
	Intervals []int
}

func DefaultPolicy() Policy {
	return Policy{
		LowAccuracy:     0.6,
		LowScoreMinDays: 1,
		Intervals:       []int{3, 7, 14, 30},
	}
}

func (p Policy) interval(stage int) int {
	if len(p.Intervals) == 0 {
		return DefaultPolicy().Intervals[0]
	}
	if stage >= len(p.Intervals) {
		stage = len(p.Intervals) - 1
	}
	return p.Intervals[stage]
}

func (p Policy) longestInterval() int {
	longest := 0
	for _, d := range p.Intervals {
		longest = max(longest, d)
	}
	if longest == 0 {
		longest = 30
	}
	return longest
}

type Suggestion struct {
	LessonID    string  `json:"lessonId"`
	Reason      Reason  `json:"reason"`
	DaysElapsed int     `json:"daysElapsed"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	DaysOverdue int     `json:"daysOverdue,omitempty"`
}

// Scheduler produces review suggestions. Curriculum lists lesson ids in
// teaching order and is used only to break ties.
type Scheduler struct {
	Policy     Policy
	Curriculum []string
}

func NewScheduler(policy Policy, curriculum []string) *Scheduler {
	return &Scheduler{Policy: policy, Curriculum: curriculum}
}

// Suggestions returns the lessons due for review as of today, most urgent
// first. The sequence is computed when ranged over and can be ranged over
// again with the same result; p and history are not modified.
func (s *Scheduler) Suggestions(p Progress, history QuizHistory, today string) iter.Seq[Suggestion] {
	return func(yield func(Suggestion) bool) {
		for _, sg := range s.rank(p, history, today) {
			if !yield(sg) {
				return
			}
		}
	}
}

func (s *Scheduler) rank(p Progress, history QuizHistory, today string) []Suggestion {
	if _, err := ParseDate(today); err != nil {
		return nil
	}

	position := make(map[string]int, len(s.Curriculum))
	for i, id := range s.Curriculum {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}

	var out []Suggestion
	seen := make(map[string]bool, len(p.CompletedLessons))
	for _, id := range p.CompletedLessons {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		elapsed := s.Policy.longestInterval()
		if last, ok := p.LastStudied[id]; ok {
			if d, err := DaysBetween(last, today); err == nil {
				elapsed = max(d, 0)
			}
		}

		if q, ok := p.QuizResults[id]; ok && q.Valid() && q.Accuracy() < s.Policy.LowAccuracy {
			if elapsed >= s.Policy.LowScoreMinDays {
				out = append(out, Suggestion{
					LessonID:    id,
					Reason:      ReasonLowScore,
					DaysElapsed: elapsed,
					Accuracy:    q.Accuracy(),
				})
			}
			continue
		}

		due := s.Policy.interval(history.Attempts(id))
		if elapsed >= due {
			out = append(out, Suggestion{
				LessonID:    id,
				Reason:      ReasonPeriodic,
				DaysElapsed: elapsed,
				DaysOverdue: elapsed - due,
			})
		}
	}

	order := func(id string) int {
		if i, ok := position[id]; ok {
			return i
		}
		return len(position)
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		if a.Reason != b.Reason {
			if a.Reason == ReasonLowScore {
				return -1
			}
			return 1
		}
		if a.Reason == ReasonLowScore {
			if c := cmp.Compare(a.Accuracy, b.Accuracy); c != 0 {
				return c
			}
			if c := cmp.Compare(b.DaysElapsed, a.DaysElapsed); c != 0 {
				return c
			}
		} else if c := cmp.Compare(b.DaysOverdue, a.DaysOverdue); c != 0 {
			return c
		}
		if c := cmp.Compare(order(a.LessonID), order(b.LessonID)); c != 0 {
			return c
		}
		return cmp.Compare(a.LessonID, b.LessonID)
	})
	return out
}
