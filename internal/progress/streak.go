package progress

// UpdateStreak advances the consecutive-day streak for an event on today.
// Several events on the same day count once; a gap of more than one day
// restarts the streak at 1 without touching the longest run.
func UpdateStreak(s Streak, today string) (Streak, error) {
	if _, err := ParseDate(today); err != nil {
		return s, err
	}

	if s.LastDate == today {
		return s, nil
	}

	next := s
	next.LastDate = today

	gap := -1
	if s.LastDate != "" {
		if d, err := DaysBetween(s.LastDate, today); err == nil {
			gap = d
		}
	}

	if gap == 1 {
		next.Current = s.Current + 1
	} else {
		next.Current = 1
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	return next, nil
}
