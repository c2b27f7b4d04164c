package progress

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Encode serializes p to its persisted JSON shape. Empty collections are
// written as [] and {} instead of null.
func Encode(p Progress) ([]byte, error) {
	return json.Marshal(Normalize(p))
}

// Decode parses a stored record. It never fails: fields with the wrong
// type or missing fields fall back to their defaults one by one.
func Decode(data []byte) Progress {
	out := Default()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}

	out.CompletedLessons = decodeIDs(raw["completedLessons"])
	out.Favorites = decodeIDs(raw["favorites"])
	out.XP = decodeCount(raw["xp"])

	var quiz map[string]json.RawMessage
	if json.Unmarshal(raw["quizResults"], &quiz) == nil {
		for id, v := range quiz {
			var fields map[string]json.RawMessage
			if id == "" || json.Unmarshal(v, &fields) != nil {
				continue
			}
			score, okScore := decodeInt(fields["score"])
			total, okTotal := decodeInt(fields["total"])
			q := QuizScore{Score: score, Total: total}
			if okScore && okTotal && q.Valid() {
				out.QuizResults[id] = q
			}
		}
	}

	var streak map[string]json.RawMessage
	if json.Unmarshal(raw["streak"], &streak) == nil {
		out.Streak.Current = decodeCount(streak["current"])
		out.Streak.Longest = decodeCount(streak["longest"])
		var last string
		if json.Unmarshal(streak["lastDate"], &last) == nil {
			if _, err := ParseDate(last); err == nil {
				out.Streak.LastDate = last
			}
		}
	}

	var studied map[string]json.RawMessage
	if json.Unmarshal(raw["lastStudied"], &studied) == nil {
		for id, v := range studied {
			var d string
			if id == "" || json.Unmarshal(v, &d) != nil {
				continue
			}
			if _, err := ParseDate(d); err == nil {
				out.LastStudied[id] = d
			}
		}
	}

	return Normalize(out)
}

// Normalize enforces the record invariants: no nil collections, no
// duplicate ids, no invalid quiz entries, xp >= 0 and current <= longest.
func Normalize(p Progress) Progress {
	out := p.Clone()
	out.CompletedLessons = dedupe(out.CompletedLessons)
	out.Favorites = dedupe(out.Favorites)
	for id, q := range out.QuizResults {
		if !q.Valid() {
			delete(out.QuizResults, id)
		}
	}
	out.XP = max(out.XP, 0)
	out.Streak.Current = max(out.Streak.Current, 0)
	out.Streak.Longest = max(out.Streak.Longest, out.Streak.Current)
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func decodeIDs(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if json.Unmarshal(item, &id) == nil {
			ids = append(ids, id)
		}
	}
	return dedupe(ids)
}

// decodeInt reads a JSON number. Fractions are truncated and values past
// the int range saturate.
func decodeInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	if json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(max(min(i, math.MaxInt), math.MinInt)), true
	}
	f, err := n.Float64()
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		return 0, false
	}
	switch {
	case f >= float64(math.MaxInt):
		return math.MaxInt, true
	case f <= float64(math.MinInt):
		return math.MinInt, true
	}
	return int(math.Trunc(f)), true
}

// decodeCount reads a non-negative counter, clamping bad values to 0.
func decodeCount(raw json.RawMessage) int {
	n, ok := decodeInt(raw)
	if !ok || n < 0 {
		return 0
	}
	return n
}
