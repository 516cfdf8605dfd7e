// Package scoring aggregates the scores of completed tasks by calendar day.
package scoring

import (
	"slices"
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
)

const (
	// WindowDays is the length of the rolling score window.
	WindowDays = 14

	// DefaultRecentLimit is how many completions the recent list shows.
	DefaultRecentLimit = 20
)

// DayScore is the summed score of one day.
type DayScore struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

// Window is a run of consecutive days, oldest first.
type Window struct {
	Days  []DayScore `json:"days"`
	Total int        `json:"total"`
}

// Values returns the per-day scores in order.
func (w Window) Values() []int {
	out := make([]int, len(w.Days))
	for i, d := range w.Days {
		out[i] = d.Score
	}
	return out
}

// DayBreakdown lists the scored completions of one day.
type DayBreakdown struct {
	Date  time.Time      `json:"date"`
	Tasks []backend.Task `json:"tasks"`
	Total int            `json:"total"`
}

// completedOn returns the completion date of a completed task.
func completedOn(t backend.Task) (time.Time, bool) {
	if !t.Completed || t.CompletedAt == nil {
		return time.Time{}, false
	}
	return dates.Of(*t.CompletedAt), true
}

// LastDays sums scores for the n days ending today (inclusive), oldest first.
func LastDays(tasks []backend.Task, today time.Time, n int) Window {
	start := dates.AddDays(dates.Of(today), -(n - 1))
	days := dates.Range(start, n)

	index := make(map[time.Time]int, n)
	w := Window{Days: make([]DayScore, n)}
	for i, d := range days {
		w.Days[i] = DayScore{Date: d}
		index[d] = i
	}

	for _, t := range tasks {
		d, ok := completedOn(t)
		if !ok {
			continue
		}
		if i, ok := index[d]; ok {
			w.Days[i].Score += t.Score
			w.Total += t.Score
		}
	}
	return w
}

// Last14Days is LastDays with the standard window length.
func Last14Days(tasks []backend.Task, today time.Time) Window {
	return LastDays(tasks, today, WindowDays)
}

// Breakdown returns the completions of yesterday and today, each sorted by
// completion time. Tasks with a non-positive score are left out of the lists
// but still count towards the day totals.
func Breakdown(tasks []backend.Task, today time.Time) [2]DayBreakdown {
	t0 := dates.Of(today)
	out := [2]DayBreakdown{
		{Date: dates.AddDays(t0, -1), Tasks: []backend.Task{}},
		{Date: t0, Tasks: []backend.Task{}},
	}

	for _, t := range tasks {
		d, ok := completedOn(t)
		if !ok {
			continue
		}
		for i := range out {
			if !d.Equal(out[i].Date) {
				continue
			}
			out[i].Total += t.Score
			if t.Score > 0 {
				out[i].Tasks = append(out[i].Tasks, t)
			}
		}
	}

	for i := range out {
		slices.SortStableFunc(out[i].Tasks, byCompletedAt)
	}
	return out
}

// byCompletedAt orders by completion timestamp ascending; missing timestamps first.
func byCompletedAt(a, b backend.Task) int {
	switch {
	case a.CompletedAt == nil && b.CompletedAt == nil:
		return 0
	case a.CompletedAt == nil:
		return -1
	case b.CompletedAt == nil:
		return 1
	default:
		return a.CompletedAt.Compare(*b.CompletedAt)
	}
}

// Recent returns up to limit completed tasks, most recently completed first.
// Completed tasks without a timestamp are skipped.
func Recent(tasks []backend.Task, limit int) []backend.Task {
	var done []backend.Task
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil {
			done = append(done, t)
		}
	}
	slices.SortStableFunc(done, func(a, b backend.Task) int {
		return byCompletedAt(b, a)
	})
	if limit > 0 && len(done) > limit {
		done = done[:limit]
	}
	return done
}
