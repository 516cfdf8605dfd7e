// Package recurrence computes successor instances for recurring tasks.
package recurrence

import (
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
)

// NextDue returns the due date of the next occurrence and whether the task recurs at all.
func NextDue(t backend.Task) (time.Time, bool) {
	switch t.Recur {
	case backend.RecurWeekly:
		return dates.AddDays(t.DueDate, 7), true
	case backend.RecurMonthly:
		return dates.AddMonths(t.DueDate, 1), true
	default:
		return time.Time{}, false
	}
}

// Successor builds the next instance of t with the given id. The second return
// value is false for non-recurring tasks.
func Successor(t backend.Task, id int) (backend.Task, bool) {
	due, ok := NextDue(t)
	if !ok {
		return backend.Task{}, false
	}
	return backend.Task{
		ID:       id,
		Title:    t.Title,
		Tag:      t.Tag,
		Score:    t.Score,
		DueDate:  due,
		ParentID: t.ParentID,
		Recur:    t.Recur,
	}, true
}

// Complete marks the task with the given id completed at now and appends its
// successor when it recurs. It returns the successor id (0 when none) and
// whether a transition happened; completing an already completed or missing
// task is a no-op.
func Complete(snap *backend.Snapshot, id int, now time.Time) (successorID int, transitioned bool) {
	t := snap.FindTask(id)
	if t == nil || t.Completed {
		return 0, false
	}

	at := now.Truncate(time.Second)
	t.Completed = true
	t.CompletedAt = &at

	next, ok := Successor(*t, snap.NextTaskID())
	if !ok {
		return 0, true
	}
	snap.Tasks = append(snap.Tasks, next)
	return next.ID, true
}
