package backend

import (
	"strconv"
	"strings"
	"time"
)

// Text forms shared by the stores that persist fields as text.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// FormatDate renders a due date.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseDate reads a due date; the result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatTimestamp renders a completion timestamp in local time, second precision.
// Nil renders as empty text.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(time.Local).Format(TimestampLayout)
}

// ParseTimestamp reads a completion timestamp. Empty or unreadable text yields nil.
// ISO 8601 with a "T" separator is accepted as well.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// FormatBool renders a flag as 0 or 1.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool reads a 0/1 flag; anything but a positive number is false.
func ParseBool(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n > 0
}

// Normalize repairs the fields a store may have loaded in an inconsistent
// state: completion timestamps only exist on completed tasks and unknown recur
// values become RecurNone.
func (t *Task) Normalize() {
	t.Recur = ParseRecur(string(t.Recur))
	if !t.Completed {
		t.CompletedAt = nil
	}
	if t.Score < 0 {
		t.Score = 0
	}
}
