package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
)

// ValidateScore rejects negative scores. Zero is allowed and means the default.
func ValidateScore(score int) error {
	if score < 0 {
		return ErrInvalidScore(score)
	}
	return nil
}

// ParseTaskID parses a positive task id from command-line text.
func ParseTaskID(text string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || id <= 0 {
		return 0, ErrInvalidTaskID(text)
	}
	return id, nil
}

// ParseRecurFlag validates a recurrence flag. Empty text means none.
func ParseRecurFlag(text string) (backend.Recur, error) {
	if strings.TrimSpace(text) == "" {
		return backend.RecurNone, nil
	}
	r := backend.Recur(strings.ToLower(strings.TrimSpace(text)))
	switch r {
	case backend.RecurNone, backend.RecurWeekly, backend.RecurMonthly:
		return r, nil
	}
	return "", ErrInvalidRecur(text, []string{
		string(backend.RecurNone), string(backend.RecurWeekly), string(backend.RecurMonthly),
	})
}

// relativePattern matches relative date formats like +7d, -3d, +2w, +1m
var relativePattern = regexp.MustCompile(`^([+-])(\d+)([dwm])$`)

// parseRelativeDate parses "today", "tomorrow", "yesterday", "+7d", "-3d", "+2w", "+1m"
// relative to today. ok is false when the text is not a relative form.
func parseRelativeDate(dateStr string, today time.Time) (time.Time, bool, error) {
	lower := strings.ToLower(dateStr)

	switch lower {
	case "today":
		return today, true, nil
	case "tomorrow":
		return dates.AddDays(today, 1), true, nil
	case "yesterday":
		return dates.AddDays(today, -1), true, nil
	}

	matches := relativePattern.FindStringSubmatch(lower)
	if matches == nil {
		return time.Time{}, false, nil
	}

	num, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, true, ErrInvalidDate(dateStr)
	}
	if matches[1] == "-" {
		num = -num
	}

	switch matches[3] {
	case "w":
		return dates.AddDays(today, num*7), true, nil
	case "m":
		return dates.AddMonths(today, num), true, nil
	default:
		return dates.AddDays(today, num), true, nil
	}
}

// ParseDateFlag parses a due date flag relative to now.
// Supported relative formats: today, tomorrow, yesterday, +Nd, -Nd, +Nw, +Nm.
// Supported absolute format: YYYY-MM-DD.
// Empty text yields the zero time, which the engine treats as today.
func ParseDateFlag(dateStr string, now time.Time) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, nil
	}

	d, ok, err := parseRelativeDate(dateStr, dates.Of(now))
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return d, nil
	}

	parsed, err := dates.Parse(dateStr)
	if err != nil {
		return time.Time{}, ErrInvalidDate(dateStr)
	}
	return parsed, nil
}
