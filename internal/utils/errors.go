package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrTaskNotFound returns an error for an id that names no task.
func ErrTaskNotFound(id int) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("task not found: %d", id),
		Suggestion: "Use 'tasktree show' to see task ids",
	}
}

// ErrInvalidTaskID returns an error for text that is not a task id.
func ErrInvalidTaskID(text string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid task id: %q", text),
		Suggestion: "Task ids are positive numbers shown by 'tasktree show'",
	}
}

// ErrTagNotFound returns an error for a tag missing from the tag list.
func ErrTagNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("tag not found: %s", name),
		Suggestion: fmt.Sprintf("Create the tag with 'tasktree tag add %s'", name),
	}
}

// ErrEmptyTitle returns an error for a blank task title.
func ErrEmptyTitle() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("task title is empty"),
		Suggestion: "Pass the title as an argument, e.g. tasktree add \"Write report\"",
	}
}

// ErrBackendNotConfigured returns an error when a backend is not configured.
func ErrBackendNotConfigured(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend not configured: %s", name),
		Suggestion: fmt.Sprintf("Add backends.%s settings to your config file", name),
	}
}

// ErrBackendOffline returns an error when a backend is unreachable with smart suggestions.
func ErrBackendOffline(name, reason string) error {
	suggestion := getSmartSuggestion(reason)
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backend %s is offline: %s", name, reason),
		Suggestion: suggestion,
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check the host name in your config file and your DNS settings"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	if strings.Contains(lowerReason, "password") || strings.Contains(lowerReason, "auth") {
		return "Verify the credentials in your connection settings"
	}

	return "Check your connection settings and try again"
}

// ErrInvalidScore returns an error for a negative score.
func ErrInvalidScore(score int) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid score: %d", score),
		Suggestion: "Score must be zero or positive (0 uses the default of 30)",
	}
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD (e.g., 2026-01-15), today, tomorrow, or +Nd/+Nw/+Nm",
	}
}

// ErrInvalidRecur returns an error for an unknown recurrence with valid options.
func ErrInvalidRecur(recur string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid recurrence: %s", recur),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}
