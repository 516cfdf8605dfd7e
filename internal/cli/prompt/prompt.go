// Package prompt handles interactive prompts with no-prompt mode support.
// It provides task selection by title filter, yes/no confirmation, and
// interactive add mode with field validation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/utils"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoTasks            = errors.New("no tasks available")
	ErrNoMatches          = errors.New("no tasks match the filter")
)

// IsInteractive reports whether r is a terminal. Prompts fall back to
// no-prompt behaviour when input is piped.
func IsInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm asks a yes/no question. With NoPrompt set it answers yes without
// reading; end of input answers no.
type Confirm struct {
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Ask prints question and waits for y/yes or n/no, repeating on other input.
func (c *Confirm) Ask(question string) bool {
	if c.NoPrompt {
		return true
	}
	writer := c.Writer
	if writer == nil {
		writer = io.Discard
	}

	scanner := bufio.NewScanner(c.Reader)
	for {
		_, _ = fmt.Fprintf(writer, "%s (y/n): ", question)
		if !scanner.Scan() {
			return false
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

// TaskSelector picks one task from a list by filtering on the title.
type TaskSelector struct {
	Tasks    []backend.Task
	Prompt   string
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the task selection prompt.
// If NoPrompt is true, returns ErrNoPromptMode.
// If there is exactly one task, auto-selects it.
// Otherwise, prompts the user to filter and select a task.
func (s *TaskSelector) Run() (*backend.Task, error) {
	if s.NoPrompt {
		return nil, ErrNoPromptMode
	}

	if len(s.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	if len(s.Tasks) == 1 {
		return &s.Tasks[0], nil
	}

	writer := s.Writer
	if writer == nil {
		writer = io.Discard
	}

	scanner := bufio.NewScanner(s.Reader)

	_, _ = fmt.Fprintf(writer, "%s\nFilter (or press Enter to show all): ", s.Prompt)
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}
	filter := strings.ToLower(strings.TrimSpace(scanner.Text()))

	var filtered []backend.Task
	for _, t := range s.Tasks {
		if filter == "" || strings.Contains(strings.ToLower(t.Title), filter) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		return nil, ErrNoMatches
	}

	if len(filtered) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", filtered[0].Title)
		return &filtered[0], nil
	}

	for i, t := range filtered {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, FormatTaskLine(t))
	}

	_, _ = fmt.Fprintf(writer, "Select (0 to cancel): ")
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}

	input := strings.TrimSpace(scanner.Text())
	num, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %s", input)
	}

	if num == 0 {
		return nil, ErrSelectionCancelled
	}

	if num < 1 || num > len(filtered) {
		return nil, fmt.Errorf("selection out of range: %d", num)
	}

	return &filtered[num-1], nil
}

// FormatTaskLine formats a task with its id, score, due date, tag, and parent.
func FormatTaskLine(t backend.Task) string {
	meta := []string{
		fmt.Sprintf("#%d", t.ID),
		fmt.Sprintf("%dpt", t.Score),
		"due: " + dates.Format(t.DueDate),
		"tag: " + t.Tag,
	}
	if !t.ParentID.IsRoot() {
		meta = append(meta, "parent: "+t.ParentID.String())
	}
	if t.Recur != backend.RecurNone && t.Recur != "" {
		meta = append(meta, string(t.Recur))
	}
	if t.Completed {
		meta = append(meta, "done")
	}
	return fmt.Sprintf("%s [%s]", t.Title, strings.Join(meta, ", "))
}

// FilterTasksByAction returns the tasks an action may target. "done",
// "reschedule", and "update" only apply to active tasks; "undo" only to
// completed ones. showAll returns everything.
func FilterTasksByAction(tasks []backend.Task, action string, showAll bool) []backend.Task {
	if showAll {
		return append([]backend.Task(nil), tasks...)
	}

	var want func(backend.Task) bool
	switch action {
	case "done", "reschedule", "update":
		want = func(t backend.Task) bool { return !t.Completed }
	case "undo":
		want = func(t backend.Task) bool { return t.Completed }
	default:
		return append([]backend.Task(nil), tasks...)
	}

	var filtered []backend.Task
	for _, t := range tasks {
		if want(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// AddFields holds the field values collected during interactive add mode.
type AddFields struct {
	Title   string
	Tag     string
	Score   int
	DueDate time.Time
	Recur   backend.Recur
	Parent  backend.ParentRef
}

// InteractiveAdder provides sequential field prompts with validation
// for adding a task when no title is provided.
type InteractiveAdder struct {
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
	Now      func() time.Time
}

// Run prompts for title (required), tag, score, due date, recurrence, and
// parent id. Optional fields accept an empty line.
func (a *InteractiveAdder) Run() (*AddFields, error) {
	if a.NoPrompt {
		return nil, ErrNoPromptMode
	}

	writer := a.Writer
	if writer == nil {
		writer = io.Discard
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(a.Reader)
	fields := &AddFields{Recur: backend.RecurNone}

	for {
		_, _ = fmt.Fprint(writer, "Title (required): ")
		if !scanner.Scan() {
			return nil, errors.New("no input for title")
		}
		fields.Title = strings.TrimSpace(scanner.Text())
		if fields.Title != "" {
			break
		}
		_, _ = fmt.Fprintln(writer, "Title cannot be empty.")
	}

	_, _ = fmt.Fprint(writer, "Tag (optional): ")
	if scanner.Scan() {
		fields.Tag = strings.TrimSpace(scanner.Text())
	}

	for {
		_, _ = fmt.Fprint(writer, "Score (default 30): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			break
		}
		n, err := strconv.Atoi(input)
		if err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid score: must be a number")
			continue
		}
		if err := utils.ValidateScore(n); err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid score: must be zero or positive")
			continue
		}
		fields.Score = n
		break
	}

	for {
		_, _ = fmt.Fprint(writer, "Due date (YYYY-MM-DD, today, tomorrow, +Nd, optional): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			break
		}
		d, err := utils.ParseDateFlag(input, now())
		if err != nil {
			_, _ = fmt.Fprintf(writer, "Invalid date: %s. Use YYYY-MM-DD, today, tomorrow, +Nd, +Nw, +Nm\n", input)
			continue
		}
		fields.DueDate = d
		break
	}

	for {
		_, _ = fmt.Fprint(writer, "Recurrence (none, weekly, monthly, optional): ")
		if !scanner.Scan() {
			break
		}
		r, err := utils.ParseRecurFlag(scanner.Text())
		if err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid recurrence: use none, weekly, or monthly")
			continue
		}
		fields.Recur = r
		break
	}

	for {
		_, _ = fmt.Fprint(writer, "Parent task id (optional): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			break
		}
		id, err := utils.ParseTaskID(input)
		if err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid parent: enter a task id")
			continue
		}
		fields.Parent = backend.ParentOf(id)
		break
	}

	return fields, nil
}
