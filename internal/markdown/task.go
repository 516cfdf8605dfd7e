// Package markdown renders the dashboard as a markdown checklist and parses
// the one-line quick-add syntax used by the CLI and the TUI.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
)

var (
	scorePattern = regexp.MustCompile(`(?:^|\s)!(\d+)(?:\s|$)`)
	duePattern   = regexp.MustCompile(`(?:^|\s)@(\d{4}-\d{2}-\d{2})(?:\s|$)`)
	tagPattern   = regexp.MustCompile(`(?:^|\s)#(\S+)`)
	recurPattern = regexp.MustCompile(`(?:^|\s)\*(weekly|monthly)(?:\s|$)`)
	spaces       = regexp.MustCompile(`\s+`)
)

// QuickAdd holds the fields recognised in a quick-add line.
type QuickAdd struct {
	Title   string
	Score   int
	DueDate time.Time
	Tag     string
	Recur   backend.Recur
}

// ParseTaskText extracts score, due date, tag, and recurrence from a line.
// Format: "Write report !50 @2024-01-15 #work *weekly". Markers that do not
// parse stay in the title. Only the first tag is used.
func ParseTaskText(text string) QuickAdd {
	q := QuickAdd{Title: text, Recur: backend.RecurNone}

	if m := scorePattern.FindStringSubmatch(q.Title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q.Score = n
			q.Title = strings.Replace(q.Title, strings.TrimSpace(m[0]), "", 1)
		}
	}

	if m := duePattern.FindStringSubmatch(q.Title); m != nil {
		if d, err := dates.Parse(m[1]); err == nil {
			q.DueDate = d
			q.Title = strings.Replace(q.Title, strings.TrimSpace(m[0]), "", 1)
		}
	}

	if m := recurPattern.FindStringSubmatch(q.Title); m != nil {
		q.Recur = backend.Recur(m[1])
		q.Title = strings.Replace(q.Title, strings.TrimSpace(m[0]), "", 1)
	}

	if m := tagPattern.FindStringSubmatch(q.Title); m != nil {
		q.Tag = m[1]
		q.Title = strings.Replace(q.Title, strings.TrimSpace(m[0]), "", 1)
	}

	q.Title = strings.TrimSpace(spaces.ReplaceAllString(q.Title, " "))
	return q
}

// FormatTaskText formats a task back to quick-add text.
func FormatTaskText(task backend.Task) string {
	parts := []string{task.Title}

	if task.Score > 0 {
		parts = append(parts, fmt.Sprintf("!%d", task.Score))
	}
	if !task.DueDate.IsZero() {
		parts = append(parts, "@"+dates.Format(task.DueDate))
	}
	if task.Tag != "" {
		parts = append(parts, "#"+task.Tag)
	}
	if task.Recur == backend.RecurWeekly || task.Recur == backend.RecurMonthly {
		parts = append(parts, "*"+string(task.Recur))
	}

	return strings.Join(parts, " ")
}

// FormatStatusChar returns the checkbox character for a task.
func FormatStatusChar(task backend.Task) string {
	if task.Completed {
		return "x"
	}
	return " "
}

func writeTaskLine(sb *strings.Builder, task backend.Task, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- [")
	sb.WriteString(FormatStatusChar(task))
	sb.WriteString("] ")
	sb.WriteString(FormatTaskText(task))
	sb.WriteString("\n")
}

// Export renders the dashboard: the active tree with indentation, the overdue
// list, and the recently completed tasks.
func Export(d *engine.Dashboard) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Tasks (%s)\n\n", dates.Format(d.Today))
	for _, node := range d.Tree {
		writeTaskLine(&sb, node.Task, node.Depth)
	}
	if len(d.Tree) == 0 {
		sb.WriteString("_No active tasks._\n")
	}

	if len(d.Overdue) > 0 {
		sb.WriteString("\n## Overdue\n\n")
		for _, task := range d.Overdue {
			writeTaskLine(&sb, task, 0)
		}
	}

	if len(d.Recent) > 0 {
		sb.WriteString("\n## Recently completed\n\n")
		for _, task := range d.Recent {
			writeTaskLine(&sb, task, 0)
		}
	}

	fmt.Fprintf(&sb, "\nScore (last %d days): %d\n", len(d.Scores.Days), d.Scores.Total)
	return sb.String()
}
