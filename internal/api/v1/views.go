package v1

import (
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
)

// Task is the wire form of a task. Dates use the same YYYY-MM-DD form the
// request bodies accept and parent_id is null for top-level tasks.
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Tag         string     `json:"tag"`
	Score       int        `json:"score"`
	DueDate     string     `json:"due_date" format:"date" doc:"Due date YYYY-MM-DD"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ParentID    *int       `json:"parent_id" doc:"Parent task id, null at the top level"`
	Recur       string     `json:"recur" enum:"none,weekly,monthly"`
}

type TreeNode struct {
	Task
	Depth            int   `json:"depth"`
	EffectiveParent  *int  `json:"effective_parent" doc:"Parent the task is displayed under, null at the top level"`
	Overdue          bool  `json:"overdue"`
	ForbiddenParents []int `json:"forbidden_parents"`
}

type WeekDay struct {
	Date  string `json:"date" format:"date"`
	Tasks []Task `json:"tasks"`
}

type DayScore struct {
	Date  string `json:"date" format:"date"`
	Score int    `json:"score"`
}

type ScoreWindow struct {
	Days  []DayScore `json:"days"`
	Total int        `json:"total"`
}

type DayBreakdown struct {
	Date  string `json:"date" format:"date"`
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

type Dashboard struct {
	Today             string         `json:"today" format:"date"`
	Tags              []string       `json:"tags"`
	Tree              []TreeNode     `json:"tree"`
	Overdue           []Task         `json:"overdue"`
	Week              []WeekDay      `json:"week"`
	Recent            []Task         `json:"recent"`
	Scores            ScoreWindow    `json:"scores"`
	Breakdown         []DayBreakdown `json:"breakdown" doc:"Yesterday then today"`
	SelectableParents []Task         `json:"selectable_parents"`
}

func parentID(p backend.ParentRef) *int {
	if id, ok := p.ID(); ok {
		return &id
	}
	return nil
}

// NewTask converts a stored task to its wire form.
func NewTask(t backend.Task) Task {
	return Task{
		ID:          t.ID,
		Title:       t.Title,
		Tag:         t.Tag,
		Score:       t.Score,
		DueDate:     dates.Format(t.DueDate),
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		ParentID:    parentID(t.ParentID),
		Recur:       string(t.Recur),
	}
}

func newTasks(ts []backend.Task) []Task {
	out := make([]Task, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewTask(t))
	}
	return out
}

// NewDashboard converts an engine dashboard to its wire form.
func NewDashboard(d *engine.Dashboard) *Dashboard {
	out := &Dashboard{
		Today:             dates.Format(d.Today),
		Tags:              append([]string{}, d.Tags...),
		Tree:              make([]TreeNode, 0, len(d.Tree)),
		Overdue:           newTasks(d.Overdue),
		Week:              make([]WeekDay, 0, len(d.Week)),
		Recent:            newTasks(d.Recent),
		Scores:            ScoreWindow{Days: make([]DayScore, 0, len(d.Scores.Days)), Total: d.Scores.Total},
		Breakdown:         make([]DayBreakdown, 0, len(d.Breakdown)),
		SelectableParents: newTasks(d.SelectableParents),
	}
	for _, n := range d.Tree {
		forbidden := n.ForbiddenParents
		if forbidden == nil {
			forbidden = []int{}
		}
		out.Tree = append(out.Tree, TreeNode{
			Task:             NewTask(n.Task),
			Depth:            n.Depth,
			EffectiveParent:  parentID(n.EffectiveParent),
			Overdue:          n.Overdue,
			ForbiddenParents: forbidden,
		})
	}
	for _, day := range d.Week {
		out.Week = append(out.Week, WeekDay{Date: dates.Format(day.Date), Tasks: newTasks(day.Tasks)})
	}
	for _, s := range d.Scores.Days {
		out.Scores.Days = append(out.Scores.Days, DayScore{Date: dates.Format(s.Date), Score: s.Score})
	}
	for _, b := range d.Breakdown {
		out.Breakdown = append(out.Breakdown, DayBreakdown{Date: dates.Format(b.Date), Tasks: newTasks(b.Tasks), Total: b.Total})
	}
	return out
}
