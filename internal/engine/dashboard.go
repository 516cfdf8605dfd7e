package engine

import (
	"context"
	"time"

	"tasktree/backend"
	"tasktree/internal/hierarchy"
	"tasktree/internal/scoring"
)

// Node is an active task placed in the resolved hierarchy.
type Node struct {
	backend.Task
	Depth            int               `json:"depth"`
	EffectiveParent  backend.ParentRef `json:"effective_parent"`
	Overdue          bool              `json:"overdue"`
	ForbiddenParents []int             `json:"forbidden_parents"`
}

// Dashboard is everything a front-end needs to render the main view.
type Dashboard struct {
	Today             time.Time               `json:"today"`
	Tags              []string                `json:"tags"`
	Tree              []Node                  `json:"tree"` // depth-first, display order
	Overdue           []backend.Task          `json:"overdue"`
	Week              []hierarchy.Day         `json:"week"`
	Recent            []backend.Task          `json:"recent"`
	Scores            scoring.Window          `json:"scores"`
	Breakdown         [2]scoring.DayBreakdown `json:"breakdown"` // yesterday, today
	SelectableParents []backend.Task          `json:"selectable_parents"`

	resolved *hierarchy.Tree
}

// Resolved returns the hierarchy the dashboard was built from.
func (d *Dashboard) Resolved() *hierarchy.Tree {
	return d.resolved
}

// Dashboard builds the read-only view of the current state.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d *Dashboard
	err := e.read(ctx, func(snap *backend.Snapshot) {
		d = e.buildDashboard(snap)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (e *Engine) buildDashboard(snap *backend.Snapshot) *Dashboard {
	today := e.today()
	tree := hierarchy.Resolve(snap.Tasks, today)

	d := &Dashboard{
		Today:             today,
		Tags:              append([]string(nil), snap.Tags...),
		Tree:              []Node{},
		Overdue:           tree.Overdue(),
		Week:              tree.Week(),
		Recent:            scoring.Recent(snap.Tasks, e.recentLimit),
		Scores:            scoring.Last14Days(snap.Tasks, today),
		Breakdown:         scoring.Breakdown(snap.Tasks, today),
		SelectableParents: tree.SelectableParents(0),
		resolved:          tree,
	}
	if d.Overdue == nil {
		d.Overdue = []backend.Task{}
	}
	if d.Recent == nil {
		d.Recent = []backend.Task{}
	}

	tree.Walk(func(task backend.Task, depth int) {
		d.Tree = append(d.Tree, Node{
			Task:             task,
			Depth:            depth,
			EffectiveParent:  tree.EffectiveParent(task.ID),
			Overdue:          tree.IsOverdue(task.ID),
			ForbiddenParents: tree.ForbiddenParents(task.ID),
		})
	})
	return d
}
