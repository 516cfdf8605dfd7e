// Package engine implements the task operations on top of a backend.Store.
//
// Every operation loads the complete snapshot, works on it in memory and, for
// mutations that changed something, saves it back. A single mutex serializes
// the load/mutate/save cycle so concurrent callers never lose updates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tasktree/backend"
	"tasktree/internal/autotag"
	"tasktree/internal/dates"
	"tasktree/internal/hierarchy"
	"tasktree/internal/recurrence"
	"tasktree/internal/scoring"
)

const (
	// RescheduleBonus is added to a task's score every time it is rescheduled.
	RescheduleBonus = 30

	// DefaultScore is used when a task is created without a score.
	DefaultScore = 30
)

var (
	ErrEmptyTitle    = errors.New("title is required")
	ErrNegativeScore = errors.New("score must not be negative")
)

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	DefaultTag  string
	RecentLimit int
	Rules       backend.RuleSource
	Now         func() time.Time
	Logger      zerolog.Logger
}

// Engine serializes task operations against a store.
type Engine struct {
	mu          sync.Mutex
	store       backend.Store
	rules       backend.RuleSource
	defaultTag  string
	recentLimit int
	now         func() time.Time
	log         zerolog.Logger
}

// New returns an Engine backed by store.
func New(store backend.Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		rules:       opts.Rules,
		defaultTag:  strings.TrimSpace(opts.DefaultTag),
		recentLimit: opts.RecentLimit,
		now:         opts.Now,
		log:         opts.Logger,
	}
	if e.defaultTag == "" {
		e.defaultTag = backend.DefaultTagName
	}
	if e.recentLimit <= 0 {
		e.recentLimit = scoring.DefaultRecentLimit
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// DefaultTag returns the tag that can never be deleted.
func (e *Engine) DefaultTag() string {
	return e.defaultTag
}

func (e *Engine) today() time.Time {
	return dates.Of(e.now())
}

// load reads the snapshot and makes sure the default tag exists.
// The caller must hold e.mu.
func (e *Engine) load(ctx context.Context) (*backend.Snapshot, bool, error) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("engine: load snapshot: %w", err)
	}
	if snap == nil {
		snap = &backend.Snapshot{}
	}
	return snap, snap.EnsureDefaultTag(e.defaultTag), nil
}

// mutate runs fn on a freshly loaded snapshot and saves the result when fn or
// the load itself changed anything.
func (e *Engine) mutate(ctx context.Context, op string, fn func(snap *backend.Snapshot) (bool, error)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, dirty, err := e.load(ctx)
	if err != nil {
		return false, err
	}
	changed, err := fn(snap)
	if err != nil {
		return false, err
	}
	if !changed && !dirty {
		e.log.Debug().Str("op", op).Msg("nothing changed")
		return false, nil
	}
	if err := e.store.Save(ctx, snap); err != nil {
		return false, fmt.Errorf("engine: save snapshot: %w", err)
	}
	e.log.Debug().Str("op", op).Int("tasks", len(snap.Tasks)).Msg("snapshot saved")
	return changed, nil
}

// read runs fn on a loaded snapshot without saving.
func (e *Engine) read(ctx context.Context, fn func(snap *backend.Snapshot)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, _, err := e.load(ctx)
	if err != nil {
		return err
	}
	fn(snap)
	return nil
}

// validateTag returns tag when it names an existing tag, otherwise the default.
func (e *Engine) validateTag(snap *backend.Snapshot, tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || !snap.HasTag(tag) {
		return e.defaultTag
	}
	return tag
}

// validateParent returns requested when it may become the parent of target
// (0 for a task being created), otherwise Root.
func validateParent(tree *hierarchy.Tree, target int, requested backend.ParentRef) backend.ParentRef {
	return tree.ResolveParent(target, requested)
}

// keywordRules returns the configured rules; any failure means no rules.
func (e *Engine) keywordRules(ctx context.Context) []backend.KeywordRule {
	if e.rules == nil {
		return nil
	}
	rules, err := e.rules.LoadRules(ctx)
	if err != nil {
		e.log.Debug().Err(err).Msg("keyword rules unavailable, skipping auto-tag")
		return nil
	}
	return rules
}

// NewTask holds the fields supplied when creating a task.
type NewTask struct {
	Title   string
	Tag     string
	Score   int
	DueDate time.Time // zero means today
	Recur   backend.Recur
	Parent  backend.ParentRef
}

// CreateTask inserts a new active task and returns its id.
func (e *Engine) CreateTask(ctx context.Context, in NewTask) (int, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	if in.Score < 0 {
		return 0, ErrNegativeScore
	}
	score := in.Score
	if score == 0 {
		score = DefaultScore
	}
	due := in.DueDate
	if due.IsZero() {
		due = e.today()
	}
	recur := backend.ParseRecur(string(in.Recur))

	var id int
	_, err := e.mutate(ctx, "create", func(snap *backend.Snapshot) (bool, error) {
		tree := hierarchy.Resolve(snap.Tasks, e.today())

		tag := e.validateTag(snap, in.Tag)
		if autotag.ShouldClassify(in.Tag, e.defaultTag) {
			if suggested, ok := autotag.Classify(title, e.keywordRules(ctx)); ok {
				if !snap.HasTag(suggested) {
					snap.Tags = append(snap.Tags, suggested)
				}
				tag = suggested
			}
		}

		id = snap.NextTaskID()
		snap.Tasks = append(snap.Tasks, backend.Task{
			ID:       id,
			Title:    title,
			Tag:      tag,
			Score:    score,
			DueDate:  dates.Of(due),
			ParentID: validateParent(tree, 0, in.Parent),
			Recur:    recur,
		})
		e.log.Info().Int("id", id).Str("tag", tag).Msg("task created")
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Completion describes the outcome of CompleteTask.
type Completion struct {
	Found        bool `json:"found"`
	Transitioned bool `json:"transitioned"`
	SuccessorID  int  `json:"successor_id,omitempty"`
}

// CompleteTask marks an active task completed and spawns its successor when
// it recurs. Completing a completed or unknown task changes nothing.
func (e *Engine) CompleteTask(ctx context.Context, id int) (Completion, error) {
	var c Completion
	_, err := e.mutate(ctx, "complete", func(snap *backend.Snapshot) (bool, error) {
		c.Found = snap.FindTask(id) != nil
		c.SuccessorID, c.Transitioned = recurrence.Complete(snap, id, e.now())
		if c.SuccessorID != 0 {
			e.log.Info().Int("id", id).Int("successor", c.SuccessorID).Msg("recurring task completed")
		}
		return c.Transitioned, nil
	})
	return c, err
}

// UndoTask clears the completion of a task. A recurrence successor that was
// already spawned is kept.
func (e *Engine) UndoTask(ctx context.Context, id int) (bool, error) {
	return e.mutate(ctx, "undo", func(snap *backend.Snapshot) (bool, error) {
		t := snap.FindTask(id)
		if t == nil || !t.Completed {
			return false, nil
		}
		t.Completed = false
		t.CompletedAt = nil
		return true, nil
	})
}

// RescheduleTask moves an active task to due (zero means today) and adds
// RescheduleBonus to its score.
func (e *Engine) RescheduleTask(ctx context.Context, id int, due time.Time) (bool, error) {
	if due.IsZero() {
		due = e.today()
	}
	return e.mutate(ctx, "reschedule", func(snap *backend.Snapshot) (bool, error) {
		t := snap.FindTask(id)
		if t == nil || t.Completed {
			return false, nil
		}
		t.DueDate = dates.Of(due)
		t.Score += RescheduleBonus
		return true, nil
	})
}

// MetadataUpdate lists the fields to change; nil fields are left alone.
type MetadataUpdate struct {
	Tag    *string
	Parent *backend.ParentRef
}

// UpdateTask changes the tag and/or parent of an active task. An unknown tag
// becomes the default tag; a parent that is not active, or would create a
// cycle, becomes Root. Completed tasks are never modified.
func (e *Engine) UpdateTask(ctx context.Context, id int, upd MetadataUpdate) (bool, error) {
	return e.mutate(ctx, "update", func(snap *backend.Snapshot) (bool, error) {
		t := snap.FindTask(id)
		if t == nil || t.Completed {
			return false, nil
		}

		changed := false
		if upd.Tag != nil {
			if tag := e.validateTag(snap, *upd.Tag); tag != t.Tag {
				t.Tag = tag
				changed = true
			}
		}
		if upd.Parent != nil {
			tree := hierarchy.Resolve(snap.Tasks, e.today())
			if p := validateParent(tree, id, *upd.Parent); p != t.ParentID {
				t.ParentID = p
				changed = true
			}
		}
		return changed, nil
	})
}

// DeleteTask removes a task and every task below it through stored parent
// links, completed ones included. It returns the removed ids.
func (e *Engine) DeleteTask(ctx context.Context, id int) ([]int, error) {
	var removed []int
	_, err := e.mutate(ctx, "delete", func(snap *backend.Snapshot) (bool, error) {
		if snap.FindTask(id) == nil {
			return false, nil
		}
		removed = append([]int{id}, hierarchy.Descendants(snap.Tasks, id)...)
		snap.Tasks = slices.DeleteFunc(snap.Tasks, func(t backend.Task) bool {
			return slices.Contains(removed, t.ID)
		})
		e.log.Info().Ints("ids", removed).Msg("tasks deleted")
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(removed)
	return removed, nil
}

// AddTag appends name to the tag list. Empty names and existing tags are ignored.
func (e *Engine) AddTag(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	return e.mutate(ctx, "add-tag", func(snap *backend.Snapshot) (bool, error) {
		if snap.HasTag(name) {
			return false, nil
		}
		snap.Tags = append(snap.Tags, name)
		return true, nil
	})
}

// DeleteTag removes a tag and moves its tasks to the default tag. The default
// tag itself is never deleted. It returns the number of tasks moved.
func (e *Engine) DeleteTag(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == e.defaultTag {
		return 0, nil
	}
	moved := 0
	_, err := e.mutate(ctx, "delete-tag", func(snap *backend.Snapshot) (bool, error) {
		changed := false
		if snap.HasTag(name) {
			snap.Tags = slices.DeleteFunc(snap.Tags, func(t string) bool { return t == name })
			changed = true
		}
		for i := range snap.Tasks {
			if snap.Tasks[i].Tag == name {
				snap.Tasks[i].Tag = e.defaultTag
				moved++
				changed = true
			}
		}
		return changed, nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// Tags returns the tag list, default tag included.
func (e *Engine) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	err := e.read(ctx, func(snap *backend.Snapshot) {
		tags = slices.Clone(snap.Tags)
	})
	return tags, err
}

// Task returns the task with the given id, active or completed.
func (e *Engine) Task(ctx context.Context, id int) (backend.Task, bool, error) {
	var (
		task  backend.Task
		found bool
	)
	err := e.read(ctx, func(snap *backend.Snapshot) {
		if t := snap.FindTask(id); t != nil {
			task, found = *t, true
		}
	})
	return task, found, err
}
