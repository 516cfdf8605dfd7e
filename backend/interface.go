package backend

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// DefaultTagName is the tag every store starts with when no other default is configured.
const DefaultTagName = "マイタスク"

// Recur describes how a task repeats once completed
type Recur string

const (
	RecurNone    Recur = "none"
	RecurWeekly  Recur = "weekly"
	RecurMonthly Recur = "monthly"
)

// ParseRecur converts stored or submitted text to a Recur, falling back to RecurNone.
func ParseRecur(s string) Recur {
	switch Recur(strings.ToLower(strings.TrimSpace(s))) {
	case RecurWeekly:
		return RecurWeekly
	case RecurMonthly:
		return RecurMonthly
	default:
		return RecurNone
	}
}

// ParentRef is an optional reference to a parent task. The zero value is Root.
type ParentRef struct {
	id int
}

// Root is the reference used for tasks without a parent.
var Root = ParentRef{}

// ParentOf returns a reference to the task with the given id.
// Non-positive ids yield Root.
func ParentOf(id int) ParentRef {
	if id <= 0 {
		return Root
	}
	return ParentRef{id: id}
}

// ParseParentRef converts the stored text form. Empty or non-numeric text is Root.
func ParseParentRef(s string) ParentRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return Root
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return Root
	}
	return ParentOf(id)
}

// ID returns the referenced task id and whether the reference is set.
func (p ParentRef) ID() (int, bool) {
	return p.id, p.id > 0
}

// IsRoot reports whether the reference points at the root.
func (p ParentRef) IsRoot() bool {
	return p.id <= 0
}

// String returns the stored text form ("" for Root).
func (p ParentRef) String() string {
	if p.IsRoot() {
		return ""
	}
	return strconv.Itoa(p.id)
}

// MarshalText implements encoding.TextMarshaler so JSON and YAML use the stored form.
func (p ParentRef) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ParentRef) UnmarshalText(b []byte) error {
	*p = ParseParentRef(string(b))
	return nil
}

// Task represents a tracked work item
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Tag         string     `json:"tag"`
	Score       int        `json:"score"`
	DueDate     time.Time  `json:"due_date"` // midnight UTC, date only
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ParentID    ParentRef  `json:"parent_id"`
	Recur       Recur      `json:"recur"`
}

// KeywordRule maps keywords found in a title to a tag
type KeywordRule struct {
	Tag      string   `json:"tag" yaml:"tag"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Snapshot is the complete persisted state, loaded and saved as one unit.
type Snapshot struct {
	Tasks []Task   `json:"tasks"`
	Tags  []string `json:"tags"`
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Tasks: make([]Task, len(s.Tasks)),
		Tags:  append([]string(nil), s.Tags...),
	}
	for i, t := range s.Tasks {
		if t.CompletedAt != nil {
			ts := *t.CompletedAt
			t.CompletedAt = &ts
		}
		out.Tasks[i] = t
	}
	return out
}

// NextTaskID returns max(existing id)+1, or 1 for an empty snapshot.
func (s *Snapshot) NextTaskID() int {
	maxID := 0
	for _, t := range s.Tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

// FindTask returns a pointer into Tasks, or nil when no task has the id.
func (s *Snapshot) FindTask(id int) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// HasTag reports whether name is in the tag list.
func (s *Snapshot) HasTag(name string) bool {
	for _, t := range s.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// EnsureDefaultTag puts defaultTag at the front of the tag list when missing.
// Returns true if the list changed.
func (s *Snapshot) EnsureDefaultTag(defaultTag string) bool {
	if s.HasTag(defaultTag) {
		return false
	}
	s.Tags = append([]string{defaultTag}, s.Tags...)
	return true
}

// Store defines the interface for snapshot persistence backends
type Store interface {
	// Load returns the full persisted state. An empty store yields an empty
	// snapshot, never nil.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted state with snap as a single unit.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases connections held by the store.
	Close() error
}

// RuleSource supplies keyword rules in their authored order.
type RuleSource interface {
	LoadRules(ctx context.Context) ([]KeywordRule, error)
}

// RuleStore is a RuleSource that also accepts rules, replacing the stored set.
// It is how rules authored outside the store reach it.
type RuleStore interface {
	RuleSource
	SaveRules(ctx context.Context, rules []KeywordRule) error
}
