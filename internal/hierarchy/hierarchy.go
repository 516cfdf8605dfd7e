// Package hierarchy derives the parent/child view of the active tasks.
//
// The stored parent of a task is only a hint. Resolve computes the effective
// parent of every active task (falling back to the root when the hint does not
// name another active task), builds the child adjacency, and numbers the
// resulting forest with a single depth-first traversal so that "is c a
// descendant of t" is answered from the entry/exit intervals without walking
// the tree again.
package hierarchy

import (
	"slices"
	"time"

	"tasktree/backend"
	"tasktree/internal/dates"
)

// rootKey is the adjacency key for tasks whose effective parent is the root.
// Task ids are positive so 0 never collides with a real task.
const rootKey = 0

// WeekDays is the length of the week view.
const WeekDays = 7

// Tree is the resolved hierarchy of the active tasks.
type Tree struct {
	today    time.Time
	active   []backend.Task // sorted by Less
	byID     map[int]int    // task id -> index into active
	parent   map[int]int    // task id -> effective parent id (rootKey for root)
	children map[int][]int  // parent id -> child ids, sorted by Less
	enter    map[int]int    // DFS entry number
	exit     map[int]int    // DFS exit number (exclusive)
}

// Less orders tasks by due date ascending, then by id descending so the most
// recently created task comes first within the same day.
func Less(a, b backend.Task) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	return a.ID > b.ID
}

func compare(a, b backend.Task) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Resolve builds the tree for the active subset of tasks as of today.
func Resolve(tasks []backend.Task, today time.Time) *Tree {
	t := &Tree{
		today:    dates.Of(today),
		byID:     make(map[int]int),
		parent:   make(map[int]int),
		children: make(map[int][]int),
		enter:    make(map[int]int),
		exit:     make(map[int]int),
	}

	for _, task := range tasks {
		if !task.Completed {
			t.active = append(t.active, task)
		}
	}
	slices.SortStableFunc(t.active, compare)
	for i, task := range t.active {
		t.byID[task.ID] = i
	}

	// Effective parent: the hint only counts when it names another active task.
	for _, task := range t.active {
		pid, ok := task.ParentID.ID()
		if _, active := t.byID[pid]; ok && active && pid != task.ID {
			t.parent[task.ID] = pid
		} else {
			t.parent[task.ID] = rootKey
		}
	}
	t.breakCycles()

	// Children inherit the sort order of the active slice.
	for _, task := range t.active {
		p := t.parent[task.ID]
		t.children[p] = append(t.children[p], task.ID)
	}

	t.number()
	return t
}

// breakCycles re-roots one member of every parent cycle found in stored data,
// so every active task is reachable from the root.
func (t *Tree) breakCycles() {
	ids := make([]int, 0, len(t.active))
	for _, task := range t.active {
		ids = append(ids, task.ID)
	}
	slices.Sort(ids)

	for _, id := range ids {
		onPath := make(map[int]bool)
		cur := id
		for cur != rootKey {
			if onPath[cur] {
				t.parent[cur] = rootKey
				break
			}
			onPath[cur] = true
			cur = t.parent[cur]
		}
	}
}

// number assigns DFS entry/exit numbers in one iterative traversal from the root.
func (t *Tree) number() {
	type frame struct {
		id   int
		next int
	}
	counter := 0
	stack := []frame{{id: rootKey}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := t.children[top.id]
		if top.next < len(kids) {
			child := kids[top.next]
			top.next++
			t.enter[child] = counter
			counter++
			stack = append(stack, frame{id: child})
			continue
		}
		if top.id != rootKey {
			t.exit[top.id] = counter
		}
		stack = stack[:len(stack)-1]
	}
}

// Today returns the date the tree was resolved for.
func (t *Tree) Today() time.Time {
	return t.today
}

// Active returns the active tasks in display order.
func (t *Tree) Active() []backend.Task {
	return slices.Clone(t.active)
}

// IsActive reports whether id names an active task.
func (t *Tree) IsActive(id int) bool {
	_, ok := t.byID[id]
	return ok
}

// Task returns the active task with the given id.
func (t *Tree) Task(id int) (backend.Task, bool) {
	i, ok := t.byID[id]
	if !ok {
		return backend.Task{}, false
	}
	return t.active[i], true
}

// EffectiveParent returns the parent used for display and editing.
// Unknown ids resolve to Root.
func (t *Tree) EffectiveParent(id int) backend.ParentRef {
	return backend.ParentOf(t.parent[id])
}

// Children returns the active children of parent in display order.
func (t *Tree) Children(parent backend.ParentRef) []backend.Task {
	key, _ := parent.ID()
	ids := t.children[key]
	out := make([]backend.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.active[t.byID[id]])
	}
	return out
}

// Roots returns the active tasks whose effective parent is the root.
func (t *Tree) Roots() []backend.Task {
	return t.Children(backend.Root)
}

// IsDescendant reports whether candidate lies strictly below id.
func (t *Tree) IsDescendant(id, candidate int) bool {
	if !t.IsActive(id) || !t.IsActive(candidate) || id == candidate {
		return false
	}
	e := t.enter[candidate]
	return t.enter[id] < e && e < t.exit[id]
}

// Forbidden reports whether candidate may not become the parent of id:
// the task itself or any of its descendants.
func (t *Tree) Forbidden(id, candidate int) bool {
	return id == candidate || t.IsDescendant(id, candidate)
}

// ForbiddenParents returns {id} plus every descendant of id, ascending.
// An id that is not active yields just {id}.
func (t *Tree) ForbiddenParents(id int) []int {
	out := []int{id}
	for _, task := range t.active {
		if t.IsDescendant(id, task.ID) {
			out = append(out, task.ID)
		}
	}
	slices.Sort(out)
	return out
}

// SelectableParents lists the active tasks that may become the parent of id,
// in display order. Pass 0 for a task that does not exist yet.
func (t *Tree) SelectableParents(id int) []backend.Task {
	out := make([]backend.Task, 0, len(t.active))
	for _, task := range t.active {
		if id != 0 && t.Forbidden(id, task.ID) {
			continue
		}
		out = append(out, task)
	}
	return out
}

// ResolveParent applies the reassignment rules for target: the requested
// parent is kept only when it is an active task outside the forbidden set,
// otherwise the result is Root.
func (t *Tree) ResolveParent(target int, requested backend.ParentRef) backend.ParentRef {
	pid, ok := requested.ID()
	if !ok || !t.IsActive(pid) {
		return backend.Root
	}
	if target != 0 && t.Forbidden(target, pid) {
		return backend.Root
	}
	return requested
}

// IsOverdue reports whether the active task id is due before today.
func (t *Tree) IsOverdue(id int) bool {
	task, ok := t.Task(id)
	return ok && task.DueDate.Before(t.today)
}

// Overdue returns the active tasks due before today, in display order.
func (t *Tree) Overdue() []backend.Task {
	var out []backend.Task
	for _, task := range t.active {
		if task.DueDate.Before(t.today) {
			out = append(out, task)
		}
	}
	return out
}

// Day groups the active tasks due on one date.
type Day struct {
	Date  time.Time      `json:"date"`
	Tasks []backend.Task `json:"tasks"`
}

// Week returns the next WeekDays days starting today with the tasks due on each.
func (t *Tree) Week() []Day {
	days := make([]Day, 0, WeekDays)
	for _, d := range dates.Range(t.today, WeekDays) {
		day := Day{Date: d, Tasks: []backend.Task{}}
		for _, task := range t.active {
			if task.DueDate.Equal(d) {
				day.Tasks = append(day.Tasks, task)
			}
		}
		days = append(days, day)
	}
	return days
}

// Walk visits the active tasks depth-first in display order, passing the depth
// (0 for roots).
func (t *Tree) Walk(fn func(task backend.Task, depth int)) {
	var visit func(parent, depth int)
	visit = func(parent, depth int) {
		for _, id := range t.children[parent] {
			fn(t.active[t.byID[id]], depth)
			visit(id, depth+1)
		}
	}
	visit(rootKey, 0)
}

// Descendants returns the ids of every task below id following the stored
// parent links over the full task set, completed tasks included. Used for
// cascading deletes.
func Descendants(tasks []backend.Task, id int) []int {
	childMap := make(map[int][]int)
	for _, task := range tasks {
		if pid, ok := task.ParentID.ID(); ok {
			childMap[pid] = append(childMap[pid], task.ID)
		}
	}

	var result []int
	seen := map[int]bool{id: true}
	queue := []int{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range childMap[current] {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			result = append(result, childID)
			queue = append(queue, childID)
		}
	}
	return result
}
