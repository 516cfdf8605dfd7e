package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
)

type taskJSON struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Tag         string  `json:"tag"`
	Score       int     `json:"score"`
	DueDate     string  `json:"due_date"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	ParentID    *int    `json:"parent_id,omitempty"`
	Recur       string  `json:"recur"`
}

type actionResponse struct {
	Action     string   `json:"action"`
	Task       taskJSON `json:"task"`
	Successor  *int     `json:"successor_id,omitempty"`
	DeletedIDs []int    `json:"deleted_ids,omitempty"`
	Changed    bool     `json:"changed"`
	Result     string   `json:"result"`
}

type tagsResponse struct {
	Tags       []string `json:"tags"`
	DefaultTag string   `json:"default_tag"`
	Result     string   `json:"result"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

// taskToJSON converts a backend.Task to taskJSON
func taskToJSON(t backend.Task) taskJSON {
	result := taskJSON{
		ID:        t.ID,
		Title:     t.Title,
		Tag:       t.Tag,
		Score:     t.Score,
		DueDate:   dates.Format(t.DueDate),
		Completed: t.Completed,
		Recur:     string(t.Recur),
	}
	if t.CompletedAt != nil {
		s := backend.FormatTimestamp(t.CompletedAt)
		result.CompletedAt = &s
	}
	if id, ok := t.ParentID.ID(); ok {
		result.ParentID = &id
	}
	return result
}

func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(jsonBytes))
	return nil
}

// outputActionJSON outputs an action result in JSON format
func outputActionJSON(w io.Writer, resp actionResponse) error {
	if resp.Result == "" {
		resp.Result = ResultActionCompleted
	}
	return writeJSON(w, resp)
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	_ = writeJSON(stdout, errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	})
}

// taskNode represents a task with its children for tree building
type taskNode struct {
	node     engine.Node
	children []*taskNode
}

// buildTaskTree regroups the depth-first dashboard tree by effective parent,
// keeping display order. tag filters the visible tasks; ancestors of a
// matching task are kept so the path stays readable.
func buildTaskTree(nodes []engine.Node, tag string) []*taskNode {
	keep := make(map[int]bool, len(nodes))
	byID := make(map[int]engine.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if tag != "" && n.Tag != tag {
			continue
		}
		for cur, ok := n, true; ok && !keep[cur.ID]; {
			keep[cur.ID] = true
			pid, has := cur.EffectiveParent.ID()
			if !has {
				break
			}
			cur, ok = byID[pid]
		}
	}

	nodeMap := make(map[int]*taskNode)
	var roots []*taskNode
	for _, n := range nodes {
		if !keep[n.ID] {
			continue
		}
		tn := &taskNode{node: n}
		nodeMap[n.ID] = tn
		if pid, ok := n.EffectiveParent.ID(); ok {
			if parent, found := nodeMap[pid]; found {
				parent.children = append(parent.children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}
	return roots
}

// printTaskTree prints tasks in a tree structure with box-drawing characters
func printTaskTree(roots []*taskNode, stdout io.Writer) {
	for i, node := range roots {
		printTaskNode(node, "", i == len(roots)-1, stdout)
	}
}

// printTaskNode recursively prints a task node with tree visualization
func printTaskNode(node *taskNode, prefix string, isLast bool, stdout io.Writer) {
	var treeChar string
	if prefix == "" {
		treeChar = "  "
	} else if isLast {
		treeChar = "└─ "
	} else {
		treeChar = "├─ "
	}

	_, _ = fmt.Fprintf(stdout, "%s%s%s\n", prefix, treeChar, formatTaskLine(node.node.Task, node.node.Overdue))

	var childPrefix string
	if prefix == "" {
		childPrefix = "  "
	} else if isLast {
		childPrefix = prefix + "   "
	} else {
		childPrefix = prefix + "│  "
	}

	for i, child := range node.children {
		printTaskNode(child, childPrefix, i == len(node.children)-1, stdout)
	}
}

// getStatusIcon returns the checkbox for a task
func getStatusIcon(t backend.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

// formatTaskLine renders "[ ] #3 Title (30pt, due 2024-03-10) {tag} ↻weekly OVERDUE"
func formatTaskLine(t backend.Task, overdue bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d %s (%dpt, due %s) {%s}", getStatusIcon(t), t.ID, t.Title, t.Score, dates.Format(t.DueDate), t.Tag)
	if t.Recur != backend.RecurNone && t.Recur != "" {
		sb.WriteString(" ↻" + string(t.Recur))
	}
	if overdue {
		sb.WriteString(" OVERDUE")
	}
	return sb.String()
}
