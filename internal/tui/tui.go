// Package tui provides a terminal user interface for browsing and editing the
// task tree.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasktree/backend"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
	"tasktree/internal/markdown"
	"tasktree/internal/utils"
)

// Backend is the subset of *engine.Engine the interface drives.
type Backend interface {
	Dashboard(ctx context.Context) (*engine.Dashboard, error)
	CreateTask(ctx context.Context, in engine.NewTask) (int, error)
	CompleteTask(ctx context.Context, id int) (engine.Completion, error)
	UndoTask(ctx context.Context, id int) (bool, error)
	RescheduleTask(ctx context.Context, id int, due time.Time) (bool, error)
	UpdateTask(ctx context.Context, id int, upd engine.MetadataUpdate) (bool, error)
	DeleteTask(ctx context.Context, id int) ([]int, error)
}

// Focus indicates which pane has focus
type Focus int

const (
	FocusTags Focus = iota
	FocusTasks
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeAddChild
	ModeReschedule
	ModeTag
	ModeParent
	ModeFilter
	ModeHelp
	ModeConfirmDelete
)

// allTags is the first entry of the tag pane and disables tag filtering.
const allTags = "All"

// Model represents the TUI state
type Model struct {
	backend Backend
	ctx     context.Context
	now     func() time.Time

	// Data
	dash    *engine.Dashboard
	visible []engine.Node

	// Selection
	tagCursor  int
	taskCursor int
	focus      Focus

	// Mode and input
	mode      Mode
	textInput textinput.Model
	filter    string
	status    string

	// UI dimensions
	width  int
	height int

	// Styles
	tagPaneStyle   lipgloss.Style
	taskPaneStyle  lipgloss.Style
	selectedStyle  lipgloss.Style
	overdueStyle   lipgloss.Style
	subtaskStyle   lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

// Message types
type dashboardLoadedMsg struct {
	dash *engine.Dashboard
}

type opDoneMsg struct {
	status string
}

type errMsg struct {
	err error
}

// New creates a new TUI model
func New(b Backend) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text..."
	ti.CharLimit = 256

	return &Model{
		backend:   b,
		ctx:       context.Background(),
		now:       time.Now,
		textInput: ti,
		focus:     FocusTasks,
		mode:      ModeNormal,
		tagPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		taskPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		overdueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		subtaskStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}
}

// WithContext sets the context used for backend calls.
func (m *Model) WithContext(ctx context.Context) *Model {
	m.ctx = ctx
	return m
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	return m.loadDashboard()
}

// Reload returns a message that makes a running program refresh its data,
// for use with tea.Program.Send when the store changes underneath it.
func Reload() tea.Msg {
	return opDoneMsg{}
}

func (m *Model) loadDashboard() tea.Cmd {
	return func() tea.Msg {
		d, err := m.backend.Dashboard(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return dashboardLoadedMsg{d}
	}
}

// run executes a backend operation and reports status on success.
func (m *Model) run(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		if err != nil {
			return errMsg{err}
		}
		return opDoneMsg{status}
	}
}

func (m *Model) selected() (engine.Node, bool) {
	if m.taskCursor < 0 || m.taskCursor >= len(m.visible) {
		return engine.Node{}, false
	}
	return m.visible[m.taskCursor], true
}

func (m *Model) tagItems() []string {
	items := []string{allTags}
	if m.dash != nil {
		items = append(items, m.dash.Tags...)
	}
	return items
}

func (m *Model) createTask(text string, parent backend.ParentRef) tea.Cmd {
	q := markdown.ParseTaskText(text)
	in := engine.NewTask{
		Title:   q.Title,
		Tag:     q.Tag,
		Score:   q.Score,
		DueDate: q.DueDate,
		Recur:   q.Recur,
		Parent:  parent,
	}
	return m.run(func() (string, error) {
		id, err := m.backend.CreateTask(m.ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created task %d", id), nil
	})
}

func (m *Model) completeTask(id int) tea.Cmd {
	return m.run(func() (string, error) {
		c, err := m.backend.CompleteTask(m.ctx, id)
		if err != nil {
			return "", err
		}
		if c.SuccessorID != 0 {
			return fmt.Sprintf("Completed task %d, next occurrence is %d", id, c.SuccessorID), nil
		}
		return fmt.Sprintf("Completed task %d", id), nil
	})
}

func (m *Model) undoLatest() tea.Cmd {
	if m.dash == nil || len(m.dash.Recent) == 0 {
		return nil
	}
	id := m.dash.Recent[0].ID
	return m.run(func() (string, error) {
		if _, err := m.backend.UndoTask(m.ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reopened task %d", id), nil
	})
}

func (m *Model) rescheduleTask(id int, text string) tea.Cmd {
	due, err := utils.ParseDateFlag(text, m.now())
	if err != nil {
		return func() tea.Msg { return errMsg{err} }
	}
	return m.run(func() (string, error) {
		if _, err := m.backend.RescheduleTask(m.ctx, id, due); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rescheduled task %d (+%d)", id, engine.RescheduleBonus), nil
	})
}

func (m *Model) updateTask(id int, upd engine.MetadataUpdate) tea.Cmd {
	return m.run(func() (string, error) {
		if _, err := m.backend.UpdateTask(m.ctx, id, upd); err != nil {
			return "", err
		}
		return fmt.Sprintf("Updated task %d", id), nil
	})
}

func (m *Model) deleteTask(id int) tea.Cmd {
	return m.run(func() (string, error) {
		removed, err := m.backend.DeleteTask(m.ctx, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %d task(s)", len(removed)), nil
	})
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashboardLoadedMsg:
		m.dash = msg.dash
		if m.tagCursor >= len(m.tagItems()) {
			m.tagCursor = 0
		}
		m.applyFilter()
		return m, nil

	case opDoneMsg:
		if msg.status != "" {
			m.status = msg.status
		}
		return m, m.loadDashboard()

	case errMsg:
		m.status = "Error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAdd, ModeAddChild, ModeReschedule, ModeTag, ModeParent:
			return m.handleInputMode(msg)
		case ModeFilter:
			return m.handleFilterMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "tab":
			if m.focus == FocusTags {
				m.focus = FocusTasks
			} else {
				m.focus = FocusTags
			}
			return m, nil

		case "up", "k":
			if m.focus == FocusTags {
				if m.tagCursor > 0 {
					m.tagCursor--
					m.applyFilter()
				}
			} else if m.taskCursor > 0 {
				m.taskCursor--
			}
			return m, nil

		case "down", "j":
			if m.focus == FocusTags {
				if m.tagCursor < len(m.tagItems())-1 {
					m.tagCursor++
					m.applyFilter()
				}
			} else if m.taskCursor < len(m.visible)-1 {
				m.taskCursor++
			}
			return m, nil

		case "a":
			return m.openInput(ModeAdd, "Title !score @YYYY-MM-DD #tag *weekly", "")

		case "A":
			if _, ok := m.selected(); ok {
				return m.openInput(ModeAddChild, "Subtask title...", "")
			}
			return m, nil

		case "c":
			if node, ok := m.selected(); ok {
				return m, m.completeTask(node.ID)
			}
			return m, nil

		case "u":
			return m, m.undoLatest()

		case "r":
			if _, ok := m.selected(); ok {
				return m.openInput(ModeReschedule, "YYYY-MM-DD, tomorrow, +Nd...", "tomorrow")
			}
			return m, nil

		case "t":
			if node, ok := m.selected(); ok {
				return m.openInput(ModeTag, "Tag name", node.Tag)
			}
			return m, nil

		case "p":
			if node, ok := m.selected(); ok {
				current := ""
				if !node.EffectiveParent.IsRoot() {
					current = node.EffectiveParent.String()
				}
				return m.openInput(ModeParent, "Parent id (empty for root)", current)
			}
			return m, nil

		case "d":
			if _, ok := m.selected(); ok {
				m.mode = ModeConfirmDelete
			}
			return m, nil

		case "/":
			return m.openInput(ModeFilter, "Search...", m.filter)

		case "?":
			m.mode = ModeHelp
			return m, nil
		}
	}

	if m.mode != ModeNormal && m.mode != ModeHelp && m.mode != ModeConfirmDelete {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) openInput(mode Mode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.textInput.Reset()
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue(value)
	m.textInput.Focus()
	return m, textinput.Blink
}

func (m *Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		mode := m.mode
		m.mode = ModeNormal
		return m, m.submit(mode, strings.TrimSpace(m.textInput.Value()))

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) submit(mode Mode, value string) tea.Cmd {
	if mode == ModeAdd {
		if value == "" {
			return nil
		}
		return m.createTask(value, backend.Root)
	}

	node, ok := m.selected()
	if !ok {
		return nil
	}

	switch mode {
	case ModeAddChild:
		if value == "" {
			return nil
		}
		return m.createTask(value, backend.ParentOf(node.ID))
	case ModeReschedule:
		return m.rescheduleTask(node.ID, value)
	case ModeTag:
		if value == "" {
			return nil
		}
		return m.updateTask(node.ID, engine.MetadataUpdate{Tag: &value})
	case ModeParent:
		parent := backend.Root
		if value != "" {
			id, err := strconv.Atoi(value)
			if err != nil {
				return func() tea.Msg { return errMsg{utils.ErrInvalidTaskID(value)} }
			}
			parent = backend.ParentOf(id)
		}
		return m.updateTask(node.ID, engine.MetadataUpdate{Parent: &parent})
	}
	return nil
}

func (m *Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		m.filter = m.textInput.Value()
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEsc:
		m.filter = ""
		m.applyFilter()
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.mode = ModeNormal
		return m, nil
	}

	if msg.String() == "q" {
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		if node, ok := m.selected(); ok {
			return m, m.deleteTask(node.ID)
		}
		return m, nil

	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) applyFilter() {
	m.visible = nil
	if m.dash == nil {
		m.taskCursor = 0
		return
	}

	tag := m.tagItems()[m.tagCursor]
	needle := strings.ToLower(m.filter)
	for _, node := range m.dash.Tree {
		if tag != allTags && node.Tag != tag {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(node.Title), needle) {
			continue
		}
		m.visible = append(m.visible, node)
	}
	if m.taskCursor >= len(m.visible) {
		m.taskCursor = max(len(m.visible)-1, 0)
	}
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeAdd:
		return m.renderInputDialog("Add Task")
	case ModeAddChild:
		return m.renderInputDialog("Add Subtask of " + m.selectedTitle())
	case ModeReschedule:
		return m.renderInputDialog(fmt.Sprintf("Reschedule %s (+%d)", m.selectedTitle(), engine.RescheduleBonus))
	case ModeTag:
		return m.renderInputDialog("Tag for " + m.selectedTitle())
	case ModeParent:
		return m.renderParentDialog()
	case ModeFilter:
		return m.renderInputDialog("Search/Filter Tasks")
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	}

	tagWidth := m.width / 4
	taskWidth := m.width - tagWidth - 4

	tagPane := m.tagPaneStyle.Width(tagWidth).Height(m.height - 4).Render(m.renderTagPane(tagWidth - 4))
	taskPane := m.taskPaneStyle.Width(taskWidth).Height(m.height - 4).Render(m.renderTaskPane(taskWidth - 4))

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tagPane, taskPane))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) selectedTitle() string {
	if node, ok := m.selected(); ok {
		return node.Title
	}
	return ""
}

func (m *Model) renderTagPane(width int) string {
	var b strings.Builder
	b.WriteString("Tags\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	for i, tag := range m.tagItems() {
		cursor := " "
		name := tag
		if i == m.tagCursor {
			cursor = ">"
			if m.focus == FocusTags {
				name = m.selectedStyle.Render(name)
			}
		}
		b.WriteString(cursor + " " + name + "\n")
	}

	return b.String()
}

func (m *Model) renderTaskPane(width int) string {
	var b strings.Builder
	b.WriteString("Tasks\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	if len(m.visible) == 0 {
		b.WriteString("No tasks\n")
		return b.String()
	}

	for i, node := range m.visible {
		cursor := " "
		if i == m.taskCursor && m.focus == FocusTasks {
			cursor = ">"
		}

		indent := ""
		if node.Depth > 0 {
			indent = strings.Repeat("  ", node.Depth-1) + "└─"
		}

		title := node.Title
		switch {
		case i == m.taskCursor && m.focus == FocusTasks:
			title = m.selectedStyle.Render(title)
		case node.Overdue:
			title = m.overdueStyle.Render(title)
		case node.Depth > 0:
			title = m.subtaskStyle.Render(title)
		}

		meta := fmt.Sprintf("#%d %dpt %s", node.ID, node.Score, dates.Format(node.DueDate))
		if node.Recur == backend.RecurWeekly || node.Recur == backend.RecurMonthly {
			meta += " " + string(node.Recur)
		}
		b.WriteString(cursor + " " + indent + "[ ] " + title + " " + m.helpStyle.Render(meta) + "\n")
	}

	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := m.status
	if m.dash != nil && left == "" {
		left = fmt.Sprintf("Today %d pts  14d %d pts  Overdue %d",
			m.dash.Breakdown[1].Total, m.dash.Scores.Total, len(m.dash.Overdue))
	}

	right := "q:quit  ?:help"
	if m.filter != "" {
		right = "Filter: " + m.filter + "  " + right
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderInputDialog(title string) string {
	dialog := m.dialogStyle.Render(
		title + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render("Enter: confirm  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderParentDialog() string {
	var choices []string
	if node, ok := m.selected(); ok && m.dash != nil {
		forbidden := make(map[int]bool, len(node.ForbiddenParents))
		for _, id := range node.ForbiddenParents {
			forbidden[id] = true
		}
		for _, t := range m.dash.SelectableParents {
			if !forbidden[t.ID] {
				choices = append(choices, fmt.Sprintf("%d %s", t.ID, t.Title))
			}
		}
	}
	if len(choices) > 8 {
		choices = append(choices[:8], "...")
	}

	dialog := m.dialogStyle.Render(
		"Parent for " + m.selectedTitle() + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render(strings.Join(choices, "\n")) + "\n\n" +
			m.helpStyle.Render("Enter: confirm  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  Tab    Switch focus between tags/tasks

Actions:
  a      Add task (!score @date #tag *weekly)
  A      Add subtask under selected task
  c      Complete selected task
  u      Reopen the latest completed task
  r      Reschedule selected task
  t      Change tag
  p      Change parent
  d      Delete task and subtasks (with confirm)
  /      Search/filter tasks

General:
  ?      Show this help
  q      Quit

Press any key to close`

	return m.centerDialog(m.dialogStyle.Render(help))
}

func (m *Model) renderConfirmDeleteDialog() string {
	dialog := m.dialogStyle.Render(
		"Delete " + m.selectedTitle() + " and its subtasks?\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	dialogHeight := len(lines)
	dialogWidth := lipgloss.Width(dialog)

	topPad := max((m.height-dialogHeight)/2, 0)
	leftPad := max((m.width-dialogWidth)/2, 0)

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
