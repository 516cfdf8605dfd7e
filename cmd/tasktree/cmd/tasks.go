package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tasktree/backend"
	v1 "tasktree/internal/api/v1"
	"tasktree/internal/cli/prompt"
	"tasktree/internal/dates"
	"tasktree/internal/engine"
	"tasktree/internal/markdown"
	"tasktree/internal/utils"
)

// newShowCmd creates the 'show' command that prints the dashboard
func newShowCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"ls"},
		Short:   "Show the task tree, overdue tasks and scores",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, _ := cmd.Flags().GetString("tag")
			week, _ := cmd.Flags().GetBool("week")
			recent, _ := cmd.Flags().GetBool("recent")
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doShow(ctx, tag, week, recent)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("tag", "t", "", "Only show tasks with this tag (ancestors are kept)")
	cmd.Flags().BoolP("week", "w", false, "Also show the next 7 days")
	cmd.Flags().BoolP("recent", "r", false, "Also show recently completed tasks")
	return cmd
}

func (a *app) doShow(ctx context.Context, tag string, week, recent bool) error {
	d, err := a.engine.Dashboard(ctx)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, v1.NewDashboard(d))
	}

	w := a.stdout
	_, _ = fmt.Fprintf(w, "Tasks (%s)\n", dates.Format(d.Today))
	roots := buildTaskTree(d.Tree, tag)
	if len(roots) == 0 {
		_, _ = fmt.Fprintln(w, "  No active tasks")
	} else {
		printTaskTree(roots, w)
	}

	if len(d.Overdue) > 0 {
		_, _ = fmt.Fprintf(w, "\nOverdue (%d)\n", len(d.Overdue))
		for _, t := range d.Overdue {
			_, _ = fmt.Fprintf(w, "  %s\n", formatTaskLine(t, true))
		}
	}

	if week {
		_, _ = fmt.Fprintln(w, "\nThis week")
		for _, day := range d.Week {
			_, _ = fmt.Fprintf(w, "  %s %s: %d task(s)\n", dates.Format(day.Date), day.Date.Weekday().String()[:3], len(day.Tasks))
			for _, t := range day.Tasks {
				_, _ = fmt.Fprintf(w, "    - #%d %s\n", t.ID, t.Title)
			}
		}
	}

	if recent {
		_, _ = fmt.Fprintln(w, "\nRecently completed")
		if len(d.Recent) == 0 {
			_, _ = fmt.Fprintln(w, "  none")
		}
		for _, t := range d.Recent {
			_, _ = fmt.Fprintf(w, "  %s (%s)\n", formatTaskLine(t, false), backend.FormatTimestamp(t.CompletedAt))
		}
	}

	_, _ = fmt.Fprintf(w, "\nScore: today %d, yesterday %d, last %d days %d\n",
		d.Breakdown[1].Total, d.Breakdown[0].Total, len(d.Scores.Days), d.Scores.Total)
	a.done(ResultInfoOnly)
	return nil
}

// newAddCmd creates the 'add' command
func newAddCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title...]",
		Short: "Add a task",
		Long: `Add a task. The title may carry quick markers:
  !N            score
  @YYYY-MM-DD   due date
  #tag          tag
  *weekly       recurrence (weekly or monthly)
Flags override markers. Without a title the fields are prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				in, err := a.newTaskFromArgs(cmd, args)
				if err != nil {
					return err
				}
				return a.doAdd(ctx, in)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("tag", "t", "", "Tag (unknown tags fall back to the default tag)")
	cmd.Flags().IntP("score", "s", 0, "Score earned on completion (default 30)")
	cmd.Flags().StringP("due", "d", "", "Due date: YYYY-MM-DD, today, tomorrow, +Nd, +Nw, +Nm")
	cmd.Flags().StringP("recur", "r", "", "Recurrence: none, weekly, monthly")
	cmd.Flags().IntP("parent", "P", 0, "Parent task id")
	return cmd
}

// newTaskFromArgs merges quick markers from the title with explicit flags, or
// prompts for every field when no title was given.
func (a *app) newTaskFromArgs(cmd *cobra.Command, args []string) (engine.NewTask, error) {
	if len(args) == 0 {
		adder := &prompt.InteractiveAdder{
			Reader:   a.cfg.stdin(),
			Writer:   a.stdout,
			NoPrompt: a.noPrompt(),
			Now:      a.cfg.now,
		}
		fields, err := adder.Run()
		if errors.Is(err, prompt.ErrNoPromptMode) {
			return engine.NewTask{}, utils.ErrEmptyTitle()
		}
		if err != nil {
			return engine.NewTask{}, err
		}
		return engine.NewTask{
			Title:   fields.Title,
			Tag:     fields.Tag,
			Score:   fields.Score,
			DueDate: fields.DueDate,
			Recur:   fields.Recur,
			Parent:  fields.Parent,
		}, nil
	}

	quick := markdown.ParseTaskText(strings.Join(args, " "))
	in := engine.NewTask{
		Title:   quick.Title,
		Tag:     quick.Tag,
		Score:   quick.Score,
		DueDate: quick.DueDate,
		Recur:   quick.Recur,
	}

	flags := cmd.Flags()
	if flags.Changed("tag") {
		in.Tag, _ = flags.GetString("tag")
	}
	if flags.Changed("score") {
		in.Score, _ = flags.GetInt("score")
		if err := utils.ValidateScore(in.Score); err != nil {
			return in, err
		}
	}
	if flags.Changed("due") {
		text, _ := flags.GetString("due")
		due, err := utils.ParseDateFlag(text, a.cfg.now())
		if err != nil {
			return in, err
		}
		in.DueDate = due
	}
	if flags.Changed("recur") {
		text, _ := flags.GetString("recur")
		recur, err := utils.ParseRecurFlag(text)
		if err != nil {
			return in, err
		}
		in.Recur = recur
	}
	if flags.Changed("parent") {
		id, _ := flags.GetInt("parent")
		in.Parent = backend.ParentOf(id)
	}
	return in, nil
}

func (a *app) doAdd(ctx context.Context, in engine.NewTask) error {
	id, err := a.engine.CreateTask(ctx, in)
	if err != nil {
		return mapEngineError(err)
	}
	t, _, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}

	if !in.Parent.IsRoot() && t.ParentID.IsRoot() {
		a.log.Warn().Str("parent", in.Parent.String()).Msg("parent is not an active task, added at the top level")
	}

	if a.jsonOutput {
		return outputActionJSON(a.stdout, actionResponse{Action: "add", Task: taskToJSON(t), Changed: true})
	}
	_, _ = fmt.Fprintf(a.stdout, "Created task %d: %s\n", t.ID, formatTaskLine(t, false))
	a.done(ResultActionCompleted)
	return nil
}

// resolveTaskID parses the id argument or, when absent, lets the user pick a
// task that the action applies to.
func (a *app) resolveTaskID(ctx context.Context, args []string, action string) (int, error) {
	if len(args) > 0 {
		return utils.ParseTaskID(args[0])
	}

	d, err := a.engine.Dashboard(ctx)
	if err != nil {
		return 0, err
	}
	var candidates []backend.Task
	if action == "undo" {
		candidates = d.Recent
		if a.noPrompt() && len(candidates) > 0 {
			return candidates[0].ID, nil
		}
	} else {
		for _, n := range d.Tree {
			candidates = append(candidates, n.Task)
		}
	}

	selector := &prompt.TaskSelector{
		Tasks:    prompt.FilterTasksByAction(candidates, action, false),
		Prompt:   fmt.Sprintf("Select a task to %s:", action),
		Reader:   a.cfg.stdin(),
		Writer:   a.stdout,
		NoPrompt: a.noPrompt(),
	}
	t, err := selector.Run()
	switch {
	case errors.Is(err, prompt.ErrNoPromptMode):
		return 0, utils.WrapWithSuggestion(errors.New("task id is required"), fmt.Sprintf("Pass the id, e.g. tasktree %s 3", action))
	case errors.Is(err, prompt.ErrNoTasks):
		return 0, utils.WrapWithSuggestion(fmt.Errorf("no tasks to %s", action), "Use 'tasktree show' to see your tasks")
	case err != nil:
		return 0, err
	}
	return t.ID, nil
}

// newDoneCmd creates the 'done' command
func newDoneCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "done [id]",
		Aliases: []string{"complete"},
		Short:   "Complete a task; recurring tasks spawn their next occurrence",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				id, err := a.resolveTaskID(ctx, args, "done")
				if err != nil {
					return err
				}
				return a.doComplete(ctx, id)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) doComplete(ctx context.Context, id int) error {
	c, err := a.engine.CompleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !c.Found {
		return utils.ErrTaskNotFound(id)
	}
	t, _, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		resp := actionResponse{Action: "done", Task: taskToJSON(t), Changed: c.Transitioned}
		if c.SuccessorID != 0 {
			resp.Successor = &c.SuccessorID
		}
		if !c.Transitioned {
			resp.Result = ResultInfoOnly
		}
		return outputActionJSON(a.stdout, resp)
	}

	if !c.Transitioned {
		_, _ = fmt.Fprintf(a.stdout, "Task %d is already completed\n", id)
		a.done(ResultInfoOnly)
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "Completed task %d: %s (+%dpt)\n", t.ID, t.Title, t.Score)
	if c.SuccessorID != 0 {
		if next, ok, _ := a.engine.Task(ctx, c.SuccessorID); ok {
			_, _ = fmt.Fprintf(a.stdout, "Next occurrence: #%d due %s\n", next.ID, dates.Format(next.DueDate))
		}
	}
	a.done(ResultActionCompleted)
	return nil
}

// newUndoCmd creates the 'undo' command
func newUndoCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [id]",
		Short: "Reopen a completed task (default: the most recent completion)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				id, err := a.resolveTaskID(ctx, args, "undo")
				if err != nil {
					return err
				}
				return a.doUndo(ctx, id)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) doUndo(ctx context.Context, id int) error {
	changed, err := a.engine.UndoTask(ctx, id)
	if err != nil {
		return err
	}
	t, ok, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrTaskNotFound(id)
	}

	if a.jsonOutput {
		resp := actionResponse{Action: "undo", Task: taskToJSON(t), Changed: changed}
		if !changed {
			resp.Result = ResultInfoOnly
		}
		return outputActionJSON(a.stdout, resp)
	}
	if !changed {
		_, _ = fmt.Fprintf(a.stdout, "Task %d is not completed\n", id)
		a.done(ResultInfoOnly)
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "Reopened task %d: %s\n", t.ID, t.Title)
	a.done(ResultActionCompleted)
	return nil
}

// newRescheduleCmd creates the 'reschedule' command
func newRescheduleCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule [id] [date]",
		Short: fmt.Sprintf("Move an active task to a new date (+%dpt)", engine.RescheduleBonus),
		Long: fmt.Sprintf(`Move an active task to a new due date. Every reschedule adds %d to the score.
The date accepts YYYY-MM-DD, today, tomorrow, +Nd, +Nw and +Nm; it defaults to today.`, engine.RescheduleBonus),
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				id, err := a.resolveTaskID(ctx, args, "reschedule")
				if err != nil {
					return err
				}
				var dateText string
				if len(args) > 1 {
					dateText = args[1]
				}
				due, err := utils.ParseDateFlag(dateText, a.cfg.now())
				if err != nil {
					return err
				}
				return a.doReschedule(ctx, id, due)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) doReschedule(ctx context.Context, id int, due time.Time) error {
	changed, err := a.engine.RescheduleTask(ctx, id, due)
	if err != nil {
		return err
	}
	t, ok, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrTaskNotFound(id)
	}
	if !changed {
		return utils.WrapWithSuggestion(fmt.Errorf("task %d is completed", id), fmt.Sprintf("Reopen it first with 'tasktree undo %d'", id))
	}

	if a.jsonOutput {
		return outputActionJSON(a.stdout, actionResponse{Action: "reschedule", Task: taskToJSON(t), Changed: true})
	}
	_, _ = fmt.Fprintf(a.stdout, "Rescheduled task %d to %s (score %d)\n", t.ID, dates.Format(t.DueDate), t.Score)
	a.done(ResultActionCompleted)
	return nil
}

// newUpdateCmd creates the 'update' command
func newUpdateCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change the tag or parent of an active task",
		Long: `Change the tag or parent of an active task.
Unknown tags fall back to the default tag. A parent that is not an active task,
or that is the task itself or one of its subtasks, moves the task to the top level.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd engine.MetadataUpdate
			if cmd.Flags().Changed("tag") {
				tag, _ := cmd.Flags().GetString("tag")
				upd.Tag = &tag
			}
			noParent, _ := cmd.Flags().GetBool("no-parent")
			switch {
			case noParent:
				root := backend.Root
				upd.Parent = &root
			case cmd.Flags().Changed("parent"):
				pid, _ := cmd.Flags().GetInt("parent")
				p := backend.ParentOf(pid)
				upd.Parent = &p
			}
			if upd.Tag == nil && upd.Parent == nil {
				return utils.WrapWithSuggestion(errors.New("nothing to update"), "Pass --tag, --parent or --no-parent")
			}

			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				id, err := a.resolveTaskID(ctx, args, "update")
				if err != nil {
					return err
				}
				return a.doUpdate(ctx, id, upd)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("tag", "t", "", "New tag")
	cmd.Flags().IntP("parent", "P", 0, "New parent task id")
	cmd.Flags().Bool("no-parent", false, "Move the task to the top level")
	return cmd
}

func (a *app) doUpdate(ctx context.Context, id int, upd engine.MetadataUpdate) error {
	changed, err := a.engine.UpdateTask(ctx, id, upd)
	if err != nil {
		return err
	}
	t, ok, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrTaskNotFound(id)
	}
	if t.Completed {
		return utils.WrapWithSuggestion(fmt.Errorf("task %d is completed", id), fmt.Sprintf("Reopen it first with 'tasktree undo %d'", id))
	}

	if a.jsonOutput {
		resp := actionResponse{Action: "update", Task: taskToJSON(t), Changed: changed}
		if !changed {
			resp.Result = ResultInfoOnly
		}
		return outputActionJSON(a.stdout, resp)
	}
	if !changed {
		_, _ = fmt.Fprintf(a.stdout, "Task %d unchanged\n", id)
		a.done(ResultInfoOnly)
		return nil
	}
	parent := "top level"
	if !t.ParentID.IsRoot() {
		parent = "#" + t.ParentID.String()
	}
	_, _ = fmt.Fprintf(a.stdout, "Updated task %d: tag %s, parent %s\n", t.ID, t.Tag, parent)
	a.done(ResultActionCompleted)
	return nil
}

// newDeleteCmd creates the 'delete' command
func newDeleteCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a task and all of its subtasks",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				id, err := a.resolveTaskID(ctx, args, "delete")
				if err != nil {
					return err
				}
				return a.doDelete(ctx, id)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) doDelete(ctx context.Context, id int) error {
	t, ok, err := a.engine.Task(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.ErrTaskNotFound(id)
	}

	confirm := &prompt.Confirm{Reader: a.cfg.stdin(), Writer: a.stdout, NoPrompt: a.noPrompt()}
	if !confirm.Ask(fmt.Sprintf("Delete task %d %q and all of its subtasks?", t.ID, t.Title)) {
		_, _ = fmt.Fprintln(a.stdout, "Cancelled")
		return nil
	}

	removed, err := a.engine.DeleteTask(ctx, id)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		return outputActionJSON(a.stdout, actionResponse{Action: "delete", Task: taskToJSON(t), DeletedIDs: removed, Changed: len(removed) > 0})
	}
	_, _ = fmt.Fprintf(a.stdout, "Deleted %d task(s): %s\n", len(removed), joinIDs(removed))
	a.done(ResultActionCompleted)
	return nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}
