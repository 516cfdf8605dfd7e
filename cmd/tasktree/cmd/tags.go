package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tasktree/internal/utils"
)

// newTagCmd creates the 'tag' command for tag management
func newTagCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
		Long:  "List tags or manage them with subcommands. The default tag always exists.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doTagList(ctx)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	tagCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doTagList(ctx)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	tagCmd.AddCommand(&cobra.Command{
		Use:   "add [name]",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doTagAdd(ctx, args[0])
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	tagCmd.AddCommand(&cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a tag, moving its tasks to the default tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doTagDelete(ctx, args[0])
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return tagCmd
}

func (a *app) doTagList(ctx context.Context) error {
	tags, err := a.engine.Tags(ctx)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, tagsResponse{Tags: tags, DefaultTag: a.engine.DefaultTag(), Result: ResultInfoOnly})
	}
	for _, t := range tags {
		if t == a.engine.DefaultTag() {
			_, _ = fmt.Fprintf(a.stdout, "%s (default)\n", t)
			continue
		}
		_, _ = fmt.Fprintln(a.stdout, t)
	}
	a.done(ResultInfoOnly)
	return nil
}

func (a *app) doTagAdd(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return utils.WrapWithSuggestion(fmt.Errorf("tag name is empty"), "Pass a name, e.g. tasktree tag add work")
	}
	added, err := a.engine.AddTag(ctx, name)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"action": "tag add", "tag": name, "changed": added, "result": ResultActionCompleted})
	}
	if !added {
		_, _ = fmt.Fprintf(a.stdout, "Tag %s already exists\n", name)
		a.done(ResultInfoOnly)
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "Added tag %s\n", name)
	a.done(ResultActionCompleted)
	return nil
}

func (a *app) doTagDelete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == a.engine.DefaultTag() {
		return utils.WrapWithSuggestion(fmt.Errorf("the default tag %s cannot be deleted", name), "Set default_tag in the config file to use another default")
	}
	tags, err := a.engine.Tags(ctx)
	if err != nil {
		return err
	}
	known := false
	for _, t := range tags {
		if t == name {
			known = true
			break
		}
	}
	if !known {
		return utils.ErrTagNotFound(name)
	}

	moved, err := a.engine.DeleteTag(ctx, name)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"action": "tag delete", "tag": name, "moved": moved, "result": ResultActionCompleted})
	}
	_, _ = fmt.Fprintf(a.stdout, "Deleted tag %s (%d task(s) moved to %s)\n", name, moved, a.engine.DefaultTag())
	a.done(ResultActionCompleted)
	return nil
}
