package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/moby/sys/atomicwriter"
	"github.com/spf13/cobra"

	"tasktree/internal/markdown"
	"tasktree/internal/rules"
	"tasktree/internal/server"
	"tasktree/internal/shutdown"
	"tasktree/internal/tui"
)

const shutdownTimeout = 10 * time.Second

// newExportCmd creates the 'export' command
func newExportCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the active tree, overdue and recent tasks as markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				d, err := a.engine.Dashboard(ctx)
				if err != nil {
					return err
				}
				text := markdown.Export(d)
				if out == "" {
					_, _ = fmt.Fprint(a.stdout, text)
					return nil
				}
				if err := atomicwriter.WriteFile(out, []byte(text), 0644); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				_, _ = fmt.Fprintf(a.stdout, "Exported to %s\n", out)
				a.done(ResultActionCompleted)
				return nil
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// watchRules starts the keyword rule hot reload. A failure only disables
// reloading; the file is still read on demand.
func (a *app) watchRules(ctx context.Context) {
	if err := a.rules.Watch(ctx); err != nil {
		a.log.Warn().Err(err).Str("path", a.rules.Path()).Msg("keyword rule reload disabled")
		return
	}
	if err := a.rules.Reload(); err != nil && !errors.Is(err, rules.ErrNoRuleFile) {
		a.log.Debug().Err(err).Msg("initial keyword rule load failed")
	}
}

// newServeCmd creates the 'serve' command that runs the HTTP API
func newServeCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API under /api/v1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			a, err := openApp(cmd, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context(), addr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	mgr := shutdown.NewManager(ctx, a.log)
	stop := mgr.Notify(os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.watchRules(mgr.Context())

	serverCfg := a.conf.Server
	if addr != "" {
		serverCfg.Addr = addr
	}
	srv := server.New(mgr.Context(), serverCfg, a.engine, a.log)
	mgr.RegisterCleanup("http", srv.Shutdown)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(mgr.Context()) }()
	_, _ = fmt.Fprintf(a.stdout, "Serving on http://%s/api/v1\n", srv.Addr())

	var serveErr error
	select {
	case serveErr = <-errCh:
		mgr.Shutdown()
	case <-mgr.Done():
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := mgr.Wait(waitCtx); err != nil {
		a.log.Warn().Err(err).Msg("shutdown timed out")
	}
	return serveErr
}

// newTUICmd creates the 'tui' command
func newTUICmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the task tree in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				a.watchRules(ctx)

				p := tea.NewProgram(
					tui.New(a.engine).WithContext(ctx),
					tea.WithAltScreen(),
					tea.WithContext(ctx),
					tea.WithInput(a.cfg.stdin()),
					tea.WithOutput(a.stdout),
				)
				_, err := p.Run()
				return err
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newAnalyticsCmd creates the 'analytics' command
func newAnalyticsCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show local command usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.doAnalyticsSummary(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete events older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			a, err := openApp(cmd, cfg, stdout, stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.tracker == nil {
				return errors.New("analytics database unavailable")
			}
			if days <= 0 {
				days = a.conf.GetAnalyticsRetentionDays()
			}
			n, err := a.tracker.Cleanup(days)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "Removed %d event(s) older than %d days\n", n, days)
			a.done(ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cleanupCmd.Flags().Int("days", 0, "Retention in days (default from config)")
	analyticsCmd.AddCommand(cleanupCmd)

	return analyticsCmd
}

func (a *app) doAnalyticsSummary(ctx context.Context) error {
	if a.tracker == nil {
		return errors.New("analytics database unavailable")
	}
	a.tracker.Flush()
	stats, err := a.tracker.Summary(ctx)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"commands": stats, "result": ResultInfoOnly})
	}
	if len(stats) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No commands recorded")
		a.done(ResultInfoOnly)
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "%-14s %6s %8s %10s\n", "COMMAND", "RUNS", "FAILED", "AVG MS")
	for _, s := range stats {
		_, _ = fmt.Fprintf(a.stdout, "%-14s %6d %8d %10d\n", s.Command, s.Runs, s.Failures, s.AvgDurationMs)
	}
	a.done(ResultInfoOnly)
	return nil
}
