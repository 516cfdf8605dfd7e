package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tasktree/backend"
	"tasktree/internal/analytics"
	"tasktree/internal/config"
	"tasktree/internal/engine"
	"tasktree/internal/rules"
	"tasktree/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds per-invocation settings that are not part of the config file.
// Tests use it to isolate every run.
type Config struct {
	NoPrompt      bool
	Verbose       bool
	OutputFormat  string
	ConfigPath    string           // config.yaml location (default: XDG config dir)
	DBPath        string           // overrides backends.sqlite.path
	AnalyticsPath string           // analytics database (default: XDG data dir)
	Stdin         io.Reader        // prompt input (default: os.Stdin)
	Now           func() time.Time // clock (default: time.Now)
}

func (c *Config) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewTaskTree(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if containsJSONFlag(args) || (cfg != nil && cfg.OutputFormat == "json") {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			if cfg != nil && cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewTaskTree creates the root command with injectable IO
func NewTaskTree(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "tasktree",
		Short:   "A hierarchical task tracker with recurring tasks and scores",
		Long:    "tasktree tracks tasks in a parent/child tree, repeats weekly and monthly tasks, and scores completed work.",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("backend", "b", "", "Storage backend (sqlite, file, postgres, redis, memory)")
	cmd.PersistentFlags().String("config", "", "Config file path")

	cmd.AddCommand(
		newShowCmd(stdout, stderr, cfg),
		newAddCmd(stdout, stderr, cfg),
		newDoneCmd(stdout, stderr, cfg),
		newUndoCmd(stdout, stderr, cfg),
		newRescheduleCmd(stdout, stderr, cfg),
		newUpdateCmd(stdout, stderr, cfg),
		newDeleteCmd(stdout, stderr, cfg),
		newTagCmd(stdout, stderr, cfg),
		newRulesCmd(stdout, stderr, cfg),
		newExportCmd(stdout, stderr, cfg),
		newServeCmd(stdout, stderr, cfg),
		newTUICmd(stdout, stderr, cfg),
		newAnalyticsCmd(stdout, stderr, cfg),
	)

	return cmd
}

// app bundles everything a command needs for one invocation.
type app struct {
	cfg         *Config
	conf        *config.Config
	store       backend.Store
	backendName string
	rules       *rules.FileSource
	ruleSource  backend.RuleSource
	engine      *engine.Engine
	tracker     *analytics.Tracker
	log         zerolog.Logger
	stdout      io.Writer
	stderr      io.Writer
	jsonOutput  bool
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, cfg *Config) (*config.Config, error) {
	path := cfg.ConfigPath
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		path = p
	}
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	noPrompt, _ := cmd.Flags().GetBool("no-prompt")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	backendName, _ := cmd.Flags().GetString("backend")
	outputFormat := cfg.OutputFormat
	if jsonOutput {
		outputFormat = "json"
	}
	conf.ApplyFlags(noPrompt || cfg.NoPrompt, outputFormat, backendName)

	if err := conf.Validate(); err != nil {
		return nil, utils.WrapWithSuggestion(err, "Fix the value in "+conf.Path())
	}
	return conf, nil
}

// openApp loads configuration, configures logging and opens the store,
// rules and analytics for one command.
func openApp(cmd *cobra.Command, cfg *Config, stdout, stderr io.Writer) (*app, error) {
	conf, err := loadConfig(cmd, cfg)
	if err != nil {
		return nil, err
	}

	if err := utils.Configure(stderr, conf.Logging.Level, conf.Logging.Format); err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	utils.SetVerboseMode(verbose || cfg.Verbose)
	logger := utils.GetLogger().Zerolog()

	store, name, err := openStore(cmd.Context(), conf, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("backend", name).Msg("store opened")

	fileRules := rules.NewFileSource(conf.GetKeywordRulesPath(), logger)
	var ruleSource backend.RuleSource = fileRules
	if rs, ok := store.(backend.RuleSource); ok {
		ruleSource = rules.Fallback{Primary: fileRules, Secondary: rs}
	}

	a := &app{
		cfg:         cfg,
		conf:        conf,
		store:       store,
		backendName: name,
		rules:       fileRules,
		ruleSource:  ruleSource,
		log:         logger,
		stdout:      stdout,
		stderr:      stderr,
		jsonOutput:  conf.OutputFormat == "json",
	}
	a.engine = engine.New(store, engine.Options{
		DefaultTag:  conf.DefaultTag,
		RecentLimit: conf.RecentLimit,
		Rules:       ruleSource,
		Now:         cfg.Now,
		Logger:      logger,
	})

	analyticsPath := cfg.AnalyticsPath
	if analyticsPath == "" {
		analyticsPath = filepath.Join(config.GetDataDir(), "analytics.db")
	}
	tracker, err := analytics.NewTracker(analyticsPath, analytics.IsEnabledFromEnv(conf.IsAnalyticsEnabled()))
	if err != nil {
		logger.Debug().Err(err).Msg("analytics unavailable")
	} else {
		a.tracker = tracker
		if days := conf.GetAnalyticsRetentionDays(); days > 0 {
			_, _ = tracker.Cleanup(days)
		}
	}
	return a, nil
}

// Close releases the store and flushes analytics.
func (a *app) Close() {
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}

// noPrompt reports whether interactive prompts are disabled.
func (a *app) noPrompt() bool {
	return a.conf.NoPrompt
}

// track runs fn and records the command in analytics.
func (a *app) track(cmd *cobra.Command, fn func() error) error {
	if a.tracker == nil {
		return fn()
	}
	name, sub := commandPath(cmd)
	return a.tracker.TrackCommand(name, sub, a.backendName, changedFlags(cmd), fn)
}

// commandPath splits "tasktree tag add" into ("tag", "add").
func commandPath(cmd *cobra.Command) (string, string) {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) > 0 {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// changedFlags lists the flags set on the command line, without values.
func changedFlags(cmd *cobra.Command) []string {
	var flags []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags = append(flags, "--"+f.Name)
	})
	return flags
}

// runWithApp opens the app, runs fn under analytics tracking and closes it.
func runWithApp(cmd *cobra.Command, cfg *Config, stdout, stderr io.Writer, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.track(cmd, func() error {
		return fn(cmd.Context(), a)
	})
}

// done prints the no-prompt result code after a mutation.
func (a *app) done(code string) {
	if a.noPrompt() && !a.jsonOutput {
		_, _ = fmt.Fprintln(a.stdout, code)
	}
}

// mapEngineError turns engine validation errors into suggestion errors.
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrEmptyTitle):
		return utils.ErrEmptyTitle()
	case errors.Is(err, engine.ErrNegativeScore):
		return utils.WrapWithSuggestion(err, "Score must be zero or positive (0 uses the default of 30)")
	default:
		return err
	}
}
