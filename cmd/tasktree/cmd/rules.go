package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tasktree/backend"
	"tasktree/internal/rules"
	"tasktree/internal/utils"
)

// newRulesCmd creates the 'rules' command for keyword auto-tag rules
func newRulesCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword auto-tag rules",
		Long: "List the keyword rules new tasks are tagged by, or import a rules YAML file into the database backend.\n" +
			"A rules.yaml next to the config file takes precedence over rules stored in the backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doRulesList(ctx)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the rules in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doRulesList(ctx)
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Replace the rules stored in the backend with those in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, cfg, stdout, stderr, func(ctx context.Context, a *app) error {
				return a.doRulesImport(ctx, args[0])
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return rulesCmd
}

func (a *app) doRulesList(ctx context.Context) error {
	list, err := a.ruleSource.LoadRules(ctx)
	if err != nil && !errors.Is(err, rules.ErrNoRuleFile) {
		return err
	}
	if list == nil {
		list = []backend.KeywordRule{}
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"rules": list, "result": ResultInfoOnly})
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No keyword rules")
	}
	for _, r := range list {
		_, _ = fmt.Fprintf(a.stdout, "%s: %s\n", r.Tag, strings.Join(r.Keywords, ", "))
	}
	a.done(ResultInfoOnly)
	return nil
}

func (a *app) doRulesImport(ctx context.Context, path string) error {
	rs, ok := a.store.(backend.RuleStore)
	if !ok {
		return utils.WrapWithSuggestion(
			fmt.Errorf("the %s backend does not store keyword rules", a.backendName),
			"Use the sqlite, postgres or redis backend, or edit "+a.rules.Path()+" directly")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return utils.WrapWithSuggestion(fmt.Errorf("failed to read rules file: %w", err), "Check the path to the YAML file")
	}
	list, err := rules.Parse(data)
	if err != nil {
		return utils.WrapWithSuggestion(err, "Expected a document of the form: rules: [{tag: work, keywords: [report]}]")
	}
	if err := rs.SaveRules(ctx, list); err != nil {
		return err
	}
	a.log.Debug().Str("backend", a.backendName).Int("rules", len(list)).Msg("keyword rules imported")

	if a.jsonOutput {
		return writeJSON(a.stdout, map[string]any{"action": "rules import", "imported": len(list), "result": ResultActionCompleted})
	}
	_, _ = fmt.Fprintf(a.stdout, "Imported %d rule(s) into %s\n", len(list), a.backendName)
	if _, err := os.Stat(a.rules.Path()); err == nil {
		_, _ = fmt.Fprintf(a.stdout, "Note: %s takes precedence over the imported rules\n", a.rules.Path())
	}
	a.done(ResultActionCompleted)
	return nil
}
