// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"tasktree/cmd/tasktree/cmd"
)

// defaultTestConfig is the minimal config used by most test constructors to ensure isolation.
const defaultTestConfig = "# test config\ndefault_backend: sqlite\nanalytics:\n  enabled: false\n"

// FixedNow is the clock every CLITest starts with: Sunday 2024-03-10, 09:00 local.
var FixedNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
	now        time.Time
}

// NewCLITest creates a new CLI test helper with an isolated SQLite database,
// config file and analytics database under t.TempDir().
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()
	return NewCLITestWithConfig(t, defaultTestConfig)
}

// NewCLITestWithConfig creates a CLI test helper whose config file holds yamlContent.
func NewCLITestWithConfig(t *testing.T, yamlContent string) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	c := &CLITest{
		t:          t,
		tmpDir:     tmpDir,
		configPath: configPath,
		now:        FixedNow,
	}
	c.cfg = &cmd.Config{
		NoPrompt:      true,
		DBPath:        filepath.Join(tmpDir, "test.db"),
		ConfigPath:    configPath,
		AnalyticsPath: filepath.Join(tmpDir, "analytics.db"),
		Now:           func() time.Time { return c.now },
	}
	return c
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// DBPath returns the SQLite database used by the test.
func (c *CLITest) DBPath() string {
	return c.cfg.DBPath
}

// SetNow moves the test clock.
func (c *CLITest) SetNow(now time.Time) {
	c.now = now
}

// AdvanceDays moves the test clock forward by n days.
func (c *CLITest) AdvanceDays(n int) {
	c.now = c.now.AddDate(0, 0, n)
}

// SetPrompt enables interactive prompts fed from input.
func (c *CLITest) SetPrompt(input string) {
	c.cfg.NoPrompt = false
	c.cfg.Stdin = strings.NewReader(input)
}

// SetConfigValue appends a top-level key to the test config file.
func (c *CLITest) SetConfigValue(key, value string) {
	c.t.Helper()

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.t.Fatalf("failed to read config file: %v", err)
	}

	newConfig := string(data) + key + ": " + value + "\n"

	if err := os.WriteFile(c.configPath, []byte(newConfig), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// WriteRules writes the keyword rules file the CLI reads by default.
func (c *CLITest) WriteRules(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(filepath.Join(c.tmpDir, "rules.yaml"), []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write rules file: %v", err)
	}
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// QueryInt runs a single-value query against the test database.
func (c *CLITest) QueryInt(query string, args ...any) int {
	c.t.Helper()

	db, err := sql.Open("sqlite", c.cfg.DBPath)
	if err != nil {
		c.t.Fatalf("failed to open test database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		c.t.Fatalf("query %q failed: %v", query, err)
	}
	return n
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// AssertResultCode verifies that the output ends with the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %q but output is empty", expectedCode)
		return
	}
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if lastLine != expectedCode {
		t.Errorf("expected result code %q, got %q\nFull output:\n%s", expectedCode, lastLine, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)
