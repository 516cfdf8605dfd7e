// Package analytics records local usage of tasktree commands in a SQLite
// event log so users can see which commands they run and how often they fail.
package analytics

import "os"

// EnvEnabled overrides the analytics.enabled config value when set.
const EnvEnabled = "TASKTREE_ANALYTICS_ENABLED"

// Event represents a single analytics event
type Event struct {
	ID         int64
	SessionID  string
	Timestamp  int64
	Command    string
	Subcommand string
	Backend    string
	Success    bool
	DurationMs int64
	ErrorType  string
	Flags      string // JSON string of flags
}

// CommandStats aggregates the events of one command.
type CommandStats struct {
	Command       string `json:"command"`
	Runs          int    `json:"runs"`
	Failures      int    `json:"failures"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
}

// IsEnabledFromEnv returns the effective enabled state, letting the
// environment variable override the config value.
func IsEnabledFromEnv(configEnabled bool) bool {
	return isEnabled(configEnabled, os.Getenv)
}

func isEnabled(configEnabled bool, getenv func(string) string) bool {
	envVal := getenv(EnvEnabled)
	if envVal == "" {
		return configEnabled
	}
	return envVal == "true" || envVal == "1"
}
