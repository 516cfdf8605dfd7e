// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Backend names accepted by default_backend.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	DefaultBackend    string          `yaml:"default_backend"`
	AutoDetectBackend bool            `yaml:"auto_detect_backend"`
	DefaultTag        string          `yaml:"default_tag"`
	RecentLimit       int             `yaml:"recent_limit"`
	NoPrompt          bool            `yaml:"no_prompt"`
	OutputFormat      string          `yaml:"output_format"`
	KeywordRules      string          `yaml:"keyword_rules"`
	Backends          BackendsConfig  `yaml:"backends"`
	Server            ServerConfig    `yaml:"server"`
	Logging           LoggingConfig   `yaml:"logging"`
	Analytics         AnalyticsConfig `yaml:"analytics"`

	path string // file the config was loaded from
}

// BackendsConfig holds configuration for all backends
type BackendsConfig struct {
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
}

// SQLiteConfig holds SQLite backend configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FileConfig holds CSV file backend configuration
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// PostgresConfig holds PostgreSQL backend configuration
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig holds Redis backend configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr        string          `yaml:"addr"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AnalyticsConfig holds analytics settings
type AnalyticsConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DefaultBackend: BackendSQLite,
		DefaultTag:     "マイタスク",
		RecentLimit:    20,
		OutputFormat:   "text",
		Backends: BackendsConfig{
			Postgres: PostgresConfig{MaxConns: 4},
			Redis:    RedisConfig{Addr: "localhost:6379", Prefix: "tasktree"},
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"*"},
			RateLimit:   RateLimitConfig{RPS: 10, Burst: 20},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			RetentionDays: 365,
		},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it is created from the embedded sample.
// Environment overrides are applied last.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = configPath
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Parse decodes YAML on top of DefaultConfig, so omitted keys keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.DefaultBackend == "" {
		c.DefaultBackend = def.DefaultBackend
	}
	if strings.TrimSpace(c.DefaultTag) == "" {
		c.DefaultTag = def.DefaultTag
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = def.RecentLimit
	}
	if c.OutputFormat == "" {
		c.OutputFormat = def.OutputFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Backends.Redis.Prefix == "" {
		c.Backends.Redis.Prefix = def.Backends.Redis.Prefix
	}
	c.Backends.SQLite.Path = ExpandPath(c.Backends.SQLite.Path)
	c.Backends.File.Dir = ExpandPath(c.Backends.File.Dir)
	c.KeywordRules = ExpandPath(c.KeywordRules)
}

// writeSample writes the embedded sample configuration to path
func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv applies TASKTREE_* overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("TASKTREE_BACKEND"); v != "" {
		c.DefaultBackend = v
	}
	if v := getenv("TASKTREE_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("TASKTREE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("TASKTREE_POSTGRES_DSN"); v != "" {
		c.Backends.Postgres.DSN = v
	}
	if v := getenv("TASKTREE_REDIS_ADDR"); v != "" {
		c.Backends.Redis.Addr = v
	}
	if v := getenv("TASKTREE_NO_PROMPT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NoPrompt = b
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	switch c.DefaultBackend {
	case BackendSQLite, BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Backends.Postgres.DSN == "" {
			return fmt.Errorf("default backend 'postgres' requires backends.postgres.dsn")
		}
	case BackendRedis:
		if c.Backends.Redis.Addr == "" {
			return fmt.Errorf("default backend 'redis' requires backends.redis.addr")
		}
	default:
		return fmt.Errorf("unknown default_backend: %q", c.DefaultBackend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %q (must be 'text' or 'json')", c.Logging.Format)
	}

	if c.Server.RateLimit.RPS < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit values must not be negative")
	}
	if c.RecentLimit <= 0 {
		return fmt.Errorf("recent_limit must be positive, got %d", c.RecentLimit)
	}
	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(noPrompt bool, outputFormat, backend string) {
	if noPrompt {
		c.NoPrompt = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
	if backend != "" {
		c.DefaultBackend = backend
	}
}

// Path returns the file the configuration was loaded from ("" if parsed from bytes).
func (c *Config) Path() string {
	return c.path
}

// GetDatabasePath returns the path to the SQLite database
func (c *Config) GetDatabasePath() string {
	if c.Backends.SQLite.Path != "" {
		return c.Backends.SQLite.Path
	}
	return filepath.Join(GetDataDir(), "tasktree.db")
}

// GetFileDir returns the directory used by the CSV file backend.
func (c *Config) GetFileDir() string {
	if c.Backends.File.Dir != "" {
		return c.Backends.File.Dir
	}
	return filepath.Join(GetDataDir(), "data")
}

// GetKeywordRulesPath returns the keyword rules file, defaulting to rules.yaml
// next to the loaded config file.
func (c *Config) GetKeywordRulesPath() string {
	if c.KeywordRules != "" {
		return c.KeywordRules
	}
	dir := GetConfigDir()
	if c.path != "" {
		dir = filepath.Dir(c.path)
	}
	return filepath.Join(dir, "rules.yaml")
}

// IsAutoDetectEnabled returns true if auto-detection is enabled
func (c *Config) IsAutoDetectEnabled() bool {
	return c.AutoDetectBackend
}

// IsAnalyticsEnabled returns true if analytics is enabled in config
func (c *Config) IsAnalyticsEnabled() bool {
	return c.Analytics.Enabled
}

// GetAnalyticsRetentionDays returns the analytics retention period in days.
// Returns 365 (default) if not configured.
func (c *Config) GetAnalyticsRetentionDays() int {
	if c.Analytics.RetentionDays <= 0 {
		return 365
	}
	return c.Analytics.RetentionDays
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "tasktree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "tasktree")
	}
	return filepath.Join(home, fallbackPath, "tasktree")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
