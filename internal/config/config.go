package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir     string `toml:"watch_dir"`
	CompletedDir string `toml:"completed_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Twitch contains configuration for the VOD listing capability.
type Twitch struct {
	UserID            string   `toml:"user_id"`
	Command           []string `toml:"command"`
	CommandTimeout    int      `toml:"command_timeout"`
	DurationThreshold int      `toml:"duration_threshold"`
	RefreshRate       int      `toml:"refresh_rate"`
	FetchAttempts     int      `toml:"fetch_attempts"`
	FetchBackoff      int      `toml:"fetch_backoff"`
}

// Correlation contains the file-to-VOD matching window and file guards.
type Correlation struct {
	StartDelta        int      `toml:"start_delta"`
	EndDelta          int      `toml:"end_delta"`
	Extensions        []string `toml:"extensions"`
	SizeThreshold     int64    `toml:"size_threshold"`
	AgeThreshold      int      `toml:"age_threshold"`
	EnforceThresholds bool     `toml:"enforce_thresholds"`
}

// YouTube contains configuration for the upload destination.
type YouTube struct {
	ClientSecrets string `toml:"client_secrets"`
	TokenPath     string `toml:"token_path"`
	CategoryID    string `toml:"category_id"`
	Privacy       string `toml:"privacy"`
	ChunkSizeMiB  int    `toml:"chunk_size_mib"`
}

// Quota describes when the remote platform resets its daily upload quota.
type Quota struct {
	Timezone    string `toml:"timezone"`
	ResetHour   int    `toml:"reset_hour"`
	ResetMinute int    `toml:"reset_minute"`
}

// Workflow contains configuration for the poll loop.
type Workflow struct {
	CheckInterval int  `toml:"check_interval"`
	DryRun        bool `toml:"dry_run"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Metrics contains configuration for the Prometheus listener.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for vodbridge.
//
// Configuration sections by subsystem:
//   - Paths: watch folder, completed folder, durable state and logs
//   - Twitch: VOD listing command, cache refresh and retry policy
//   - Correlation: file-to-VOD time window and optional size/age guard
//   - YouTube: OAuth files and upload metadata defaults
//   - Quota: daily quota reset schedule
//   - Workflow: poll interval and dry-run
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus listener
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Twitch        Twitch        `toml:"twitch"`
	Correlation   Correlation   `toml:"correlation"`
	YouTube       YouTube       `toml:"youtube"`
	Quota         Quota         `toml:"quota"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv loads dir/.env without overriding variables already set in the
// environment.
func loadDotEnv(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load env file %s: %w", envPath, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vodbridge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The watch folder is not created: a missing watch folder is a configuration
// mistake the operator should see.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CompletedDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the in-flight upload ledger document path.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "state.json")
}

// HistoryPath returns the completed upload history log path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "upload_history.txt")
}

// ArchivePath returns the SQLite upload archive path.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.Paths.StateDir, "uploads.db")
}

// LockPath returns the single-instance daemon lock path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "vodbridge.lock")
}

// CheckInterval returns the idle interval between poll cycles.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Workflow.CheckInterval) * time.Second
}

// RefreshRate returns how long a VOD snapshot stays fresh.
func (c *Config) RefreshRate() time.Duration {
	return time.Duration(c.Twitch.RefreshRate) * time.Second
}

// DurationThreshold returns the minimum VOD duration kept in the cache.
func (c *Config) DurationThreshold() time.Duration {
	return time.Duration(c.Twitch.DurationThreshold) * time.Second
}

// FetchBackoff returns the base backoff between VOD listing attempts.
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Twitch.FetchBackoff) * time.Second
}

// CommandTimeout returns the timeout applied to a single VOD listing command.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Twitch.CommandTimeout) * time.Second
}

// StartDelta returns how far before a VOD's creation a file may have been modified.
func (c *Config) StartDelta() time.Duration {
	return time.Duration(c.Correlation.StartDelta) * time.Second
}

// EndDelta returns how far past a VOD's end a file may have been modified.
func (c *Config) EndDelta() time.Duration {
	return time.Duration(c.Correlation.EndDelta) * time.Second
}

// AgeThreshold returns the minimum file age when thresholds are enforced.
func (c *Config) AgeThreshold() time.Duration {
	return time.Duration(c.Correlation.AgeThreshold) * time.Second
}

// QuotaLocation resolves the quota reset time zone.
func (c *Config) QuotaLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return nil, fmt.Errorf("quota.timezone %q: %w", c.Quota.Timezone, err)
	}
	return loc, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
