package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTwitch(); err != nil {
		return err
	}
	if err := c.validateCorrelation(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.check_interval":       c.Workflow.CheckInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CompletedDir) == "" {
		return errors.New("paths.completed_dir must be set")
	}
	if filepath.Clean(c.Paths.WatchDir) == filepath.Clean(c.Paths.CompletedDir) {
		return errors.New("paths.completed_dir must differ from paths.watch_dir")
	}
	return nil
}

func (c *Config) validateTwitch() error {
	if commandNeedsUserID(c.Twitch.Command) && c.Twitch.UserID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("twitch.user_id is required. Set TWITCH_USER_ID env var or edit %s (create with 'vodbridge config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"twitch.refresh_rate":   c.Twitch.RefreshRate,
		"twitch.fetch_attempts": c.Twitch.FetchAttempts,
	}); err != nil {
		return err
	}
	if c.Twitch.FetchBackoff < 0 {
		return errors.New("twitch.fetch_backoff must be >= 0")
	}
	if c.Twitch.DurationThreshold < 0 {
		return errors.New("twitch.duration_threshold must be >= 0")
	}
	return nil
}

func (c *Config) validateCorrelation() error {
	if c.Correlation.StartDelta < 0 {
		return errors.New("correlation.start_delta must be >= 0")
	}
	if c.Correlation.EndDelta < 0 {
		return errors.New("correlation.end_delta must be >= 0")
	}
	if c.Correlation.SizeThreshold < 0 {
		return errors.New("correlation.size_threshold must be >= 0")
	}
	if c.Correlation.AgeThreshold < 0 {
		return errors.New("correlation.age_threshold must be >= 0")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	switch c.YouTube.Privacy {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("youtube.privacy must be one of private, unlisted, public (got %q)", c.YouTube.Privacy)
	}
	if c.YouTube.ChunkSizeMiB <= 0 {
		return errors.New("youtube.chunk_size_mib must be positive")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		return fmt.Errorf("quota.timezone %q: %w", c.Quota.Timezone, err)
	}
	if c.Quota.ResetHour < 0 || c.Quota.ResetHour > 23 {
		return errors.New("quota.reset_hour must be between 0 and 23")
	}
	if c.Quota.ResetMinute < 0 || c.Quota.ResetMinute > 59 {
		return errors.New("quota.reset_minute must be between 0 and 59")
	}
	return nil
}

func commandNeedsUserID(args []string) bool {
	for _, arg := range args {
		if strings.Contains(arg, UserIDPlaceholder) {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
