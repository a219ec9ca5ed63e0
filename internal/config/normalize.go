package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTwitch()
	c.normalizeCorrelation()
	if err := c.normalizeYouTube(); err != nil {
		return err
	}
	c.normalizeQuota()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if c.Paths.CompletedDir, err = expandPath(c.Paths.CompletedDir); err != nil {
		return fmt.Errorf("paths.completed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTwitch() {
	c.Twitch.UserID = strings.TrimSpace(c.Twitch.UserID)
	if value, ok := os.LookupEnv("TWITCH_USER_ID"); ok && strings.TrimSpace(value) != "" {
		c.Twitch.UserID = strings.TrimSpace(value)
	}
	args := make([]string, 0, len(c.Twitch.Command))
	for _, arg := range c.Twitch.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	if len(args) == 0 {
		args = DefaultTwitchCommand()
	}
	c.Twitch.Command = args
	if c.Twitch.CommandTimeout <= 0 {
		c.Twitch.CommandTimeout = defaultCommandTimeout
	}
}

func (c *Config) normalizeCorrelation() {
	if len(c.Correlation.Extensions) == 0 {
		c.Correlation.Extensions = append([]string(nil), defaultExtensions...)
		return
	}
	exts := make([]string, 0, len(c.Correlation.Extensions))
	seen := make(map[string]struct{}, len(c.Correlation.Extensions))
	for _, ext := range c.Correlation.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append([]string(nil), defaultExtensions...)
	}
	c.Correlation.Extensions = exts
}

func (c *Config) normalizeYouTube() error {
	var err error
	if value, ok := os.LookupEnv("YOUTUBE_CLIENT_SECRETS"); ok && strings.TrimSpace(value) != "" {
		c.YouTube.ClientSecrets = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.YouTube.ClientSecrets) == "" {
		c.YouTube.ClientSecrets = defaultClientSecrets
	}
	if c.YouTube.ClientSecrets, err = expandPath(c.YouTube.ClientSecrets); err != nil {
		return fmt.Errorf("youtube.client_secrets: %w", err)
	}
	if strings.TrimSpace(c.YouTube.TokenPath) == "" {
		c.YouTube.TokenPath = defaultTokenPath
	}
	if c.YouTube.TokenPath, err = expandPath(c.YouTube.TokenPath); err != nil {
		return fmt.Errorf("youtube.token_path: %w", err)
	}
	c.YouTube.CategoryID = strings.TrimSpace(c.YouTube.CategoryID)
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = defaultCategoryID
	}
	c.YouTube.Privacy = strings.ToLower(strings.TrimSpace(c.YouTube.Privacy))
	if c.YouTube.Privacy == "" {
		c.YouTube.Privacy = defaultPrivacy
	}
	if c.YouTube.ChunkSizeMiB <= 0 {
		c.YouTube.ChunkSizeMiB = defaultChunkSizeMiB
	}
	return nil
}

func (c *Config) normalizeQuota() {
	c.Quota.Timezone = strings.TrimSpace(c.Quota.Timezone)
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = defaultQuotaTimezone
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
