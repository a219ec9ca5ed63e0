package config

const (
	defaultConfigPath        = "~/.config/vodbridge/config.toml"
	defaultWatchDir          = "~/Videos/recordings"
	defaultCompletedDir      = "~/Videos/recordings/uploaded"
	defaultStateDir          = "~/.local/share/vodbridge"
	defaultLogDir            = "~/.local/share/vodbridge/logs"
	defaultCommandTimeout    = 60
	defaultDurationThreshold = 600
	defaultRefreshRate       = 1800
	defaultFetchAttempts     = 10
	defaultFetchBackoff      = 60
	defaultStartDelta        = 300
	defaultEndDelta          = 1800
	defaultSizeThreshold     = 100 * 1024 * 1024
	defaultAgeThreshold      = 300
	defaultClientSecrets     = "~/.config/vodbridge/client_secret.json"
	defaultTokenPath         = "~/.config/vodbridge/token.json"
	defaultCategoryID        = "20"
	defaultPrivacy           = "unlisted"
	defaultChunkSizeMiB      = 16
	defaultQuotaTimezone     = "America/Los_Angeles"
	defaultQuotaResetHour    = 0
	defaultQuotaResetMinute  = 10
	defaultCheckInterval     = 60
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30

	// UserIDPlaceholder is substituted with twitch.user_id in twitch.command.
	UserIDPlaceholder = "{user_id}"
)

var defaultExtensions = []string{".mp4"}

// DefaultTwitchCommand returns the twitch-cli invocation used to list archived VODs.
func DefaultTwitchCommand() []string {
	return []string{"twitch", "api", "get", "videos", "-q", "user_id=" + UserIDPlaceholder, "-q", "type=archive", "-q", "first=100"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:     defaultWatchDir,
			CompletedDir: defaultCompletedDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Twitch: Twitch{
			Command:           DefaultTwitchCommand(),
			CommandTimeout:    defaultCommandTimeout,
			DurationThreshold: defaultDurationThreshold,
			RefreshRate:       defaultRefreshRate,
			FetchAttempts:     defaultFetchAttempts,
			FetchBackoff:      defaultFetchBackoff,
		},
		Correlation: Correlation{
			StartDelta:    defaultStartDelta,
			EndDelta:      defaultEndDelta,
			Extensions:    append([]string(nil), defaultExtensions...),
			SizeThreshold: defaultSizeThreshold,
			AgeThreshold:  defaultAgeThreshold,
		},
		YouTube: YouTube{
			ClientSecrets: defaultClientSecrets,
			TokenPath:     defaultTokenPath,
			CategoryID:    defaultCategoryID,
			Privacy:       defaultPrivacy,
			ChunkSizeMiB:  defaultChunkSizeMiB,
		},
		Quota: Quota{
			Timezone:    defaultQuotaTimezone,
			ResetHour:   defaultQuotaResetHour,
			ResetMinute: defaultQuotaResetMinute,
		},
		Workflow: Workflow{
			CheckInterval: defaultCheckInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
