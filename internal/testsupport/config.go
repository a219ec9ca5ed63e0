package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vodbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Twitch.UserID = "12345"
	cfgVal.Paths.WatchDir = filepath.Join(base, "watch")
	cfgVal.Paths.CompletedDir = filepath.Join(base, "watch", "uploaded")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.YouTube.ClientSecrets = filepath.Join(base, "client_secret.json")
	cfgVal.YouTube.TokenPath = filepath.Join(base, "token.json")
	cfgVal.Metrics.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithDryRun toggles workflow.dry_run on the test config.
func WithDryRun(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.DryRun = enabled
	}
}

// WithTwitchCommand overrides the VOD listing argv.
func WithTwitchCommand(args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Twitch.Command = args
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. Each stub prints output and exits 0. If names is
// empty, a silent twitch stub is written.
func WithStubbedBinaries(output string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"twitch"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		payload := filepath.Join(binDir, "output.json")
		if err := os.WriteFile(payload, []byte(output), 0o644); err != nil {
			b.t.Fatalf("write stub output: %v", err)
		}
		script := []byte("#!/bin/sh\ncat '" + payload + "'\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
