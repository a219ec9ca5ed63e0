package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vodbridge/internal/archive"
	"vodbridge/internal/auth"
	"vodbridge/internal/clock"
	"vodbridge/internal/config"
	"vodbridge/internal/history"
	"vodbridge/internal/ledger"
	"vodbridge/internal/logging"
	"vodbridge/internal/metrics"
	"vodbridge/internal/notifications"
	"vodbridge/internal/pipeline"
	"vodbridge/internal/quota"
	"vodbridge/internal/upload"
	"vodbridge/internal/upload/youtube"
	"vodbridge/internal/vod"
)

// runtime is the wired process graph.
type runtime struct {
	scheduler *pipeline.Scheduler
	archive   *archive.Store
	metrics   *metrics.Metrics
}

func (r *runtime) Close() {
	if r.archive != nil {
		_ = r.archive.Close()
	}
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*runtime, error) {
	clk := clock.Real{}

	loc, err := cfg.QuotaLocation()
	if err != nil {
		return nil, err
	}
	governor, err := quota.New(loc, cfg.Quota.ResetHour, cfg.Quota.ResetMinute)
	if err != nil {
		return nil, err
	}

	lister := &vod.CommandLister{
		Args:    cfg.Twitch.Command,
		UserID:  cfg.Twitch.UserID,
		Timeout: cfg.CommandTimeout(),
	}
	cache := vod.NewCache(lister, vod.CacheOptions{
		Threshold:     cfg.DurationThreshold(),
		Attempts:      cfg.Twitch.FetchAttempts,
		Backoff:       cfg.FetchBackoff(),
		RefreshRate:   cfg.RefreshRate(),
		CheckInterval: cfg.CheckInterval(),
		Sleep:         clk.Sleep,
		Logger:        logger,
	})

	var transfer upload.Transfer
	if !cfg.Workflow.DryRun {
		transfer, err = newTransfer(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	rt := &runtime{}
	// Dry runs never complete an upload, so the archive stays closed.
	var archiver pipeline.Archiver
	if !cfg.Workflow.DryRun {
		store, err := archive.Open(ctx, cfg.ArchivePath())
		if err != nil {
			return nil, fmt.Errorf("open upload archive: %w", err)
		}
		rt.archive = store
		archiver = store
	}
	if cfg.Metrics.Bind != "" {
		rt.metrics = metrics.New()
	}

	schedOpts := pipeline.OptionsFromConfig(cfg)
	if opts.Once {
		schedOpts.MaxCycles = 1
	}
	sched, err := pipeline.New(schedOpts, pipeline.Deps{
		Cache:    cache,
		Ledger:   ledger.Open(cfg.LedgerPath(), logger),
		History:  history.Open(cfg.HistoryPath()),
		Governor: governor,
		Transfer: transfer,
		Archive:  archiver,
		Notifier: notifications.NewService(cfg),
		Metrics:  rt.metrics,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.scheduler = sched
	return rt, nil
}

func newTransfer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (upload.Transfer, error) {
	manager, err := auth.Load(cfg.YouTube.ClientSecrets, cfg.YouTube.TokenPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load youtube credentials: %w (run vodbridge auth)", err)
	}
	client, err := manager.Client(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			logging.ErrorWithContext(logger, "youtube is not authorized", "auth_missing",
				logging.String(logging.FieldErrorHint, "run vodbridge auth once to authorize uploads"),
			)
		}
		return nil, fmt.Errorf("authorize youtube client: %w", err)
	}
	return youtube.New(ctx, client, youtube.Options{ChunkSize: cfg.YouTube.ChunkSizeMiB * 1024 * 1024})
}
