package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vodbridge/internal/archive"
	"vodbridge/internal/clock"
	"vodbridge/internal/config"
	"vodbridge/internal/history"
	"vodbridge/internal/ledger"
	"vodbridge/internal/logging"
	"vodbridge/internal/metrics"
	"vodbridge/internal/notifications"
	"vodbridge/internal/quota"
	"vodbridge/internal/recordings"
	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

// Archiver stores a reporting copy of finished uploads.
type Archiver interface {
	Record(ctx context.Context, entry archive.Entry) error
}

// Options carries the scheduler's tunables.
type Options struct {
	WatchDir      string
	CompletedDir  string
	Extensions    []string
	Correlation   recordings.Options
	CheckInterval time.Duration
	CategoryID    string
	Privacy       string
	DryRun        bool
	// MaxCycles stops Run after that many cycles; zero runs until cancelled.
	MaxCycles int
}

// OptionsFromConfig maps configuration onto scheduler options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WatchDir:     cfg.Paths.WatchDir,
		CompletedDir: cfg.Paths.CompletedDir,
		Extensions:   cfg.Correlation.Extensions,
		Correlation: recordings.Options{
			StartDelta:        cfg.StartDelta(),
			EndDelta:          cfg.EndDelta(),
			EnforceThresholds: cfg.Correlation.EnforceThresholds,
			SizeThreshold:     cfg.Correlation.SizeThreshold,
			AgeThreshold:      cfg.AgeThreshold(),
		},
		CheckInterval: cfg.CheckInterval(),
		CategoryID:    cfg.YouTube.CategoryID,
		Privacy:       cfg.YouTube.Privacy,
		DryRun:        cfg.Workflow.DryRun,
	}
}

// Deps are the collaborators a Scheduler drives. Archive, Notifier and
// Metrics are optional.
type Deps struct {
	Cache    *vod.Cache
	Ledger   *ledger.Ledger
	History  *history.History
	Governor *quota.Governor
	Transfer upload.Transfer
	Archive  Archiver
	Notifier notifications.Service
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Scheduler owns the VOD cache and the per-cycle match set.
type Scheduler struct {
	opts Options
	deps Deps

	logger       *slog.Logger
	sinceRefresh int
	cycles       int
	// missingWarned suppresses repeated warnings for ledger entries whose
	// file is gone.
	missingWarned map[string]struct{}
	// unmarked holds uploads whose history write failed, keyed by vod id.
	unmarked map[string]finished
}

// New validates deps and builds a Scheduler.
func New(opts Options, deps Deps) (*Scheduler, error) {
	switch {
	case deps.Cache == nil:
		return nil, errors.New("pipeline: vod cache is required")
	case deps.Ledger == nil:
		return nil, errors.New("pipeline: ledger is required")
	case deps.History == nil:
		return nil, errors.New("pipeline: history is required")
	case deps.Governor == nil:
		return nil, errors.New("pipeline: quota governor is required")
	case deps.Transfer == nil && !opts.DryRun:
		return nil, errors.New("pipeline: transfer is required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	return &Scheduler{
		opts:          opts,
		deps:          deps,
		logger:        logging.NewComponentLogger(deps.Logger, "scheduler"),
		missingWarned: make(map[string]struct{}),
		unmarked:      make(map[string]finished),
	}, nil
}

// Run recovers in-flight uploads and then loops until ctx is cancelled, the
// VOD listing stays unavailable, or MaxCycles is reached. Cancellation
// returns the context error. State read and write failures are reported and
// retried on later cycles.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Recover(ctx); err != nil {
		return err
	}
	for {
		if err := s.Cycle(ctx); err != nil {
			return err
		}
		if s.opts.MaxCycles > 0 && s.cycles >= s.opts.MaxCycles {
			return nil
		}
		if err := s.idle(ctx); err != nil {
			return err
		}
	}
}

// Recover drains the ledger left by a previous process before the first
// cycle. When the state files cannot be read, recovery is left to the first
// cycle's drain.
func (s *Scheduler) Recover(ctx context.Context) error {
	ctx = logging.WithCycleID(ctx, "recover-"+uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)
	entries, completed, err := s.loadState()
	if err != nil {
		s.stateFailure(ctx, logger, "state files unreadable; deferring recovery", "state_read_failed", "state read", err,
			"in-flight uploads resume once the state files are readable")
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	logger.Info("resuming in-flight uploads",
		logging.Int("count", len(entries)),
		logging.String(logging.FieldEventType, "recovery_started"),
	)
	return s.drainLedger(ctx, entries, completed)
}

// Cycle runs Refresh, Scan, Correlate and Drain once.
func (s *Scheduler) Cycle(ctx context.Context) error {
	ctx = logging.WithCycleID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, s.logger)
	started := s.deps.Clock.Now()

	vods, err := s.refresh(ctx)
	if err != nil {
		return err
	}

	files, err := s.scan()
	if err != nil {
		logging.WarnWithContext(logger, "watch folder scan failed; skipping cycle", "scan_failed",
			logging.String("watch_dir", s.opts.WatchDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.watch_dir exists and is readable"),
			logging.String(logging.FieldImpact, "no recordings are uploaded this cycle"),
		)
		s.finishCycle(started)
		return nil
	}

	entries, completed, err := s.loadState()
	if err != nil {
		s.stateFailure(ctx, logger, "state files unreadable; skipping cycle", "state_read_failed", "state read", err,
			"no recordings are uploaded this cycle")
		s.finishCycle(started)
		return nil
	}
	result := s.correlate(ctx, files, vods, entries, completed)
	s.relocateCompleted(ctx, result.Relocate)

	if err := s.drain(ctx, entries, completed, result.Uploads); err != nil {
		return err
	}

	logger.Debug("cycle complete",
		logging.Int("vods", len(vods)),
		logging.Int("files", len(files)),
		logging.Int("uploads", len(result.Uploads)),
		logging.Int("resumed", len(entries)),
		logging.Int("unmatched", len(result.Unmatched)),
		logging.Duration("elapsed", s.deps.Clock.Now().Sub(started)),
		logging.String(logging.FieldEventType, "cycle_complete"),
	)
	s.finishCycle(started)
	return nil
}

// Cycles reports how many cycles have completed.
func (s *Scheduler) Cycles() int {
	return s.cycles
}

func (s *Scheduler) finishCycle(started time.Time) {
	s.cycles++
	s.deps.Metrics.CycleCompleted(started)
}

func (s *Scheduler) refresh(ctx context.Context) ([]vod.Record, error) {
	if !s.deps.Cache.Stale(s.sinceRefresh) {
		return s.deps.Cache.Records(), nil
	}
	records, err := s.deps.Cache.Refresh(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	s.deps.Metrics.VODRefresh(err)
	if err != nil {
		if vod.IsUnavailable(err) {
			s.notify(ctx, notifications.EventVODUnavailable, notifications.Payload{"error": err})
		}
		return nil, fmt.Errorf("refresh vod cache: %w", err)
	}
	s.sinceRefresh = 0
	logging.WithContext(ctx, s.logger).Info("vod cache refreshed",
		logging.Int("vods", len(records)),
		logging.String(logging.FieldEventType, "vod_cache_refreshed"),
	)
	return records, nil
}

func (s *Scheduler) scan() ([]recordings.File, error) {
	return recordings.Scan(s.opts.WatchDir, s.opts.Extensions)
}

func (s *Scheduler) loadState() (map[string]ledger.Entry, history.Set, error) {
	entries, err := s.deps.Ledger.LoadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	completed, err := s.deps.History.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("read completed history: %w", err)
	}
	s.deps.Metrics.LedgerEntries(len(entries))
	return entries, completed, nil
}

func (s *Scheduler) correlate(ctx context.Context, files []recordings.File, vods []vod.Record, entries map[string]ledger.Entry, completed history.Set) recordings.Result {
	opts := s.opts.Correlation
	opts.Now = s.deps.Clock.Now()
	result := recordings.Correlate(files, vods, ledger.Paths(entries), completed, opts)

	logger := logging.WithContext(ctx, s.logger)
	for _, file := range result.Unmatched {
		logger.Debug("recording has no matching vod",
			logging.String(logging.FieldFile, file.Path),
			logging.Time("mod_time", file.ModTime),
		)
	}
	for _, file := range result.Immature {
		logger.Debug("recording may still be written; skipping",
			logging.String(logging.FieldFile, file.Path),
			logging.Int64("size", file.Size),
		)
	}
	for _, match := range result.Deferred {
		logger.Info("vod already claimed by another recording this cycle",
			logging.String(logging.FieldFile, match.File.Path),
			logging.String(logging.FieldVODID, match.VOD.ID),
			logging.String(logging.FieldEventType, "match_deferred"),
		)
	}
	return result
}

func (s *Scheduler) idle(ctx context.Context) error {
	if err := s.deps.Clock.Sleep(ctx, s.opts.CheckInterval); err != nil {
		return err
	}
	s.sinceRefresh++
	return nil
}

func (s *Scheduler) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "operator was not notified"),
		)
	}
}
