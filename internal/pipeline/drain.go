package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vodbridge/internal/archive"
	"vodbridge/internal/fileutil"
	"vodbridge/internal/history"
	"vodbridge/internal/ledger"
	"vodbridge/internal/logging"
	"vodbridge/internal/notifications"
	"vodbridge/internal/recordings"
	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

// job is one upload to attempt during a drain.
type job struct {
	vod      vod.Record
	path     string
	endpoint string
	resumed  bool
}

// finished is an upload that reached the platform but could not be written
// to the completed history. Its ledger entry is kept until the write lands.
type finished struct {
	job     job
	meta    upload.Metadata
	size    int64
	result  *upload.Result
	elapsed time.Duration
}

// drain runs the ledger and then the new matches. State write failures are
// reported and skip only the affected item; cancellation is returned.
func (s *Scheduler) drain(ctx context.Context, entries map[string]ledger.Entry, completed history.Set, matches []recordings.Match) error {
	if err := s.drainLedger(ctx, entries, completed); err != nil {
		return err
	}
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		j := job{vod: match.VOD, path: match.File.Path}
		if err := s.upload(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) drainLedger(ctx context.Context, entries map[string]ledger.Entry, completed history.Set) error {
	for id := range s.unmarked {
		if _, ok := entries[id]; !ok {
			delete(s.unmarked, id)
		}
	}
	for _, id := range ledger.IDs(entries) {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := entries[id]
		if completed.Contains(id) {
			delete(s.unmarked, id)
			s.finishStaleEntry(ctx, id, entry)
			continue
		}
		if pending, ok := s.unmarked[id]; ok {
			s.retryMark(ctx, pending)
			continue
		}
		j := job{vod: entry.VOD, path: entry.FilePath, endpoint: entry.ResumeEndpoint, resumed: true}
		if j.vod.ID == "" {
			j.vod.ID = id
		}
		if err := s.upload(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// finishStaleEntry clears a ledger entry whose VOD was already marked
// complete, which happens when the process stops between the history mark
// and the ledger removal.
func (s *Scheduler) finishStaleEntry(ctx context.Context, id string, entry ledger.Entry) {
	ctx = logging.WithVODID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)
	if s.opts.DryRun {
		logger.Info("dry run: would clear ledger entry for completed vod", logging.String(logging.FieldFile, entry.FilePath))
		return
	}
	if err := s.removeEntry(ctx, id); err != nil {
		s.stateFailure(ctx, logger, "failed to clear ledger entry for completed vod", "ledger_write_failed", "ledger remove", err,
			"the entry is cleared on a later cycle")
		return
	}
	logger.Info("cleared ledger entry for completed vod",
		logging.String(logging.FieldFile, entry.FilePath),
		logging.String(logging.FieldEventType, "ledger_entry_cleared"),
	)
	if _, err := os.Stat(entry.FilePath); err == nil {
		s.relocate(ctx, logger, entry.FilePath)
	}
}

// retryMark writes the history line for an upload that already reached the
// platform, without transferring it again.
func (s *Scheduler) retryMark(ctx context.Context, f finished) {
	ctx = logging.WithVODID(ctx, f.job.vod.ID)
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldFile, f.job.path))
	logger.Info("retrying history write for uploaded vod",
		logging.String("video_id", f.result.VideoID),
		logging.String(logging.FieldEventType, "history_write_retry"),
	)
	s.complete(ctx, logger, f.job, f.meta, f.size, f.result, f.elapsed)
}

// upload runs one job to a terminal outcome. Only cancellation and the quota
// sleep's error are returned; transfer and state failures are reported and
// absorbed.
func (s *Scheduler) upload(ctx context.Context, j job) error {
	ctx = logging.WithVODID(ctx, j.vod.ID)
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldFile, j.path))

	info, err := os.Stat(j.path)
	if err != nil {
		s.reportMissing(ctx, logger, j, err)
		return nil
	}

	meta := upload.BuildMetadata(j.vod, s.opts.CategoryID, s.opts.Privacy)
	if s.opts.DryRun {
		logger.Info("dry run: would upload recording",
			logging.String("title", meta.Title),
			logging.Bool("resume", j.resumed),
			logging.Int64("size", info.Size()),
			logging.String(logging.FieldEventType, "dry_run_upload"),
		)
		return nil
	}

	if err := s.deps.Ledger.Save(ctx, j.vod.ID, j.endpoint, j.path, j.vod); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.stateFailure(ctx, logger, "failed to save ledger entry; skipping upload", "ledger_write_failed", "ledger save", err,
			"recording is retried on a later cycle")
		return nil
	}

	file, err := os.Open(j.path)
	if err != nil {
		s.abandon(ctx, logger, j, meta, fmt.Errorf("%w: open %s: %w", upload.ErrReachedRetryMax, j.path, err))
		return nil
	}
	defer file.Close()

	session, err := s.deps.Transfer.Begin(ctx, meta, file, j.endpoint)
	if err != nil {
		return s.handleTransferError(ctx, logger, j, meta, err)
	}
	if endpoint := session.ResumeEndpoint(); endpoint != "" && endpoint != j.endpoint {
		if err := s.deps.Ledger.Save(ctx, j.vod.ID, endpoint, j.path, j.vod); err != nil {
			logging.WarnWithContext(logger, "failed to save resume endpoint", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on paths.state_dir"),
				logging.String(logging.FieldImpact, "an interrupted upload restarts from the beginning"),
			)
		}
	}

	logger.Info("upload started",
		logging.String("title", meta.Title),
		logging.Bool("resume", j.resumed),
		logging.Int64("size", info.Size()),
		logging.String(logging.FieldEventType, "upload_started"),
	)
	s.notify(ctx, notifications.EventUploadStarted, notifications.Payload{"title": meta.Title})

	started := s.deps.Clock.Now()
	result, err := session.Upload(ctx, s.progressLogger(logger, j.vod.ID))
	if err != nil {
		return s.handleTransferError(ctx, logger, j, meta, err)
	}
	s.complete(ctx, logger, j, meta, info.Size(), result, s.deps.Clock.Now().Sub(started))
	return nil
}

func (s *Scheduler) handleTransferError(ctx context.Context, logger *slog.Logger, j job, meta upload.Metadata, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Info("upload interrupted; ledger entry kept for resume",
			logging.String(logging.FieldEventType, "upload_interrupted"),
		)
		return ctxErr
	}
	if upload.IsQuota(err) {
		return s.pauseForQuota(ctx, logger, meta)
	}
	s.abandon(ctx, logger, j, meta, err)
	return nil
}

// pauseForQuota suspends the whole pipeline until the quota resets. The
// ledger entry stays so the next drain resumes this upload first.
func (s *Scheduler) pauseForQuota(ctx context.Context, logger *slog.Logger, meta upload.Metadata) error {
	now := s.deps.Clock.Now()
	wait := s.deps.Governor.SleepUntilReset(now)
	resumeAt := s.deps.Governor.NextReset(now)
	logging.WarnWithContext(logger, "upload quota exceeded; pausing until reset", "quota_paused",
		logging.Duration("sleep", wait),
		logging.Time("resume_at", resumeAt),
		logging.String(logging.FieldErrorHint, "the platform's daily upload quota is spent"),
		logging.String(logging.FieldImpact, "uploads resume after the quota resets"),
	)
	s.deps.Metrics.QuotaPaused(true)
	s.notify(ctx, notifications.EventQuotaPaused, notifications.Payload{
		"title":     meta.Title,
		"resume_at": resumeAt,
	})
	if err := s.deps.Clock.Sleep(ctx, wait); err != nil {
		return err
	}
	s.deps.Metrics.QuotaPaused(false)
	logger.Info("quota reset reached; continuing", logging.String(logging.FieldEventType, "quota_resumed"))
	return nil
}

// abandon drops a non-resumable upload. The recording stays in the watch
// folder and is matched again on a later cycle.
func (s *Scheduler) abandon(ctx context.Context, logger *slog.Logger, j job, meta upload.Metadata, cause error) {
	if err := s.removeEntry(ctx, j.vod.ID); err != nil {
		s.stateFailure(ctx, logger, "failed to clear ledger entry for abandoned upload", "ledger_write_failed", "ledger remove", err,
			"the upload is retried from the ledger on a later cycle")
	}
	s.deps.Metrics.UploadFailed()
	logging.ErrorWithContext(logger, "upload failed", "upload_failed",
		logging.String("title", meta.Title),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "check network access and youtube credentials"),
	)
	s.notify(ctx, notifications.EventUploadFailed, notifications.Payload{
		"title": meta.Title,
		"error": cause,
	})
}

func (s *Scheduler) complete(ctx context.Context, logger *slog.Logger, j job, meta upload.Metadata, size int64, result *upload.Result, elapsed time.Duration) {
	if result == nil {
		result = &upload.Result{}
	}
	if err := s.deps.History.Mark(ctx, j.vod.ID); err != nil {
		s.unmarked[j.vod.ID] = finished{job: j, meta: meta, size: size, result: result, elapsed: elapsed}
		s.stateFailure(ctx, logger, "failed to record completed upload", "history_write_failed", "history write", err,
			"ledger entry kept; the history write is retried next cycle")
		return
	}
	delete(s.unmarked, j.vod.ID)
	if err := s.removeEntry(ctx, j.vod.ID); err != nil {
		s.stateFailure(ctx, logger, "failed to clear ledger entry for completed upload", "ledger_write_failed", "ledger remove", err,
			"the entry is cleared on a later cycle")
	}
	dest := s.relocate(ctx, logger, j.path)

	if s.deps.Archive != nil {
		entry := archive.Entry{
			VOD:           j.vod,
			FilePath:      dest,
			FileSize:      size,
			Result:        *result,
			UploadedAt:    s.deps.Clock.Now(),
			UploadElapsed: elapsed,
		}
		if err := s.deps.Archive.Record(ctx, entry); err != nil {
			logging.WarnWithContext(logger, "archive write failed", "archive_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the uploads database in paths.state_dir"),
				logging.String(logging.FieldImpact, "upload is missing from vodbridge history"),
			)
		}
	}
	s.deps.Metrics.UploadCompleted(size, elapsed)

	logger.Info("upload complete",
		logging.String("video_id", result.VideoID),
		logging.String("title", result.Title),
		logging.String("channel", result.ChannelTitle),
		logging.String("channel_id", result.ChannelID),
		logging.String("privacy", result.Privacy),
		logging.Time("published_at", result.PublishedAt),
		logging.String("link", result.Link()),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "upload_completed"),
	)
	s.notify(ctx, notifications.EventUploadCompleted, notifications.Payload{
		"title": meta.Title,
		"link":  result.Link(),
	})
}

func (s *Scheduler) removeEntry(ctx context.Context, id string) error {
	if err := s.deps.Ledger.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove ledger entry %s: %w", id, err)
	}
	return nil
}

func (s *Scheduler) reportMissing(ctx context.Context, logger *slog.Logger, j job, err error) {
	if !j.resumed {
		logger.Info("recording disappeared before upload", logging.Error(err))
		return
	}
	if _, warned := s.missingWarned[j.vod.ID]; warned {
		return
	}
	s.missingWarned[j.vod.ID] = struct{}{}
	logging.WarnWithContext(logger, "ledger entry references a missing recording", "ledger_file_missing",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "restore the file or run vodbridge ledger remove "+j.vod.ID),
		logging.String(logging.FieldImpact, "this vod is not uploaded until the entry is resolved"),
	)
	s.notify(ctx, notifications.EventMissingFile, notifications.Payload{"file": j.path})
}

// stateFailure reports a ledger or history write that failed and publishes an
// error notification.
func (s *Scheduler) stateFailure(ctx context.Context, logger *slog.Logger, msg, eventType, label string, err error, impact string) {
	logging.ErrorWithContext(logger, msg, eventType,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions and free space in paths.state_dir"),
		logging.String(logging.FieldImpact, impact),
	)
	s.notify(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err,
	})
}

func (s *Scheduler) relocateCompleted(ctx context.Context, matches []recordings.Match) {
	for _, match := range matches {
		logger := logging.WithContext(logging.WithVODID(ctx, match.VOD.ID), s.logger).
			With(logging.String(logging.FieldFile, match.File.Path))
		if s.opts.DryRun {
			logger.Info("dry run: would relocate already uploaded recording")
			continue
		}
		logger.Info("recording already uploaded; relocating", logging.String(logging.FieldEventType, "relocate_completed"))
		s.relocate(ctx, logger, match.File.Path)
	}
}

// relocate moves path into the completed folder and returns the new path, or
// the original path when the move fails.
func (s *Scheduler) relocate(_ context.Context, logger *slog.Logger, path string) string {
	dest, err := fileutil.MoveInto(path, s.opts.CompletedDir)
	if err != nil {
		logging.WarnWithContext(logger, "failed to relocate recording", "relocate_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on paths.completed_dir"),
			logging.String(logging.FieldImpact, "recording stays in the watch folder and is relocated next cycle"),
		)
		return path
	}
	return dest
}

func (s *Scheduler) progressLogger(logger *slog.Logger, id string) upload.ProgressFunc {
	sampler := logging.NewProgressSampler(5)
	return func(sent, total int64) {
		percent := -1.0
		if total > 0 {
			percent = float64(sent) / float64(total) * 100
		}
		if !sampler.ShouldLog(percent, id) {
			return
		}
		logger.Info("upload progress",
			logging.Float64("percent", percent),
			logging.Int64("sent", sent),
			logging.Int64("total", total),
			logging.String(logging.FieldEventType, "upload_progress"),
		)
	}
}
