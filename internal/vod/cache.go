package vod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vodbridge/internal/clock"
	"vodbridge/internal/logging"
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Threshold drops records whose duration is not strictly greater.
	Threshold time.Duration
	// Attempts bounds fetch attempts per refresh.
	Attempts int
	// Backoff is multiplied by the attempt number between failed attempts.
	Backoff time.Duration
	// RefreshRate and CheckInterval define staleness in poll cycles.
	RefreshRate   time.Duration
	CheckInterval time.Duration
	Sleep         func(ctx context.Context, d time.Duration) error
	Logger        *slog.Logger
}

// Cache is the scheduler-owned snapshot of VOD records.
type Cache struct {
	lister  Lister
	opts    CacheOptions
	logger  *slog.Logger
	records []Record
	loaded  bool
}

// NewCache wraps lister with filtering, retry and staleness tracking.
func NewCache(lister Lister, opts CacheOptions) *Cache {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = clock.Sleep
	}
	return &Cache{
		lister: lister,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "vod-cache"),
	}
}

// Refresh fetches a new snapshot, replacing the previous one. Failed fetches
// are retried with linear backoff; once every attempt fails the error wraps
// ErrUnavailable and the previous snapshot is left in place.
func (c *Cache) Refresh(ctx context.Context) ([]Record, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		records, err := c.lister.ListVideos(ctx)
		if err == nil {
			c.records = Filter(records, c.opts.Threshold)
			c.loaded = true
			c.logger.Debug("vod cache refreshed",
				logging.Int("fetched", len(records)),
				logging.Int("retained", len(c.records)),
				logging.String(logging.FieldEventType, "vod_cache_refreshed"),
			)
			return c.Records(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if attempt == c.opts.Attempts {
			break
		}
		wait := time.Duration(attempt) * c.opts.Backoff
		logging.WarnWithContext(c.logger, "twitch vod fetch failed; retrying", "vod_fetch_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.opts.Attempts),
			logging.Duration("retry_in", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check twitch CLI credentials and network access"),
			logging.String(logging.FieldImpact, "new recordings are not matched until the listing succeeds"),
		)
		if err := c.opts.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, c.opts.Attempts, lastErr)
}

// Stale reports whether the snapshot must be refreshed after cycles idle
// intervals have elapsed since the last refresh.
func (c *Cache) Stale(cycles int) bool {
	if !c.loaded {
		return true
	}
	if c.opts.CheckInterval <= 0 {
		return true
	}
	return time.Duration(cycles)*c.opts.CheckInterval >= c.opts.RefreshRate
}

// Records returns a copy of the snapshot in listing order.
func (c *Cache) Records() []Record {
	return append([]Record(nil), c.records...)
}

// Filter keeps records whose duration exceeds threshold, preserving order.
func Filter(records []Record, threshold time.Duration) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Duration > threshold {
			out = append(out, rec)
		}
	}
	return out
}

// IsUnavailable reports whether err marks exhausted VOD listing.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
