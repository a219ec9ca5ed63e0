package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	entryColumns = "vod_id, vod_title, vod_url, vod_created_at, vod_duration_seconds, file_path, file_size, video_id, video_title, channel_title, channel_id, privacy, published_at, uploaded_at, upload_seconds"
)

// Store persists archive entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the archive database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts or replaces the entry for its VOD id.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.VOD.ID) == "" {
		return errors.New("archive entry requires a vod id")
	}
	uploadedAt := entry.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO uploads (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.VOD.ID,
			entry.VOD.Title,
			nullableString(entry.VOD.URL),
			nullableTime(entry.VOD.CreatedAt),
			int64(entry.VOD.Duration/time.Second),
			entry.FilePath,
			entry.FileSize,
			entry.Result.VideoID,
			nullableString(entry.Result.Title),
			nullableString(entry.Result.ChannelTitle),
			nullableString(entry.Result.ChannelID),
			nullableString(entry.Result.Privacy),
			nullableTime(entry.Result.PublishedAt),
			uploadedAt.UTC().Format(time.RFC3339Nano),
			entry.UploadElapsed.Seconds(),
		)
		if err != nil {
			return fmt.Errorf("record upload %s: %w", entry.VOD.ID, err)
		}
		return nil
	})
}

// Get returns the entry for vodID, or nil when absent.
func (s *Store) Get(ctx context.Context, vodID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM uploads WHERE vod_id = ?`, vodID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", vodID, err)
	}
	return entry, nil
}

// List returns the most recent entries first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM uploads ORDER BY uploaded_at DESC, vod_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Count returns the number of archived uploads.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return n, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		vodID        string
		vodTitle     string
		vodURL       sql.NullString
		vodCreated   sql.NullString
		vodDuration  int64
		filePath     string
		fileSize     int64
		videoID      string
		videoTitle   sql.NullString
		channelTitle sql.NullString
		channelID    sql.NullString
		privacy      sql.NullString
		publishedRaw sql.NullString
		uploadedRaw  string
		elapsed      float64
	)
	if err := scanner.Scan(
		&vodID, &vodTitle, &vodURL, &vodCreated, &vodDuration,
		&filePath, &fileSize,
		&videoID, &videoTitle, &channelTitle, &channelID, &privacy, &publishedRaw,
		&uploadedRaw, &elapsed,
	); err != nil {
		return nil, err
	}
	return &Entry{
		VOD: vod.Record{
			ID:        vodID,
			Title:     vodTitle,
			URL:       vodURL.String,
			CreatedAt: parseTime(vodCreated),
			Duration:  time.Duration(vodDuration) * time.Second,
		},
		FilePath: filePath,
		FileSize: fileSize,
		Result: upload.Result{
			VideoID:      videoID,
			Title:        videoTitle.String,
			ChannelTitle: channelTitle.String,
			ChannelID:    channelID.String,
			Privacy:      privacy.String,
			PublishedAt:  parseTime(publishedRaw),
		},
		UploadedAt:    parseTime(sql.NullString{String: uploadedRaw, Valid: true}),
		UploadElapsed: time.Duration(elapsed * float64(time.Second)),
	}, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
