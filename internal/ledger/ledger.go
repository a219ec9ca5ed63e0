// Package ledger persists in-flight uploads so an interrupted transfer can be
// resumed after a restart or a quota pause.
//
// The document is a JSON object keyed by VOD id:
//
//	{
//	    "<vod_id>": {
//	        "upload_url": "<resume endpoint or empty>",
//	        "video_path": "<recording path>",
//	        "twitch_vod": { ... }
//	    }
//	}
//
// Every mutation rewrites the whole document through statefile.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"vodbridge/internal/logging"
	"vodbridge/internal/statefile"
	"vodbridge/internal/vod"
)

// Entry is one in-flight upload.
type Entry struct {
	ResumeEndpoint string     `json:"upload_url"`
	FilePath       string     `json:"video_path"`
	VOD            vod.Record `json:"twitch_vod"`
}

// Ledger is the durable in-flight upload document.
type Ledger struct {
	file   *statefile.File
	logger *slog.Logger
}

// Open returns a Ledger backed by path. The document is created lazily.
func Open(path string, logger *slog.Logger) *Ledger {
	return &Ledger{
		file:   statefile.New(path, 0o600),
		logger: logging.NewComponentLogger(logger, "ledger"),
	}
}

// Path returns the ledger document path.
func (l *Ledger) Path() string {
	return l.file.Path()
}

// Save upserts the entry for vodID. Saving the same values twice leaves the
// document unchanged.
func (l *Ledger) Save(ctx context.Context, vodID, resumeEndpoint, filePath string, record vod.Record) error {
	entry := Entry{ResumeEndpoint: resumeEndpoint, FilePath: filePath, VOD: record}
	return l.file.Update(ctx, func(current []byte) ([]byte, error) {
		entries := l.decode(current)
		entries[vodID] = entry
		return encode(entries)
	})
}

// Remove deletes the entry for vodID. Removing an absent id is a no-op.
func (l *Ledger) Remove(ctx context.Context, vodID string) error {
	return l.file.Update(ctx, func(current []byte) ([]byte, error) {
		entries := l.decode(current)
		if _, ok := entries[vodID]; !ok {
			return nil, statefile.ErrUnchanged
		}
		delete(entries, vodID)
		return encode(entries)
	})
}

// LoadAll returns every entry keyed by VOD id. A missing document is empty
// and a corrupt one is logged and treated as empty. Read errors are returned.
func (l *Ledger) LoadAll() (map[string]Entry, error) {
	data, err := l.file.Read()
	if err != nil {
		return nil, err
	}
	return l.decode(data), nil
}

// IDs returns the ledger's VOD ids in sorted order.
func IDs(entries map[string]Entry) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Paths maps each VOD id to its recording path.
func Paths(entries map[string]Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for id, entry := range entries {
		out[id] = entry.FilePath
	}
	return out
}

func (l *Ledger) decode(data []byte) map[string]Entry {
	entries := make(map[string]Entry)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		logging.WarnWithContext(l.logger, "ledger unreadable; treating as empty", "ledger_corrupt",
			logging.String("path", l.file.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect or delete the ledger document"),
			logging.String(logging.FieldImpact, "interrupted uploads restart instead of resuming"),
		)
		return make(map[string]Entry)
	}
	return entries
}

func encode(entries map[string]Entry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return append(data, '\n'), nil
}
