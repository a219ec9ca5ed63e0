package vod

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is an immutable snapshot of one Twitch VOD.
type Record struct {
	ID          string
	Title       string
	URL         string
	Description string
	CreatedAt   time.Time
	Duration    time.Duration
}

// End returns the moment the broadcast finished.
func (r Record) End() time.Time {
	return r.CreatedAt.Add(r.Duration)
}

type recordJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Duration    int64     `json:"duration"`
}

// MarshalJSON encodes the record with duration in whole seconds.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:          r.ID,
		Title:       r.Title,
		URL:         r.URL,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		Duration:    int64(r.Duration / time.Second),
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode vod record: %w", err)
	}
	*r = Record{
		ID:          raw.ID,
		Title:       raw.Title,
		URL:         raw.URL,
		Description: raw.Description,
		CreatedAt:   raw.CreatedAt,
		Duration:    time.Duration(raw.Duration) * time.Second,
	}
	return nil
}
