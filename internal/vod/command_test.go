package vod_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vodbridge/internal/vod"
)

const helixFixture = `{
  "data": [
    {
      "id": "2001",
      "user_id": "141981764",
      "title": "Speedrun night - !songrequest theme - Jazz",
      "description": "",
      "created_at": "2024-05-01T18:00:00Z",
      "published_at": "2024-05-01T18:00:00Z",
      "url": "https://www.twitch.tv/videos/2001",
      "type": "archive",
      "duration": "3h8m33s"
    },
    {
      "id": "2000",
      "title": "Short",
      "description": "desc",
      "created_at": "2024-04-30T18:00:00Z",
      "url": "https://www.twitch.tv/videos/2000",
      "duration": "45s"
    }
  ],
  "pagination": {}
}`

func TestParseVideosEnvelope(t *testing.T) {
	records, err := vod.ParseVideos([]byte(helixFixture))
	if err != nil {
		t.Fatalf("ParseVideos returned error: %v", err)
	}
	want := []vod.Record{
		{
			ID:        "2001",
			Title:     "Speedrun night - !songrequest theme - Jazz",
			URL:       "https://www.twitch.tv/videos/2001",
			CreatedAt: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
			Duration:  3*time.Hour + 8*time.Minute + 33*time.Second,
		},
		{
			ID:          "2000",
			Title:       "Short",
			Description: "desc",
			URL:         "https://www.twitch.tv/videos/2000",
			CreatedAt:   time.Date(2024, 4, 30, 18, 0, 0, 0, time.UTC),
			Duration:    45 * time.Second,
		},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVideosBareArray(t *testing.T) {
	records, err := vod.ParseVideos([]byte(`[{"id":"1","created_at":"2024-01-01T00:00:00Z","duration":"1h"}]`))
	if err != nil {
		t.Fatalf("ParseVideos returned error: %v", err)
	}
	if len(records) != 1 || records[0].Duration != time.Hour {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestParseVideosErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"garbage", "not json"},
		{"api error", `{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`},
		{"bad duration", `[{"id":"1","created_at":"2024-01-01T00:00:00Z","duration":"forever"}]`},
		{"bad timestamp", `[{"id":"1","created_at":"yesterday","duration":"1h"}]`},
		{"missing id", `[{"created_at":"2024-01-01T00:00:00Z","duration":"1h"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := vod.ParseVideos([]byte(tt.input)); err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
		})
	}
}

func TestCommandListerSubstitutesUserID(t *testing.T) {
	var gotName string
	var gotArgs []string
	lister := &vod.CommandLister{
		Args:   []string{"twitch", "api", "get", "videos", "-q", "user_id={user_id}"},
		UserID: "777",
		Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName = name
			gotArgs = args
			return []byte(helixFixture), nil
		},
	}
	records, err := lister.ListVideos(context.Background())
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if gotName != "twitch" {
		t.Fatalf("unexpected command %q", gotName)
	}
	if diff := cmp.Diff([]string{"api", "get", "videos", "-q", "user_id=777"}, gotArgs); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandListerWrapsFailuresAsFetchError(t *testing.T) {
	boom := errors.New("exit status 1")
	lister := &vod.CommandLister{
		Args: []string{"twitch"},
		Run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, boom
		},
	}
	_, err := lister.ListVideos(context.Background())
	var fetchErr *vod.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"3h8m33s", 3*time.Hour + 8*time.Minute + 33*time.Second},
		{"59m", 59 * time.Minute},
		{" 12s ", 12 * time.Second},
	}
	for _, tt := range tests {
		got, err := vod.ParseDuration(tt.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDuration(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
