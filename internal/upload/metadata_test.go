package upload_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

func TestShortenTitle(t *testing.T) {
	long := strings.Repeat("a", 120)
	songRequest := "Speedrun of GTAV Classic% - what could possibly go wrong! (hint - everything) - !songrequest theme - Jazz & Blues"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short untouched", "Short stream", "Short stream"},
		{"short keeps songrequest", "Chill - !songrequest on", "Chill - !songrequest on"},
		{"long drops songrequest", songRequest, "Speedrun of GTAV Classic% - what could possibly go wrong! (hint - everything)"},
		{"long truncated", long, strings.Repeat("a", 97) + "..."},
		{"exactly limit", strings.Repeat("b", 100), strings.Repeat("b", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := upload.ShortenTitle(tt.in); got != tt.want {
				t.Fatalf("ShortenTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShortenTitleCountsCharacters(t *testing.T) {
	title := strings.Repeat("é", 150)
	got := upload.ShortenTitle(title)
	if n := utf8.RuneCountInString(got); n != upload.MaxTitleLength {
		t.Fatalf("expected %d characters, got %d", upload.MaxTitleLength, n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a multi-byte character")
	}
}

func TestShortenTitleNormalizesToNFC(t *testing.T) {
	decomposed := "Cafe\u0301 stream"
	if got := upload.ShortenTitle(decomposed); got != "Caf\u00e9 stream" {
		t.Fatalf("expected composed form, got %q", got)
	}
}

func TestBuildMetadata(t *testing.T) {
	rec := vod.Record{
		ID:          "1",
		Title:       "Evening stream",
		URL:         "https://www.twitch.tv/videos/1",
		Description: "chat was great",
	}
	meta := upload.BuildMetadata(rec, "20", "unlisted")
	if meta.Title != "Evening stream" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	wantDesc := "Evening stream\nTwitch Video: https://www.twitch.tv/videos/1\nchat was great"
	if meta.Description != wantDesc {
		t.Fatalf("unexpected description %q", meta.Description)
	}
	if meta.CategoryID != "20" || meta.Privacy != "unlisted" {
		t.Fatalf("unexpected category/privacy: %+v", meta)
	}
}

func TestResultLink(t *testing.T) {
	if got := (upload.Result{VideoID: "abc"}).Link(); got != "https://youtube.com/watch?v=abc" {
		t.Fatalf("unexpected link %q", got)
	}
	if got := (upload.Result{}).Link(); got != "" {
		t.Fatalf("expected empty link, got %q", got)
	}
}
