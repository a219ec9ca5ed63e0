package upload

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"vodbridge/internal/vod"
)

const (
	// MaxTitleLength is the platform's title limit in characters.
	MaxTitleLength = 100

	songRequestMarker = " - !songrequest"
	ellipsis          = "..."
)

// BuildMetadata derives upload metadata from a VOD record.
func BuildMetadata(rec vod.Record, categoryID, privacy string) Metadata {
	return Metadata{
		Title:       ShortenTitle(rec.Title),
		Description: rec.Title + "\nTwitch Video: " + rec.URL + "\n" + rec.Description,
		CategoryID:  categoryID,
		Privacy:     privacy,
	}
}

// ShortenTitle fits title within MaxTitleLength characters. Overlong titles
// first lose a trailing " - !songrequest ..." chat-command suffix and are then
// truncated with an ellipsis.
func ShortenTitle(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	if idx := strings.Index(title, songRequestMarker); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxTitleLength-len(ellipsis)]) + ellipsis
}
