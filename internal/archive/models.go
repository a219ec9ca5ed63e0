package archive

import (
	"time"

	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

// Entry is one archived upload.
type Entry struct {
	VOD           vod.Record
	FilePath      string
	FileSize      int64
	Result        upload.Result
	UploadedAt    time.Time
	UploadElapsed time.Duration
}

// Link returns the watch URL of the uploaded video.
func (e Entry) Link() string {
	return e.Result.Link()
}
