// Package upload defines the resumable transfer capability the pipeline
// drives and the metadata derived from a VOD record.
//
// The wire protocol lives behind Transfer; see the youtube subpackage for the
// YouTube Data API implementation.
package upload

import (
	"context"
	"errors"
	"os"
	"time"
)

var (
	// ErrReachedRetryMax is a non-resumable failure; the upload is abandoned.
	ErrReachedRetryMax = errors.New("upload reached retry maximum")
	// ErrExceededQuota means the platform's daily quota is spent. The upload
	// may resume after the quota resets.
	ErrExceededQuota = errors.New("upload quota exceeded")
)

// Metadata describes the remote video.
type Metadata struct {
	Title       string
	Description string
	CategoryID  string
	Privacy     string
}

// Result is the platform's record of a finished upload.
type Result struct {
	VideoID      string
	Title        string
	ChannelTitle string
	ChannelID    string
	Privacy      string
	PublishedAt  time.Time
}

// Link returns the public watch URL.
func (r Result) Link() string {
	if r.VideoID == "" {
		return ""
	}
	return "https://youtube.com/watch?v=" + r.VideoID
}

// ProgressFunc receives bytes sent so far and the total size.
type ProgressFunc func(sent, total int64)

// Transfer starts or resumes uploads.
type Transfer interface {
	// Begin prepares an upload of file. A non-empty resumeEndpoint asks the
	// implementation to continue a previous session.
	Begin(ctx context.Context, meta Metadata, file *os.File, resumeEndpoint string) (Session, error)
}

// Session is one prepared upload.
type Session interface {
	// ResumeEndpoint returns the opaque token that resumes this session, or
	// "" when the implementation cannot expose one.
	ResumeEndpoint() string
	// Upload sends the media and returns the platform's result. Failures
	// wrap ErrReachedRetryMax or ErrExceededQuota.
	Upload(ctx context.Context, progress ProgressFunc) (*Result, error)
}

// IsQuota reports whether err signals quota exhaustion.
func IsQuota(err error) bool {
	return errors.Is(err, ErrExceededQuota)
}
