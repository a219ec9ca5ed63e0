// Package youtube implements upload.Transfer with the YouTube Data API v3
// client. The client library owns the resumable upload protocol and its
// per-chunk retries.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"vodbridge/internal/upload"
)

const (
	defaultChunkSize     = 16 * 1024 * 1024
	defaultRetryDeadline = 10 * time.Minute
)

var quotaReasons = map[string]struct{}{
	"quotaExceeded":       {},
	"uploadLimitExceeded": {},
	"dailyLimitExceeded":  {},
}

type insertFunc func(ctx context.Context, video *yt.Video, media io.Reader, progress googleapi.ProgressUpdater) (*yt.Video, error)

// Options tunes the transfer.
type Options struct {
	ChunkSize     int
	RetryDeadline time.Duration
}

// Transfer uploads videos through the Data API.
type Transfer struct {
	insert insertFunc
}

// New builds a Transfer using an authorized HTTP client.
func New(ctx context.Context, client *http.Client, opts Options) (*Transfer, error) {
	if client == nil {
		return nil, errors.New("youtube: nil http client")
	}
	svc, err := yt.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	deadline := opts.RetryDeadline
	if deadline <= 0 {
		deadline = defaultRetryDeadline
	}
	return &Transfer{
		insert: func(ctx context.Context, video *yt.Video, media io.Reader, progress googleapi.ProgressUpdater) (*yt.Video, error) {
			call := svc.Videos.Insert([]string{"snippet", "status"}, video).
				Media(media, googleapi.ChunkSize(chunk), googleapi.ChunkRetryDeadline(deadline)).
				ProgressUpdater(progress).
				Context(ctx)
			return call.Do()
		},
	}, nil
}

// Begin prepares an upload of file. The client library keeps its session
// URI private, so a saved resume endpoint cannot be honoured and the upload
// restarts from the first byte.
func (t *Transfer) Begin(_ context.Context, meta upload.Metadata, file *os.File, _ string) (upload.Session, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: no file", upload.ErrReachedRetryMax)
	}
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", upload.ErrReachedRetryMax, file.Name(), err)
	}
	return &session{
		insert: t.insert,
		file:   file,
		size:   info.Size(),
		video: &yt.Video{
			Snippet: &yt.VideoSnippet{
				Title:       meta.Title,
				Description: meta.Description,
				CategoryId:  meta.CategoryID,
			},
			Status: &yt.VideoStatus{PrivacyStatus: meta.Privacy},
		},
	}, nil
}

type session struct {
	insert insertFunc
	file   *os.File
	size   int64
	video  *yt.Video
}

func (s *session) ResumeEndpoint() string { return "" }

func (s *session) Upload(ctx context.Context, progress upload.ProgressFunc) (*upload.Result, error) {
	updater := func(current, _ int64) {
		if progress != nil {
			progress(current, s.size)
		}
	}
	video, err := s.insert(ctx, s.video, s.file, updater)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return toResult(video), nil
}

func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("upload interrupted: %w", ctxErr)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if _, ok := quotaReasons[item.Reason]; ok {
				return fmt.Errorf("%w: %s", upload.ErrExceededQuota, item.Message)
			}
		}
	}
	return fmt.Errorf("%w: %w", upload.ErrReachedRetryMax, err)
}

func toResult(video *yt.Video) *upload.Result {
	if video == nil {
		return &upload.Result{}
	}
	result := &upload.Result{VideoID: video.Id}
	if sn := video.Snippet; sn != nil {
		result.Title = sn.Title
		result.ChannelTitle = sn.ChannelTitle
		result.ChannelID = sn.ChannelId
		if published, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			result.PublishedAt = published
		}
	}
	if st := video.Status; st != nil {
		result.Privacy = st.PrivacyStatus
	}
	return result
}
