package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vodbridge/internal/upload"
	"vodbridge/internal/vod"
)

// FakeClock is a manually advanced clock. Sleep advances the clock instead
// of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// OnSleep, when set, runs after each sleep; a non-nil error is returned
	// from Sleep.
	OnSleep func(n int, d time.Duration) error
}

// NewFakeClock starts a clock at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.OnSleep
	c.mu.Unlock()
	if hook != nil {
		return hook(n, d)
	}
	return nil
}

// Sleeps returns every requested sleep in order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// StaticLister returns fixed records, or Err when set.
type StaticLister struct {
	mu      sync.Mutex
	Records []vod.Record
	Err     error
	calls   int
}

func (l *StaticLister) ListVideos(context.Context) ([]vod.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.Err != nil {
		return nil, &vod.FetchError{Op: "list videos", Err: l.Err}
	}
	out := make([]vod.Record, len(l.Records))
	copy(out, l.Records)
	return out, nil
}

// Calls reports how many times ListVideos ran.
func (l *StaticLister) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// TransferCall records one Begin invocation.
type TransferCall struct {
	Title    string
	Path     string
	Endpoint string
}

// FakeTransfer is an in-memory upload.Transfer.
type FakeTransfer struct {
	mu    sync.Mutex
	calls []TransferCall

	// Outcome decides each upload; the default succeeds with a video id
	// derived from the file name.
	Outcome func(call TransferCall) (*upload.Result, error)
	// Endpoint returns the resume endpoint a new session reports.
	Endpoint func(call TransferCall) string
}

func (f *FakeTransfer) Begin(_ context.Context, meta upload.Metadata, file *os.File, resumeEndpoint string) (upload.Session, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	call := TransferCall{Title: meta.Title, Path: file.Name(), Endpoint: resumeEndpoint}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	endpoint := resumeEndpoint
	if endpoint == "" && f.Endpoint != nil {
		endpoint = f.Endpoint(call)
	}
	return &fakeSession{transfer: f, call: call, size: info.Size(), endpoint: endpoint, meta: meta}, nil
}

// Calls returns every Begin invocation in order.
func (f *FakeTransfer) Calls() []TransferCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TransferCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeSession struct {
	transfer *FakeTransfer
	call     TransferCall
	size     int64
	endpoint string
	meta     upload.Metadata
}

func (s *fakeSession) ResumeEndpoint() string { return s.endpoint }

func (s *fakeSession) Upload(ctx context.Context, progress upload.ProgressFunc) (*upload.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(s.size/2, s.size)
		progress(s.size, s.size)
	}
	if s.transfer.Outcome != nil {
		return s.transfer.Outcome(s.call)
	}
	base := filepath.Base(s.call.Path)
	return &upload.Result{
		VideoID: "vid-" + base[:len(base)-len(filepath.Ext(base))],
		Title:   s.meta.Title,
		Privacy: s.meta.Privacy,
	}, nil
}
