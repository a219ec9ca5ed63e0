package vod

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks VOD listing as exhausted after every retry failed.
var ErrUnavailable = errors.New("twitch vod listing unavailable")

// Lister fetches the channel's VOD records, newest first.
type Lister interface {
	ListVideos(ctx context.Context) ([]Record, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]Record, error)

func (f ListerFunc) ListVideos(ctx context.Context) ([]Record, error) { return f(ctx) }

// FetchError describes a transient listing failure.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("twitch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
