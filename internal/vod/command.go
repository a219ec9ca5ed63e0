package vod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner executes argv and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandLister lists VODs by running an external command that prints
// Helix "Get Videos" JSON, such as `twitch api get videos`.
type CommandLister struct {
	Args    []string
	UserID  string
	Timeout time.Duration
	Run     CommandRunner
}

// UserIDPlaceholder is replaced with UserID in Args.
const UserIDPlaceholder = "{user_id}"

// ListVideos runs the command and parses its output.
func (l *CommandLister) ListVideos(ctx context.Context) ([]Record, error) {
	if l == nil || len(l.Args) == 0 {
		return nil, &FetchError{Op: "list videos", Err: errors.New("no listing command configured")}
	}
	args := make([]string, len(l.Args))
	for i, arg := range l.Args {
		args[i] = strings.ReplaceAll(arg, UserIDPlaceholder, l.UserID)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	run := l.Run
	if run == nil {
		run = runCommand
	}
	out, err := run(ctx, args[0], args[1:]...)
	if err != nil {
		return nil, &FetchError{Op: "list videos", Err: err}
	}
	records, err := ParseVideos(out)
	if err != nil {
		return nil, &FetchError{Op: "parse videos", Err: err}
	}
	return records, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

type helixVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	Duration    string `json:"duration"`
}

type helixResponse struct {
	Data    []helixVideo `json:"data"`
	Error   string       `json:"error"`
	Message string       `json:"message"`
}

// ParseVideos decodes Helix video JSON: either the full response envelope
// ({"data": [...]}) or a bare array of video objects.
func ParseVideos(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	var videos []helixVideo
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &videos); err != nil {
			return nil, fmt.Errorf("decode video list: %w", err)
		}
	} else {
		var resp helixResponse
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("decode video response: %w", err)
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("api error: %s: %s", resp.Error, resp.Message)
		}
		videos = resp.Data
	}

	records := make([]Record, 0, len(videos))
	for _, v := range videos {
		rec, err := v.record()
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", v.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (v helixVideo) record() (Record, error) {
	if strings.TrimSpace(v.ID) == "" {
		return Record{}, errors.New("missing id")
	}
	created, err := time.Parse(time.RFC3339, v.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", v.CreatedAt, err)
	}
	duration, err := ParseDuration(v.Duration)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:          v.ID,
		Title:       v.Title,
		URL:         v.URL,
		Description: v.Description,
		CreatedAt:   created,
		Duration:    duration,
	}, nil
}

// ParseDuration converts Twitch duration strings such as "3h8m33s".
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("missing duration")
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return d, nil
}
