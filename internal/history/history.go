// Package history records VOD ids whose uploads completed. Membership is
// monotonic and is the only idempotence source for the pipeline.
package history

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"vodbridge/internal/statefile"
)

// History is the newline-delimited completed upload log.
type History struct {
	file *statefile.File
}

// Open returns a History backed by path. A missing file is an empty set.
func Open(path string) *History {
	return &History{file: statefile.New(path, 0o644)}
}

// Path returns the log path.
func (h *History) Path() string {
	return h.file.Path()
}

// Mark adds vodID if absent. The new version is on disk when Mark returns.
func (h *History) Mark(ctx context.Context, vodID string) error {
	vodID = strings.TrimSpace(vodID)
	return h.file.Update(ctx, func(current []byte) ([]byte, error) {
		if parse(current).Contains(vodID) {
			return nil, statefile.ErrUnchanged
		}
		next := make([]byte, 0, len(current)+len(vodID)+1)
		next = append(next, current...)
		if len(next) > 0 && next[len(next)-1] != '\n' {
			next = append(next, '\n')
		}
		next = append(next, vodID...)
		return append(next, '\n'), nil
	})
}

// Contains reports whether vodID has completed.
func (h *History) Contains(vodID string) (bool, error) {
	set, err := h.Snapshot()
	if err != nil {
		return false, err
	}
	return set.Contains(strings.TrimSpace(vodID)), nil
}

// Snapshot reads the current membership.
func (h *History) Snapshot() (Set, error) {
	data, err := h.file.Read()
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

// List returns completed ids in log order.
func (h *History) List() ([]string, error) {
	data, err := h.file.Read()
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, scanner.Err()
}

// Set is an in-memory view of completed ids.
type Set map[string]struct{}

// Contains reports membership.
func (s Set) Contains(vodID string) bool {
	_, ok := s[vodID]
	return ok
}

func parse(data []byte) Set {
	set := make(Set)
	for _, line := range strings.Split(string(data), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
