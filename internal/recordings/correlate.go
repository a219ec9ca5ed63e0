package recordings

import (
	"time"

	"vodbridge/internal/vod"
)

// Window is the half-open interval [Start, End) in which a recording's
// modification time is attributed to a VOD.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor derives the correlation window of rec.
func WindowFor(rec vod.Record, startDelta, endDelta time.Duration) Window {
	return Window{
		Start: rec.CreatedAt.Add(-startDelta),
		End:   rec.End().Add(endDelta),
	}
}

// Contains reports whether t falls in the window. The lower bound is
// inclusive and the upper bound exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Options tunes Correlate.
type Options struct {
	StartDelta time.Duration
	EndDelta   time.Duration

	// EnforceThresholds enables the size/age guard for files that may still
	// be written by the recorder.
	EnforceThresholds bool
	SizeThreshold     int64
	AgeThreshold      time.Duration
	Now               time.Time
}

// Completed answers idempotence queries against the completed history.
type Completed interface {
	Contains(vodID string) bool
}

// Match pairs a recording with the VOD it belongs to.
type Match struct {
	File File
	VOD  vod.Record
}

// Result partitions one cycle's files.
type Result struct {
	// Uploads are new matches to drain, in file path order.
	Uploads []Match
	// Relocate are matches whose VOD is already uploaded.
	Relocate []Match
	// InFlight are files already owned by a ledger entry, by path or VOD id.
	InFlight []File
	// Deferred matched a VOD already claimed by an earlier file this cycle.
	Deferred []Match
	// Unmatched fall outside every window and are retried next cycle.
	Unmatched []File
	// Immature failed the size/age guard.
	Immature []File
}

// Correlate assigns each file to the first VOD, in cache order, whose window
// contains the file's modification time. inFlight maps ledger VOD ids to
// their file paths. Correlate does not touch the filesystem and returns the
// same Result for the same inputs.
func Correlate(files []File, vods []vod.Record, inFlight map[string]string, completed Completed, opts Options) Result {
	busyPaths := make(map[string]struct{}, len(inFlight))
	for _, path := range inFlight {
		busyPaths[path] = struct{}{}
	}
	claimed := make(map[string]struct{})

	var result Result
	for _, file := range files {
		if _, ok := busyPaths[file.Path]; ok {
			result.InFlight = append(result.InFlight, file)
			continue
		}
		if opts.EnforceThresholds && immature(file, opts) {
			result.Immature = append(result.Immature, file)
			continue
		}
		rec, ok := firstMatch(file, vods, opts)
		if !ok {
			result.Unmatched = append(result.Unmatched, file)
			continue
		}
		match := Match{File: file, VOD: rec}
		if completed != nil && completed.Contains(rec.ID) {
			result.Relocate = append(result.Relocate, match)
			continue
		}
		if _, ok := inFlight[rec.ID]; ok {
			result.InFlight = append(result.InFlight, file)
			continue
		}
		if _, ok := claimed[rec.ID]; ok {
			result.Deferred = append(result.Deferred, match)
			continue
		}
		claimed[rec.ID] = struct{}{}
		result.Uploads = append(result.Uploads, match)
	}
	return result
}

func firstMatch(file File, vods []vod.Record, opts Options) (vod.Record, bool) {
	for _, rec := range vods {
		if WindowFor(rec, opts.StartDelta, opts.EndDelta).Contains(file.ModTime) {
			return rec, true
		}
	}
	return vod.Record{}, false
}

func immature(file File, opts Options) bool {
	if file.Size < opts.SizeThreshold {
		return true
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Sub(file.ModTime) < opts.AgeThreshold
}
