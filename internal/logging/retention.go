package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunLogPattern matches the per-run daemon logs written to paths.log_dir.
const RunLogPattern = "vodbridge-*.log"

// PruneRunLogs deletes run logs in dir last modified more than retentionDays
// ago and returns the removed paths in name order. keep is never removed,
// and retentionDays <= 0 disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) []string {
	if retentionDays <= 0 || dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep = absPath(keep)
	var removed []string
	for _, path := range matches {
		if keep != "" && absPath(path) == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed = append(removed, path)
	}
	if logger != nil && len(removed) > 0 {
		logger.Info("run logs pruned",
			Int("count", len(removed)),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
