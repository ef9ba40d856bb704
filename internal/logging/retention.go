package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes run log files under logDir/runs whose modification
// time is older than retentionDays. Paths listed in keep are never removed.
// A retentionDays value of 0 disables pruning. It returns how many files
// were removed.
func PruneRunLogs(logger *slog.Logger, logDir string, retentionDays int, keep ...string) int {
	if retentionDays <= 0 || logDir == "" {
		return 0
	}
	dir := filepath.Join(logDir, RunLogSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			exclusions[abs] = struct{}{}
		}
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if _, skip := exclusions[fullPath]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "run log prune failed; file remains", "run_log_prune_failed",
				String(FieldPath, fullPath),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("run log pruned",
				String(FieldPath, fullPath),
				String(FieldEventType, "run_log_pruned"),
			)
		}
	}
	return removed
}
