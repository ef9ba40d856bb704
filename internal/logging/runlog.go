package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogSubdir holds one JSON log file per recorded run under log_dir.
const RunLogSubdir = "runs"

// RunLog is a per-run JSON log file. Its handler is teed next to the
// command logger so a batch leaves a full debug trail on disk.
type RunLog struct {
	Path    string
	file    *os.File
	handler slog.Handler
}

// RunLogPath returns where the log for runID started at ts is written.
func RunLogPath(logDir, command, runID string, ts time.Time) string {
	command = strings.ReplaceAll(strings.TrimSpace(command), " ", "-")
	if command == "" {
		command = "run"
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("%s-%s-%s.log", ts.Format("20060102-150405"), command, short)
	return filepath.Join(logDir, RunLogSubdir, name)
}

// OpenRunLog creates the run log file and a debug-level JSON handler for it.
func OpenRunLog(logDir, command, runID string, ts time.Time) (*RunLog, error) {
	if strings.TrimSpace(logDir) == "" {
		return nil, fmt.Errorf("open run log: log directory is empty")
	}
	path := RunLogPath(logDir, command, runID, ts)
	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	handler, err := newJSONHandler(file, lvl, false)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	handler = handler.WithAttrs([]slog.Attr{slog.String(FieldRunID, runID)})
	return &RunLog{Path: path, file: file, handler: handler}, nil
}

// Handler returns the handler writing to the run log.
func (r *RunLog) Handler() slog.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

// Tee returns logger with its output duplicated into the run log.
func (r *RunLog) Tee(logger *slog.Logger) *slog.Logger {
	if r == nil {
		return logger
	}
	return TeeLogger(logger, r.handler)
}

// Close flushes and closes the file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
