package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"annofuse/internal/continuity"
	"annofuse/internal/ledger"
	"annofuse/internal/logging"
)

// Continuity finding categories.
const (
	CategoryNoFrames      = "no_frames"
	CategoryDiscontinuous = "discontinuous"
)

// DirContinuity is the continuity outcome for one directory.
type DirContinuity struct {
	Dir      string            `json:"dir"`
	Pattern  string            `json:"pattern"`
	Empty    bool              `json:"empty"`
	Excluded int               `json:"excluded"`
	Report   continuity.Report `json:"report"`
}

// ContinuitySummary lists every checked directory.
type ContinuitySummary struct {
	Dirs          []DirContinuity `json:"dirs"`
	Continuous    int             `json:"continuous"`
	Discontinuous int             `json:"discontinuous"`
	Empty         int             `json:"empty"`
}

// CheckContinuity checks the frame indices of each directory against
// pattern. An empty directory and a gap are both findings, kept apart by
// category.
func CheckContinuity(ctx context.Context, job *Job, dirs []string, pattern continuity.Pattern) (ContinuitySummary, error) {
	var summary ContinuitySummary
	job.StartProgress("continuity", len(dirs))
	defer job.FinishProgress()
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		report, scan, err := continuity.CheckDir(dir, pattern)
		job.Step()
		dc := DirContinuity{Dir: dir, Pattern: pattern.Name, Excluded: scan.Excluded, Report: report}
		var empty *continuity.EmptyInputError
		switch {
		case errors.As(err, &empty):
			dc.Empty = true
			summary.Empty++
			job.AddFinding(ledger.Finding{
				CaptureID: captureFromDir(dir),
				Severity:  SeverityError,
				Category:  CategoryNoFrames,
				Subject:   dir,
				Message:   "no frames match " + describePattern(pattern),
			})
		case err != nil:
			return summary, err
		case report.IsContinuous:
			summary.Continuous++
		default:
			summary.Discontinuous++
			job.AddFinding(ledger.Finding{
				CaptureID: captureFromDir(dir),
				Severity:  SeverityError,
				Category:  CategoryDiscontinuous,
				Subject:   dir,
				Message:   "missing frames " + strings.Join(report.MissingRanges, ","),
			})
		}
		summary.Dirs = append(summary.Dirs, dc)
	}
	job.Logger.Info("continuity check complete",
		logging.String(logging.FieldEventType, "continuity_complete"),
		logging.Int("continuous", summary.Continuous),
		logging.Int("discontinuous", summary.Discontinuous),
		logging.Int("empty", summary.Empty),
	)
	return summary, nil
}

func describePattern(p continuity.Pattern) string {
	if p.Prefix == "" {
		return "<name>_<index>" + p.Suffix
	}
	return p.Prefix + "<index>" + p.Suffix
}

// captureFromDir guesses the capture id from a frame directory path; the
// capture directory is the one holding the APS or EVS tree.
func captureFromDir(dir string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	for i := len(parts) - 1; i > 0; i-- {
		switch strings.ToUpper(parts[i]) {
		case "APS", "EVS":
			return parts[i-1]
		}
	}
	return ""
}
