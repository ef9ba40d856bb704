package workflow

import (
	"context"
	"path/filepath"

	"annofuse/internal/capture"
	"annofuse/internal/ledger"
	"annofuse/internal/logging"
)

// CaptureCheckOptions configures a dataset-wide capture integrity check.
type CaptureCheckOptions struct {
	DatasetDir   string
	IDPrefix     string
	RemoveExtras bool
	DryRun       bool
}

// CaptureCheckSummary collects the per-capture results.
type CaptureCheckSummary struct {
	Captures     int              `json:"captures"`
	Complete     int              `json:"complete"`
	Incomplete   int              `json:"incomplete"`
	ExtrasFound  int              `json:"extras_found"`
	FilesRemoved int              `json:"files_removed"`
	Results      []capture.Result `json:"results"`
}

// CheckCaptures checks every capture directory under the dataset root and
// optionally deletes the device files converters leave behind.
func CheckCaptures(ctx context.Context, job *Job, opts CaptureCheckOptions) (CaptureCheckSummary, error) {
	var summary CaptureCheckSummary
	ids, err := capture.ListIDs(opts.DatasetDir, opts.IDPrefix)
	if err != nil {
		return summary, err
	}
	summary.Captures = len(ids)
	job.StartProgress("capture check", len(ids))
	defer job.FinishProgress()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := capture.Check(filepath.Join(opts.DatasetDir, id))
		job.Step()
		if err != nil {
			job.Problem(id, id, err)
			summary.Incomplete++
			continue
		}
		for _, f := range res.Findings {
			job.AddFinding(ledger.Finding{
				CaptureID: f.CaptureID,
				Severity:  string(f.Severity),
				Category:  f.Category,
				Subject:   f.Subject,
				Message:   f.Message,
			})
		}
		if res.OK() {
			summary.Complete++
		} else {
			summary.Incomplete++
		}
		summary.ExtrasFound += len(res.Extras)
		if opts.RemoveExtras && !opts.DryRun && len(res.Extras) > 0 {
			removed, err := capture.RemoveExtras(res.Extras)
			summary.FilesRemoved += removed
			if err != nil {
				job.Problem(id, id, err)
			}
		}
		summary.Results = append(summary.Results, res)
	}
	job.Logger.Info("capture check complete",
		logging.String(logging.FieldEventType, "capture_check_complete"),
		logging.Int("captures", summary.Captures),
		logging.Int("incomplete", summary.Incomplete),
		logging.Int("files_removed", summary.FilesRemoved),
	)
	return summary, nil
}

// DedupeSummary reports duplicate label files.
type DedupeSummary struct {
	Duplicates   []capture.Duplicate `json:"duplicates"`
	FilesRemoved int                 `json:"files_removed"`
}

// Dedupe finds "name(1).xml" copies next to "name.xml" and removes them when
// remove is set.
func Dedupe(ctx context.Context, job *Job, dir string, remove bool) (DedupeSummary, error) {
	var summary DedupeSummary
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	dups, err := capture.FindDuplicates(dir)
	if err != nil {
		return summary, err
	}
	summary.Duplicates = dups
	for _, d := range dups {
		rel, relErr := filepath.Rel(dir, d.Path)
		if relErr != nil {
			rel = d.Path
		}
		job.AddFinding(ledger.Finding{
			CaptureID: captureOf(rel),
			Severity:  SeverityWarning,
			Category:  capture.CategoryDuplicate,
			Subject:   filepath.ToSlash(rel),
			Message:   "duplicate of " + filepath.Base(d.Original),
		})
	}
	if remove && len(dups) > 0 {
		removed, err := capture.RemoveDuplicates(dups)
		summary.FilesRemoved = removed
		if err != nil {
			return summary, err
		}
	}
	job.Logger.Info("dedupe complete",
		logging.String(logging.FieldEventType, "dedupe_complete"),
		logging.Int("findings", len(dups)),
		logging.Int("files_removed", summary.FilesRemoved),
	)
	return summary, nil
}
