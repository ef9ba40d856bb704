package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"annofuse/internal/labelio"
	"annofuse/internal/ledger"
	"annofuse/internal/logging"
	"annofuse/internal/services"
)

// OverlayOptions configures mixing detector output into a VOC label tree.
//
// Layouts:
//
//	LabelDir/<capture>/<stem>.xml
//	DetectionDir/<capture>/<FrameChannel>/<stem>.txt
//	DetectionDir/<capture>/<EventChannel>/<stem>.txt
//	OutDir/<capture>/<FrameChannel>/<stem>.xml
//	OutDir/<capture>/<EventChannel>/<stem>.txt
type OverlayOptions struct {
	LabelDir     string
	DetectionDir string
	OutDir       string
	// Class names the appended frame-camera boxes.
	Class  string
	Width  int
	Height int
	// FrameChannel and EventChannel default to "aps" and "evs".
	FrameChannel string
	EventChannel string
	DryRun       bool
}

// OverlaySummary counts what an overlay did.
type OverlaySummary struct {
	Captures       int  `json:"captures"`
	FilesModified  int  `json:"files_modified"`
	FilesWritten   int  `json:"files_written"`
	BoxesAppended  int  `json:"boxes_appended"`
	BoxesDropped   int  `json:"boxes_dropped"`
	LabelsMissing  int  `json:"labels_missing"`
	RecordsSkipped int  `json:"records_skipped"`
	DryRun         bool `json:"dry_run"`
}

func (o *OverlayOptions) defaults() {
	if o.FrameChannel == "" {
		o.FrameChannel = "aps"
	}
	if o.EventChannel == "" {
		o.EventChannel = "evs"
	}
	if o.Class == "" {
		o.Class = "danger"
	}
}

// Overlay appends frame-camera detections to the matching VOC label as
// boxes of the overlay class, and copies event-camera detections with
// every class index set to 0.
func Overlay(ctx context.Context, job *Job, opts OverlayOptions) (OverlaySummary, error) {
	opts.defaults()
	summary := OverlaySummary{DryRun: opts.DryRun}
	if opts.LabelDir == "" || opts.DetectionDir == "" || opts.OutDir == "" {
		return summary, services.Wrap(services.ErrValidation, "workflow", "overlay", "label, detection and output directories are required", nil)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return summary, services.Wrap(services.ErrValidation, "workflow", "overlay", "image size must be positive", nil)
	}
	captures, err := subdirs(opts.DetectionDir)
	if err != nil {
		return summary, err
	}
	summary.Captures = len(captures)
	job.StartProgress("overlay", len(captures))
	for _, capture := range captures {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := overlayEvents(job, opts, capture, &summary); err != nil {
			return summary, err
		}
		if err := overlayFrames(job, opts, capture, &summary); err != nil {
			return summary, err
		}
		job.Step()
	}
	job.FinishProgress()

	job.Logger.Info("overlay complete",
		logging.String(logging.FieldEventType, "overlay_complete"),
		logging.Int("files_modified", summary.FilesModified),
		logging.Int("files_written", summary.FilesWritten),
		logging.Int("boxes_appended", summary.BoxesAppended),
		logging.Int("records_skipped", summary.RecordsSkipped),
	)
	return summary, nil
}

func overlayEvents(job *Job, opts OverlayOptions, capture string, summary *OverlaySummary) error {
	dir := filepath.Join(opts.DetectionDir, capture, opts.EventChannel)
	names, err := filesWithExt(dir, ".txt")
	if err != nil {
		return err
	}
	for _, name := range names {
		lines, skipped, err := labelio.ReadYOLO(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, services.ErrFormat) {
				job.Problem(capture, filepath.ToSlash(filepath.Join(capture, opts.EventChannel, name)), err)
				continue
			}
			return err
		}
		summary.RecordsSkipped += len(skipped)
		if opts.DryRun {
			summary.FilesWritten++
			continue
		}
		out := filepath.Join(opts.OutDir, capture, opts.EventChannel, name)
		if err := labelio.WriteYOLO(out, labelio.ZeroClass(lines)); err != nil {
			job.Problem(capture, filepath.ToSlash(filepath.Join(capture, opts.EventChannel, name)), err)
			continue
		}
		summary.FilesWritten++
	}
	return nil
}

func overlayFrames(job *Job, opts OverlayOptions, capture string, summary *OverlaySummary) error {
	dir := filepath.Join(opts.DetectionDir, capture, opts.FrameChannel)
	names, err := filesWithExt(dir, ".txt")
	if err != nil {
		return err
	}
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		subject := filepath.ToSlash(filepath.Join(capture, opts.FrameChannel, name))
		labelPath := filepath.Join(opts.LabelDir, capture, stem+".xml")
		doc, err := labelio.ReadVOC(labelPath)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrNotExist):
				summary.LabelsMissing++
				job.AddFinding(ledger.Finding{
					CaptureID: capture,
					Severity:  SeverityInfo,
					Category:  CategoryMissingLabel,
					Subject:   subject,
					Message:   "no label " + filepath.ToSlash(filepath.Join(capture, stem+".xml")),
				})
				continue
			case errors.Is(err, services.ErrFormat):
				job.Problem(capture, subject, err)
				continue
			default:
				return err
			}
		}
		lines, skipped, err := labelio.ReadYOLO(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, services.ErrFormat) {
				job.Problem(capture, subject, err)
				continue
			}
			return err
		}
		summary.RecordsSkipped += len(skipped)
		for _, line := range lines {
			box, ok := line.Norm(opts.Class).Absolute(opts.Width, opts.Height)
			if !ok {
				summary.BoxesDropped++
				continue
			}
			doc.AppendBox(box)
			summary.BoxesAppended++
		}
		if !opts.DryRun {
			out := filepath.Join(opts.OutDir, capture, opts.FrameChannel, stem+".xml")
			if err := labelio.WriteVOC(out, doc); err != nil {
				job.Problem(capture, subject, fmt.Errorf("write %s: %w", out, err))
				continue
			}
		}
		summary.FilesModified++
	}
	return nil
}

// subdirs lists the sorted names of directories directly under dir.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// filesWithExt lists sorted regular file names in dir with ext. A missing
// dir yields no names.
func filesWithExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
