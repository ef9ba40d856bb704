package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"annofuse/internal/annotation"
	"annofuse/internal/fusion"
	"annofuse/internal/labelio"
	"annofuse/internal/logging"
	"annofuse/internal/services"
)

// MergeOptions configures a label tree merge.
type MergeOptions struct {
	// PrimaryDir holds the VOC labels that are kept as they are.
	PrimaryDir string
	// SecondaryDir holds VOC or YOLO labels merged into the primary ones.
	SecondaryDir string
	// OutDir receives the result; empty rewrites PrimaryDir in place.
	OutDir    string
	Threshold float64
	Classes   []string
	Geometry  Geometry
	DryRun    bool
}

// MergeSummary counts what a merge did.
type MergeSummary struct {
	FilesScanned    int  `json:"files_scanned"`
	FilesModified   int  `json:"files_modified"`
	FilesCreated    int  `json:"files_created"`
	FilesCopied     int  `json:"files_copied"`
	BoxesAppended   int  `json:"boxes_appended"`
	BoxesSuppressed int  `json:"boxes_suppressed"`
	BoxesFiltered   int  `json:"boxes_filtered"`
	RecordsSkipped  int  `json:"records_skipped"`
	DryRun          bool `json:"dry_run"`
}

// Merge fuses the secondary tree into the primary one. Secondary boxes that
// overlap a primary box above the threshold are dropped; the rest are
// appended to the matching primary document, or to a new document when the
// primary tree has no label for that frame.
func Merge(ctx context.Context, job *Job, opts MergeOptions) (MergeSummary, error) {
	if opts.PrimaryDir == "" || opts.SecondaryDir == "" {
		return MergeSummary{}, services.Wrap(services.ErrValidation, "workflow", "merge", "primary and secondary directories are required", nil)
	}
	summary := MergeSummary{DryRun: opts.DryRun}
	primary, err := loadVOCTree(ctx, job, opts.PrimaryDir)
	if err != nil {
		return summary, err
	}
	secondary, sources, secReport, err := loadStore(ctx, job, opts.SecondaryDir, opts.Geometry)
	if err != nil {
		return summary, err
	}
	summary.FilesScanned = len(primary.order) + len(sources)
	summary.RecordsSkipped = primary.report.Skipped + secReport.Skipped

	merged, report := fusion.Merge(primary.store, secondary, fusion.Options{Threshold: opts.Threshold, Classes: opts.Classes})
	summary.BoxesAppended = report.Appended
	summary.BoxesSuppressed = report.Suppressed
	summary.BoxesFiltered = report.Filtered

	out := newOutput(opts.PrimaryDir, opts.OutDir, opts.DryRun)
	written := make(map[annotation.Key]bool)
	job.StartProgress("merge", len(report.Keys))
	for _, kr := range report.Keys {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		job.Step()
		if kr.Appended == 0 {
			continue
		}
		boxes := merged.Lookup(kr.Key)
		if entry, ok := primary.entries[kr.Key]; ok {
			before := len(primary.store.Lookup(kr.Key))
			for _, b := range boxes[before:] {
				entry.doc.AppendBox(b)
			}
			if err := out.writeVOC(entry.file.Rel, entry.doc); err != nil {
				writeFailed(job, entry.file, err)
				continue
			}
			written[kr.Key] = true
			summary.FilesModified++
			continue
		}
		src := sources[kr.Key]
		rel := strings.TrimSuffix(src.Rel, filepath.Ext(src.Rel)) + ".xml"
		doc := newVOCDocument(rel, opts.Geometry)
		doc.SetObjects(boxes)
		if err := out.writeVOC(rel, doc); err != nil {
			writeFailed(job, src, err)
			continue
		}
		summary.FilesCreated++
	}
	job.FinishProgress()

	if !out.inPlace() {
		for _, key := range primary.order {
			if written[key] {
				continue
			}
			entry := primary.entries[key]
			if err := out.copy(entry.file.Rel); err != nil {
				writeFailed(job, entry.file, err)
				continue
			}
			summary.FilesCopied++
		}
	}

	job.Logger.Info("merge complete",
		logging.String(logging.FieldEventType, "merge_complete"),
		logging.Int("files_modified", summary.FilesModified),
		logging.Int("files_written", summary.FilesCreated),
		logging.Int("boxes_appended", summary.BoxesAppended),
		logging.Int("boxes_suppressed", summary.BoxesSuppressed),
		logging.Int("records_skipped", summary.RecordsSkipped),
		logging.Bool("dry_run", opts.DryRun),
	)
	return summary, nil
}

// BroadcastOptions configures merging one reference label into every
// label of a tree.
type BroadcastOptions struct {
	Dir       string
	Reference string
	OutDir    string
	Threshold float64
	Classes   []string
	DryRun    bool
}

// BroadcastSummary counts what a broadcast did.
type BroadcastSummary struct {
	FilesScanned    int  `json:"files_scanned"`
	FilesModified   int  `json:"files_modified"`
	FilesCopied     int  `json:"files_copied"`
	ReferenceBoxes  int  `json:"reference_boxes"`
	BoxesAppended   int  `json:"boxes_appended"`
	BoxesSuppressed int  `json:"boxes_suppressed"`
	BoxesFiltered   int  `json:"boxes_filtered"`
	RecordsSkipped  int  `json:"records_skipped"`
	DryRun          bool `json:"dry_run"`
}

// Broadcast merges the boxes of a single reference VOC file, such as the
// vehicles parked through a whole static capture, into every VOC label
// under Dir. Files only change when at least one box is appended.
func Broadcast(ctx context.Context, job *Job, opts BroadcastOptions) (BroadcastSummary, error) {
	summary := BroadcastSummary{DryRun: opts.DryRun}
	ref, err := labelio.ReadVOC(opts.Reference)
	if err != nil {
		return summary, fmt.Errorf("read reference label: %w", err)
	}
	refBoxes, skipped := ref.Boxes(opts.Reference)
	for _, err := range skipped {
		job.Problem("", filepath.Base(opts.Reference), err)
	}
	summary.ReferenceBoxes = len(refBoxes)

	tree, err := loadVOCTree(ctx, job, opts.Dir)
	if err != nil {
		return summary, err
	}
	summary.FilesScanned = len(tree.order)
	summary.RecordsSkipped = tree.report.Skipped + len(skipped)

	merged, report := fusion.Broadcast(tree.store, refBoxes, fusion.Options{Threshold: opts.Threshold, Classes: opts.Classes})
	summary.BoxesAppended = report.Appended
	summary.BoxesSuppressed = report.Suppressed
	summary.BoxesFiltered = report.Filtered

	out := newOutput(opts.Dir, opts.OutDir, opts.DryRun)
	job.StartProgress("broadcast", len(tree.order))
	for _, key := range tree.order {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		job.Step()
		entry := tree.entries[key]
		before := len(tree.store.Lookup(key))
		after := merged.Lookup(key)
		if len(after) == before {
			if err := out.copy(entry.file.Rel); err != nil {
				writeFailed(job, entry.file, err)
			} else if !out.inPlace() {
				summary.FilesCopied++
			}
			continue
		}
		for _, b := range after[before:] {
			entry.doc.AppendBox(b)
		}
		if err := out.writeVOC(entry.file.Rel, entry.doc); err != nil {
			writeFailed(job, entry.file, err)
			continue
		}
		summary.FilesModified++
	}

	job.Logger.Info("broadcast complete",
		logging.String(logging.FieldEventType, "broadcast_complete"),
		logging.Int("files_processed", summary.FilesScanned),
		logging.Int("files_modified", summary.FilesModified),
		logging.Int("boxes_appended", summary.BoxesAppended),
		logging.Int("boxes_suppressed", summary.BoxesSuppressed),
	)
	return summary, nil
}

func newVOCDocument(rel string, geom Geometry) *labelio.VOCDocument {
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	doc := &labelio.VOCDocument{
		Folder:    filepath.Base(filepath.Dir(rel)),
		Filename:  stem + ".png",
		Segmented: "0",
	}
	if geom.Width > 0 && geom.Height > 0 {
		doc.Size = &labelio.VOCSize{
			Width:  fmt.Sprint(geom.Width),
			Height: fmt.Sprint(geom.Height),
			Depth:  "3",
		}
	}
	return doc
}
