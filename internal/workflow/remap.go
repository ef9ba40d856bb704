package workflow

import (
	"context"
	"slices"

	"annofuse/internal/annotation"
	"annofuse/internal/logging"
	"annofuse/internal/services"
	"annofuse/internal/taxonomy"
)

// RemapOptions configures a class remap over a VOC tree.
type RemapOptions struct {
	Dir          string
	OutDir       string
	Mapping      taxonomy.Mapping
	KeepUnmapped bool
	FoldCase     bool
	// Window limits the remap to captures recorded inside it. An open
	// window covers every capture.
	Window taxonomy.DateWindow
	DryRun bool
}

// RelabelSummary counts what a remap, rename, or keep-classes pass did.
type RelabelSummary struct {
	FilesScanned   int            `json:"files_scanned"`
	FilesEligible  int            `json:"files_eligible"`
	FilesModified  int            `json:"files_modified"`
	FilesRemoved   int            `json:"files_removed"`
	FilesCopied    int            `json:"files_copied"`
	BoxesRenamed   int            `json:"boxes_renamed"`
	BoxesDropped   int            `json:"boxes_dropped"`
	RecordsSkipped int            `json:"records_skipped"`
	DroppedClasses map[string]int `json:"dropped_classes,omitempty"`
	DryRun         bool           `json:"dry_run"`
}

// Remap rewrites class names under a mapping. Inside the window, mapped
// classes are renamed and unmapped ones are dropped unless KeepUnmapped is
// set. Labels left without boxes are not written, and are removed when the
// tree is rewritten in place.
func Remap(ctx context.Context, job *Job, opts RemapOptions) (RelabelSummary, error) {
	if len(opts.Mapping) == 0 {
		return RelabelSummary{}, services.Wrap(services.ErrValidation, "workflow", "remap", "mapping is empty", nil)
	}
	tree, err := loadVOCTree(ctx, job, opts.Dir)
	if err != nil {
		return RelabelSummary{}, err
	}
	eligible := tree.store
	if !opts.Window.Open() {
		eligible, _ = taxonomy.Partition(tree.store, opts.Window.Contains)
	}
	remapper := taxonomy.NewRemapper(opts.Mapping, opts.KeepUnmapped, taxonomy.Normalizer{Fold: opts.FoldCase})
	result, report := remapper.Apply(eligible)

	summary := RelabelSummary{
		BoxesRenamed:   report.Renamed,
		BoxesDropped:   report.Dropped,
		DroppedClasses: report.DroppedClasses,
	}
	if err := rewriteTree(ctx, job, tree, eligible, result, newOutput(opts.Dir, opts.OutDir, opts.DryRun), &summary); err != nil {
		return summary, err
	}
	job.Logger.Info("remap complete",
		logging.String(logging.FieldEventType, "remap_complete"),
		logging.String("window", opts.Window.String()),
		logging.Int("files_modified", summary.FilesModified),
		logging.Int("files_removed", summary.FilesRemoved),
		logging.Int("boxes_renamed", summary.BoxesRenamed),
		logging.Int("boxes_dropped", summary.BoxesDropped),
	)
	return summary, nil
}

// RenameOptions configures relabelling one class within one capture.
type RenameOptions struct {
	Dir       string
	OutDir    string
	CaptureID string
	From      string
	To        string
	DryRun    bool
}

// Rename replaces class From with To in the labels of one capture.
func Rename(ctx context.Context, job *Job, opts RenameOptions) (RelabelSummary, error) {
	if opts.CaptureID == "" || opts.From == "" || opts.To == "" {
		return RelabelSummary{}, services.Wrap(services.ErrValidation, "workflow", "rename", "capture, from and to are required", nil)
	}
	tree, err := loadVOCTree(ctx, job, opts.Dir)
	if err != nil {
		return RelabelSummary{}, err
	}
	eligible := taxonomy.FilterByEligibility(tree.store, func(id string) bool { return id == opts.CaptureID })
	result, renamed := taxonomy.Rename(eligible, opts.CaptureID, opts.From, opts.To)
	summary := RelabelSummary{BoxesRenamed: renamed}
	if err := rewriteTree(ctx, job, tree, eligible, result, newOutput(opts.Dir, opts.OutDir, opts.DryRun), &summary); err != nil {
		return summary, err
	}
	job.Logger.Info("rename complete",
		logging.String(logging.FieldEventType, "rename_complete"),
		logging.String(logging.FieldCaptureID, opts.CaptureID),
		logging.Int("boxes_renamed", summary.BoxesRenamed),
		logging.Int("files_modified", summary.FilesModified),
	)
	return summary, nil
}

// KeepOptions configures dropping every class outside a keep list.
type KeepOptions struct {
	Dir     string
	OutDir  string
	Classes []string
	DryRun  bool
}

// KeepClasses drops boxes whose class is not listed. Labels left without
// boxes are not written, and are removed when rewriting in place.
func KeepClasses(ctx context.Context, job *Job, opts KeepOptions) (RelabelSummary, error) {
	if len(opts.Classes) == 0 {
		return RelabelSummary{}, services.Wrap(services.ErrValidation, "workflow", "keep-classes", "no classes to keep", nil)
	}
	tree, err := loadVOCTree(ctx, job, opts.Dir)
	if err != nil {
		return RelabelSummary{}, err
	}
	result, dropped := taxonomy.KeepOnly(tree.store, opts.Classes)
	summary := RelabelSummary{BoxesDropped: dropped}
	if err := rewriteTree(ctx, job, tree, tree.store, result, newOutput(opts.Dir, opts.OutDir, opts.DryRun), &summary); err != nil {
		return summary, err
	}
	job.Logger.Info("keep-classes complete",
		logging.String(logging.FieldEventType, "keep_classes_complete"),
		logging.Int("files_modified", summary.FilesModified),
		logging.Int("files_removed", summary.FilesRemoved),
		logging.Int("boxes_dropped", summary.BoxesDropped),
	)
	return summary, nil
}

// rewriteTree writes the outcome of a relabelling pass. Keys of eligible
// were subject to the pass and take their boxes from result; every other
// document is carried over unchanged.
func rewriteTree(ctx context.Context, job *Job, tree *vocTree, eligible, result *annotation.Store, out output, summary *RelabelSummary) error {
	summary.FilesScanned = len(tree.order)
	summary.FilesEligible = eligible.Len()
	summary.RecordsSkipped = tree.report.Skipped
	summary.DryRun = out.dryRun
	job.StartProgress(job.Command, len(tree.order))
	defer job.FinishProgress()
	for _, key := range tree.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		job.Step()
		entry := tree.entries[key]
		if !eligible.Has(key) {
			if err := out.copy(entry.file.Rel); err != nil {
				writeFailed(job, entry.file, err)
			} else if !out.inPlace() {
				summary.FilesCopied++
			}
			continue
		}
		boxes := result.Lookup(key)
		if len(boxes) == 0 {
			if err := out.drop(entry.file.Rel); err != nil {
				writeFailed(job, entry.file, err)
				continue
			}
			summary.FilesRemoved++
			continue
		}
		if slices.Equal(boxes, eligible.Lookup(key)) {
			if err := out.copy(entry.file.Rel); err != nil {
				writeFailed(job, entry.file, err)
			} else if !out.inPlace() {
				summary.FilesCopied++
			}
			continue
		}
		entry.doc.SyncObjects(boxes)
		if err := out.writeVOC(entry.file.Rel, entry.doc); err != nil {
			writeFailed(job, entry.file, err)
			continue
		}
		summary.FilesModified++
	}
	return nil
}
