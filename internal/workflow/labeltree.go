package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"annofuse/internal/annotation"
	"annofuse/internal/fileutil"
	"annofuse/internal/labelio"
	"annofuse/internal/ledger"
	"annofuse/internal/services"
)

// LabelFormat is the on-disk syntax of a label file.
type LabelFormat string

const (
	FormatVOC  LabelFormat = "voc"
	FormatYOLO LabelFormat = "yolo"
)

// Finding categories raised by the label drivers.
const (
	CategorySkippedRecords = "skipped_records"
	CategoryDuplicateKey   = "duplicate_key"
	CategoryMissingLabel   = "missing_label"
	CategoryWriteFailed    = "write_failed"
)

// LabelFile is one label file found under a <root>/<capture>/<channel>/ tree.
type LabelFile struct {
	Path   string
	Rel    string
	Key    annotation.Key
	Format LabelFormat
}

// Geometry resolves normalized YOLO boxes to pixels.
type Geometry struct {
	Width      int
	Height     int
	ClassNames []string
}

func formatFor(name string) (LabelFormat, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return FormatVOC, true
	case ".txt":
		if strings.EqualFold(name, "classes.txt") {
			return "", false
		}
		return FormatYOLO, true
	default:
		return "", false
	}
}

// ScanLabels lists label files under root in key order. Files whose path
// does not yield a key are reported on job as structural findings and left
// out.
func ScanLabels(ctx context.Context, job *Job, root string) ([]LabelFile, error) {
	var files []LabelFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		format, ok := formatFor(d.Name())
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		key, err := annotation.DeriveKeyUnder(root, path)
		if err != nil {
			job.Problem(captureOf(rel), filepath.ToSlash(rel), err)
			return nil
		}
		files = append(files, LabelFile{Path: path, Rel: rel, Key: key, Format: format})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	slices.SortFunc(files, func(a, b LabelFile) int {
		if c := annotation.CompareKeys(a.Key, b.Key); c != 0 {
			return c
		}
		return strings.Compare(a.Rel, b.Rel)
	})
	return files, nil
}

func captureOf(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return ""
}

// vocEntry ties a key to the document it was read from.
type vocEntry struct {
	file LabelFile
	doc  *labelio.VOCDocument
}

// vocTree is a VOC label directory loaded into a store. Documents are kept
// so rewrites preserve everything the store does not model.
type vocTree struct {
	root    string
	store   *annotation.Store
	entries map[annotation.Key]*vocEntry
	order   []annotation.Key
	report  annotation.LoadReport
}

func loadVOCTree(ctx context.Context, job *Job, root string) (*vocTree, error) {
	files, err := ScanLabels(ctx, job, root)
	if err != nil {
		return nil, err
	}
	tree := &vocTree{
		root:    root,
		store:   annotation.NewStore(),
		entries: make(map[annotation.Key]*vocEntry),
	}
	for _, f := range files {
		if f.Format != FormatVOC {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if prior, ok := tree.entries[f.Key]; ok {
			job.AddFinding(ledger.Finding{
				CaptureID: f.Key.CaptureID,
				Severity:  SeverityError,
				Category:  CategoryDuplicateKey,
				Subject:   filepath.ToSlash(f.Rel),
				Message:   fmt.Sprintf("same key %s as %s; file ignored", f.Key, filepath.ToSlash(prior.file.Rel)),
			})
			continue
		}
		doc, err := labelio.ReadVOC(f.Path)
		if err != nil {
			if errors.Is(err, services.ErrFormat) {
				job.Problem(f.Key.CaptureID, filepath.ToSlash(f.Rel), err)
				tree.report.Skipped++
				continue
			}
			return nil, err
		}
		store, report := annotation.Load(doc.Records(f.Key, f.Rel), annotation.CornerParser())
		tree.report.Merge(report)
		reportSkipped(job, f, report)
		tree.entries[f.Key] = &vocEntry{file: f, doc: doc}
		tree.order = append(tree.order, f.Key)
		tree.store.Put(f.Key, store.Lookup(f.Key))
	}
	return tree, nil
}

// loadStore reads every label file under root into one store. VOC files keep
// their pixel corners; YOLO files are resolved with geom.
func loadStore(ctx context.Context, job *Job, root string, geom Geometry) (*annotation.Store, map[annotation.Key]LabelFile, annotation.LoadReport, error) {
	files, err := ScanLabels(ctx, job, root)
	if err != nil {
		return nil, nil, annotation.LoadReport{}, err
	}
	store := annotation.NewStore()
	sources := make(map[annotation.Key]LabelFile, len(files))
	var total annotation.LoadReport
	yolo := annotation.YOLOParser(geom.Width, geom.Height, geom.ClassNames)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, total, err
		}
		if prior, ok := sources[f.Key]; ok {
			job.AddFinding(ledger.Finding{
				CaptureID: f.Key.CaptureID,
				Severity:  SeverityError,
				Category:  CategoryDuplicateKey,
				Subject:   filepath.ToSlash(f.Rel),
				Message:   fmt.Sprintf("same key %s as %s; file ignored", f.Key, filepath.ToSlash(prior.Rel)),
			})
			continue
		}
		var (
			records []annotation.Record
			parse   annotation.BoxParser
		)
		switch f.Format {
		case FormatVOC:
			doc, err := labelio.ReadVOC(f.Path)
			if err != nil {
				if !errors.Is(err, services.ErrFormat) {
					return nil, nil, total, err
				}
				job.Problem(f.Key.CaptureID, filepath.ToSlash(f.Rel), err)
				total.Skipped++
				continue
			}
			records, parse = doc.Records(f.Key, f.Rel), annotation.CornerParser()
		case FormatYOLO:
			records, err = labelio.YOLORecords(f.Path, f.Key)
			if err != nil {
				return nil, nil, total, err
			}
			parse = yolo
		}
		loaded, report := annotation.Load(records, parse)
		total.Merge(report)
		reportSkipped(job, f, report)
		sources[f.Key] = f
		if boxes := loaded.Lookup(f.Key); len(boxes) > 0 {
			store.Put(f.Key, boxes)
		}
	}
	return store, sources, total, nil
}

// LoadStore reads every label file under root into a store, for reports
// that do not rewrite anything.
func LoadStore(ctx context.Context, job *Job, root string, geom Geometry) (*annotation.Store, annotation.LoadReport, error) {
	store, _, report, err := loadStore(ctx, job, root, geom)
	return store, report, err
}

func reportSkipped(job *Job, f LabelFile, report annotation.LoadReport) {
	if report.Skipped == 0 {
		return
	}
	msg := fmt.Sprintf("%d record(s) skipped", report.Skipped)
	if len(report.Diagnostics) > 0 {
		msg += ": " + report.Diagnostics[0]
	}
	job.AddFinding(ledger.Finding{
		CaptureID: f.Key.CaptureID,
		Severity:  SeverityWarning,
		Category:  CategorySkippedRecords,
		Subject:   filepath.ToSlash(f.Rel),
		Message:   msg,
	})
}

// output resolves where rewritten files go. An empty or identical out dir
// means files are rewritten in place.
type output struct {
	src    string
	dst    string
	dryRun bool
}

func newOutput(src, dst string, dryRun bool) output {
	if strings.TrimSpace(dst) == "" {
		dst = src
	}
	return output{src: src, dst: dst, dryRun: dryRun}
}

func (o output) inPlace() bool {
	return fileutil.SamePath(o.src, o.dst)
}

func (o output) path(rel string) string {
	return filepath.Join(o.dst, rel)
}

func (o output) writeVOC(rel string, doc *labelio.VOCDocument) error {
	if o.dryRun {
		return nil
	}
	return labelio.WriteVOC(o.path(rel), doc)
}

func (o output) copy(rel string) error {
	if o.dryRun || o.inPlace() {
		return nil
	}
	return fileutil.CopyFile(filepath.Join(o.src, rel), o.path(rel))
}

// drop removes rel from an in-place tree. Out of place, the file is simply
// not written.
func (o output) drop(rel string) error {
	if o.dryRun || !o.inPlace() {
		return nil
	}
	if err := os.Remove(o.path(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeFailed(job *Job, f LabelFile, err error) {
	job.AddFinding(ledger.Finding{
		CaptureID: f.Key.CaptureID,
		Severity:  SeverityError,
		Category:  CategoryWriteFailed,
		Subject:   filepath.ToSlash(f.Rel),
		Message:   err.Error(),
	})
}
