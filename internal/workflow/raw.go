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
	"sync"

	"golang.org/x/sync/errgroup"

	"annofuse/internal/logging"
	"annofuse/internal/rawframe"
	"annofuse/internal/services"
)

// RawOptions configures the raw frame batch drivers.
type RawOptions struct {
	// InputDir is scanned recursively for *.raw files.
	InputDir string
	// OutDir mirrors InputDir's layout for written files.
	OutDir    string
	Height    int
	Width     int
	Window    int
	Occupancy float64
	Border    rawframe.Border
	// WriteRaw and WritePNG choose the denoise outputs.
	WriteRaw bool
	WritePNG bool
	Palette  rawframe.Palette
	Scale    int
	Workers  int
	DryRun   bool
}

// RawSummary counts what a raw batch did.
type RawSummary struct {
	FramesProcessed int    `json:"frames_processed"`
	FramesFailed    int    `json:"frames_failed"`
	FilesWritten    int    `json:"files_written"`
	PixelsChanged   int64  `json:"pixels_changed,omitempty"`
	Histogram       [4]int `json:"histogram"`
	DryRun          bool   `json:"dry_run"`
}

func (o RawOptions) validate(operation string) error {
	if o.InputDir == "" {
		return services.Wrap(services.ErrValidation, "workflow", operation, "input directory is required", nil)
	}
	if o.Height <= 0 || o.Width <= 0 {
		return services.Wrap(services.ErrValidation, "workflow", operation, fmt.Sprintf("invalid frame size %dx%d", o.Height, o.Width), nil)
	}
	return nil
}

func (o RawOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}

// frameTask is the per-file work of a raw batch. It returns how many files
// it wrote and how many pixels it changed.
type frameTask func(rel string, frame *rawframe.Frame) (written int, changed int64, err error)

// RawCheck decodes every raw file and validates that it holds only ternary
// values. Size and value problems become findings.
func RawCheck(ctx context.Context, job *Job, opts RawOptions) (RawSummary, error) {
	if err := opts.validate("raw-check"); err != nil {
		return RawSummary{}, err
	}
	summary, err := runFrames(ctx, job, opts, "raw check", nil)
	if err != nil {
		return summary, err
	}
	job.Logger.Info("raw check complete",
		logging.String(logging.FieldEventType, "raw_check_complete"),
		logging.Int("frames_processed", summary.FramesProcessed),
		logging.Int("frames_failed", summary.FramesFailed),
	)
	return summary, nil
}

// RawDenoise runs the per-class median filter over every raw file and writes
// the cleaned frame as raw, colour PNG, or both.
func RawDenoise(ctx context.Context, job *Job, opts RawOptions) (RawSummary, error) {
	if err := opts.validate("raw-denoise"); err != nil {
		return RawSummary{}, err
	}
	if opts.OutDir == "" {
		return RawSummary{}, services.Wrap(services.ErrValidation, "workflow", "raw-denoise", "output directory is required", nil)
	}
	if !opts.WriteRaw && !opts.WritePNG {
		opts.WriteRaw = true
	}
	denoise := rawframe.Options{Window: opts.Window, Occupancy: opts.Occupancy, Border: opts.Border}
	task := func(rel string, frame *rawframe.Frame) (int, int64, error) {
		cleaned := rawframe.Denoise(frame, denoise)
		changed := int64(0)
		for i := range cleaned.Pix {
			if cleaned.Pix[i] != frame.Pix[i] {
				changed++
			}
		}
		if opts.DryRun {
			return 0, changed, nil
		}
		written := 0
		if opts.WriteRaw {
			if err := rawframe.WriteFile(filepath.Join(opts.OutDir, rel), cleaned); err != nil {
				return written, changed, err
			}
			written++
		}
		if opts.WritePNG {
			if err := rawframe.WritePNG(filepath.Join(opts.OutDir, pngName(rel)), cleaned, opts.Palette, opts.Scale); err != nil {
				return written, changed, err
			}
			written++
		}
		return written, changed, nil
	}
	summary, err := runFrames(ctx, job, opts, "denoise", task)
	if err != nil {
		return summary, err
	}
	job.Logger.Info("denoise complete",
		logging.String(logging.FieldEventType, "denoise_complete"),
		logging.Int("frames_processed", summary.FramesProcessed),
		logging.Int("frames_failed", summary.FramesFailed),
		logging.Int("files_written", summary.FilesWritten),
		logging.Int("window", opts.Window),
		logging.String("border", opts.Border.String()),
	)
	return summary, nil
}

// RawPNG renders every raw file as a colour PNG without filtering.
func RawPNG(ctx context.Context, job *Job, opts RawOptions) (RawSummary, error) {
	if err := opts.validate("raw-png"); err != nil {
		return RawSummary{}, err
	}
	if opts.OutDir == "" {
		return RawSummary{}, services.Wrap(services.ErrValidation, "workflow", "raw-png", "output directory is required", nil)
	}
	task := func(rel string, frame *rawframe.Frame) (int, int64, error) {
		if opts.DryRun {
			return 0, 0, nil
		}
		if err := rawframe.WritePNG(filepath.Join(opts.OutDir, pngName(rel)), frame, opts.Palette, opts.Scale); err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	}
	summary, err := runFrames(ctx, job, opts, "png", task)
	if err != nil {
		return summary, err
	}
	job.Logger.Info("png render complete",
		logging.String(logging.FieldEventType, "png_complete"),
		logging.Int("frames_processed", summary.FramesProcessed),
		logging.Int("files_written", summary.FilesWritten),
	)
	return summary, nil
}

// runFrames decodes every raw file under opts.InputDir on a bounded worker
// pool and hands valid frames to task. A bad frame is recorded and skipped;
// it never stops the batch.
func runFrames(ctx context.Context, job *Job, opts RawOptions, label string, task frameTask) (RawSummary, error) {
	summary := RawSummary{DryRun: opts.DryRun}
	files, err := rawFiles(opts.InputDir)
	if err != nil {
		return summary, err
	}
	job.StartProgress(label, len(files))
	defer job.FinishProgress()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for _, rel := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer job.Step()
			subject := filepath.ToSlash(rel)
			capture := captureOf(rel)
			frame, err := rawframe.ReadFile(filepath.Join(opts.InputDir, rel), opts.Height, opts.Width)
			if err == nil {
				err = frame.Validate()
			}
			if err != nil {
				if !errors.Is(err, services.ErrSizeMismatch) && !errors.Is(err, services.ErrFormat) {
					err = fmt.Errorf("read %s: %w", subject, err)
				}
				job.Problem(capture, subject, err)
				mu.Lock()
				summary.FramesFailed++
				mu.Unlock()
				return nil
			}
			hist := frame.Histogram()
			var written int
			var changed int64
			if task != nil {
				written, changed, err = task(rel, frame)
				if err != nil {
					job.Problem(capture, subject, err)
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FramesFailed++
			} else {
				summary.FramesProcessed++
			}
			summary.FilesWritten += written
			summary.PixelsChanged += changed
			for i, n := range hist {
				summary.Histogram[i] += n
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// rawFiles lists *.raw files under dir as sorted relative paths.
func rawFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".raw") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "workflow", "scan raw", dir, err)
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

func pngName(rel string) string {
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".png"
}

// DecodeRaw reads one raw file, trying wider sample widths when the
// one-byte form does not fit.
func DecodeRaw(path string, height, width int) (rawframe.ProbeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rawframe.ProbeResult{}, err
	}
	res, err := rawframe.Probe(data, height, width)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
