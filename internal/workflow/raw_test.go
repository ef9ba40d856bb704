package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"annofuse/internal/rawframe"
	"annofuse/internal/testsupport"
	"annofuse/internal/workflow"
)

func TestRawDenoiseSkipsBadFrames(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "raw")
	out := filepath.Join(base, "clean")
	// 4x4 frame with one isolated event pixel.
	testsupport.WriteFile(t, filepath.Join(in, "c1", "816_612_8_1.raw"), testsupport.RawFrame(4, 4, 0, map[int]byte{5: 1}))
	testsupport.WriteFile(t, filepath.Join(in, "c1", "816_612_8_2.raw"), make([]byte, 15))
	testsupport.WriteFile(t, filepath.Join(in, "c1", "816_612_8_3.raw"), testsupport.RawFrame(4, 4, 0, map[int]byte{0: 7}))

	job := workflow.NewJob(nil)
	summary, err := workflow.RawDenoise(context.Background(), job, workflow.RawOptions{
		InputDir: in,
		OutDir:   out,
		Height:   4,
		Width:    4,
		Window:   3,
		WriteRaw: true,
		WritePNG: true,
		Palette:  rawframe.MonoPalette,
		Scale:    1,
		Workers:  2,
	})
	if err != nil {
		t.Fatalf("RawDenoise: %v", err)
	}
	if summary.FramesProcessed != 1 || summary.FramesFailed != 2 || summary.FilesWritten != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.PixelsChanged != 1 {
		t.Fatalf("pixels changed = %d, want 1", summary.PixelsChanged)
	}

	cleaned, err := rawframe.ReadFile(filepath.Join(out, "c1", "816_612_8_1.raw"), 4, 4)
	if err != nil {
		t.Fatalf("read cleaned frame: %v", err)
	}
	if h := cleaned.Histogram(); h[0] != 16 {
		t.Fatalf("cleaned histogram = %v", h)
	}
	if _, err := os.Stat(filepath.Join(out, "c1", "816_612_8_1.png")); err != nil {
		t.Fatalf("png missing: %v", err)
	}

	categories := map[string]int{}
	for _, f := range job.Findings() {
		categories[f.Category]++
	}
	if categories["size_mismatch"] != 1 || categories["format"] != 1 {
		t.Fatalf("finding categories = %v", categories)
	}
}

func TestRawDenoiseBorderMode(t *testing.T) {
	in := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(in, "816_612_8_1.raw"), testsupport.RawFrame(4, 4, 1, nil))

	for _, tc := range []struct {
		border  rawframe.Border
		changed int64
	}{
		{rawframe.BorderReflect, 0},
		{rawframe.BorderConstant, 4},
	} {
		summary, err := workflow.RawDenoise(context.Background(), workflow.NewJob(nil), workflow.RawOptions{
			InputDir: in,
			OutDir:   t.TempDir(),
			Height:   4,
			Width:    4,
			Window:   3,
			Border:   tc.border,
			DryRun:   true,
		})
		if err != nil {
			t.Fatalf("RawDenoise(%s): %v", tc.border, err)
		}
		if summary.PixelsChanged != tc.changed {
			t.Fatalf("%s border changed %d pixels, want %d", tc.border, summary.PixelsChanged, tc.changed)
		}
	}
}

func TestRawCheckCountsHistogram(t *testing.T) {
	in := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(in, "a.raw"), testsupport.RawFrame(2, 3, 0, map[int]byte{1: 1, 2: 2}))
	testsupport.WriteFile(t, filepath.Join(in, "b.raw"), testsupport.RawFrame(2, 3, 2, nil))
	testsupport.WriteFile(t, filepath.Join(in, "notes.txt"), []byte("ignored"))

	summary, err := workflow.RawCheck(context.Background(), workflow.NewJob(nil), workflow.RawOptions{
		InputDir: in, Height: 2, Width: 3, Workers: 1,
	})
	if err != nil {
		t.Fatalf("RawCheck: %v", err)
	}
	if summary.FramesProcessed != 2 || summary.FramesFailed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Histogram != [4]int{4, 1, 7, 0} {
		t.Fatalf("histogram = %v", summary.Histogram)
	}
}

func TestRawPNGDryRunWritesNothing(t *testing.T) {
	base := t.TempDir()
	in := filepath.Join(base, "raw")
	out := filepath.Join(base, "png")
	testsupport.WriteFile(t, filepath.Join(in, "a.raw"), testsupport.RawFrame(2, 2, 1, nil))

	summary, err := workflow.RawPNG(context.Background(), workflow.NewJob(nil), workflow.RawOptions{
		InputDir: in, OutDir: out, Height: 2, Width: 2, Palette: rawframe.MonoPalette, Scale: 2, DryRun: true,
	})
	if err != nil {
		t.Fatalf("RawPNG: %v", err)
	}
	if summary.FramesProcessed != 1 || summary.FilesWritten != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry run created output: %v", err)
	}
}

func TestDecodeRawProbesWideSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.raw")
	testsupport.WriteFile(t, path, []byte{1, 0, 2, 0, 0, 0, 1, 0})
	res, err := workflow.DecodeRaw(path, 2, 2)
	if err != nil {
		t.Fatalf("DecodeRaw: %v", err)
	}
	if res.BytesPerPixel != 2 || res.Frame.At(0, 1) != 2 {
		t.Fatalf("probe = %+v", res)
	}
}
