package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"annofuse/internal/preflight"
	"annofuse/internal/testsupport"
)

type vocObj = testsupport.VOCObject

func writeLabel(t *testing.T, root, rel string, objects ...vocObj) {
	t.Helper()
	testsupport.WriteText(t, filepath.Join(root, rel), testsupport.VOCXML(filepath.Base(rel), 3264, 2448, objects...))
}

func TestMergeCommandRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	primary := filepath.Join(env.baseDir, "primary")
	secondary := filepath.Join(env.baseDir, "secondary")
	out := filepath.Join(env.baseDir, "merged")
	writeLabel(t, primary, "20250601_a/aps/f_1.xml", vocObj{Name: "vehicle", XMin: 0, YMin: 0, XMax: 100, YMax: 100})
	writeLabel(t, secondary, "20250601_a/aps/f_1.xml",
		vocObj{Name: "vehicle", XMin: 0, YMin: 0, XMax: 100, YMax: 100},
		vocObj{Name: "vehicle", XMin: 200, YMin: 200, XMax: 300, YMax: 300},
	)
	writeLabel(t, secondary, "20250601_a/aps/f_2.xml", vocObj{Name: "vehicle", XMin: 10, YMin: 10, XMax: 50, YMax: 50})

	stdout, _, err := runCLI(t, []string{"--json", "merge", primary, secondary, "--out", out}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	var summary struct {
		FilesModified   int `json:"files_modified"`
		FilesCreated    int `json:"files_created"`
		BoxesAppended   int `json:"boxes_appended"`
		BoxesSuppressed int `json:"boxes_suppressed"`
	}
	outcome := decodeOutcome(t, stdout, &summary)
	if outcome.Status != "succeeded" || outcome.Command != "merge" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if summary.FilesModified != 1 || summary.FilesCreated != 1 || summary.BoxesAppended != 2 || summary.BoxesSuppressed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, rel := range []string{"20250601_a/aps/f_1.xml", "20250601_a/aps/f_2.xml"} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Fatalf("merged label %s missing: %v", rel, err)
		}
	}
	if got := testsupport.ReadText(t, filepath.Join(primary, "20250601_a/aps/f_1.xml")); strings.Contains(got, "<xmin>200</xmin>") {
		t.Fatal("primary tree was rewritten although --out was given")
	}

	stdout, _, err = runCLI(t, []string{"--json", "history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		ID      string `json:"id"`
		Command string `json:"command"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, stdout)
	}
	if len(runs) != 1 || runs[0].ID != outcome.RunID || runs[0].Status != "succeeded" {
		t.Fatalf("runs = %+v", runs)
	}

	stdout, _, err = runCLI(t, []string{"history", outcome.RunID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, stdout, outcome.RunID)
	requireContains(t, stdout, "Boxes appended")
}

func TestMergeCommandTextOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	primary := filepath.Join(env.baseDir, "primary")
	secondary := filepath.Join(env.baseDir, "secondary")
	writeLabel(t, primary, "20250601_a/aps/f_1.xml", vocObj{Name: "vehicle", XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	writeLabel(t, secondary, "20250601_a/aps/f_1.xml", vocObj{Name: "vehicle", XMin: 20, YMin: 20, XMax: 30, YMax: 30})

	stdout, _, err := runCLI(t, []string{"merge", primary, secondary, "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, stdout, "== merge ==")
	requireContains(t, stdout, "[OK] succeeded")
	requireContains(t, stdout, "Dry run")
	if got := testsupport.ReadText(t, filepath.Join(primary, "20250601_a/aps/f_1.xml")); strings.Contains(got, "<xmin>20</xmin>") {
		t.Fatal("dry run rewrote the primary label")
	}
}

func TestMergeCommandRejectsMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "missing")
	if _, _, err := runCLI(t, []string{"merge", missing, missing}, env.configPath); err == nil {
		t.Fatal("expected merge of a missing tree to fail")
	}
}

func TestRemapCommandDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "labels")
	writeLabel(t, dir, "20250601_a/aps/f_1.xml", vocObj{Name: "knee", XMin: 0, YMin: 0, XMax: 10, YMax: 10})

	stdout, _, err := runCLI(t, []string{"--json", "remap", dir, "--map", "knee=kneel", "--all-dates", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	var summary struct {
		FilesModified int  `json:"files_modified"`
		BoxesRenamed  int  `json:"boxes_renamed"`
		DryRun        bool `json:"dry_run"`
	}
	decodeOutcome(t, stdout, &summary)
	if summary.FilesModified != 1 || summary.BoxesRenamed != 1 || !summary.DryRun {
		t.Fatalf("summary = %+v", summary)
	}
	requireContains(t, testsupport.ReadText(t, filepath.Join(dir, "20250601_a/aps/f_1.xml")), "<name>knee</name>")
}

func TestRemapCommandRejectsBadMapping(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "labels")
	writeLabel(t, dir, "20250601_a/aps/f_1.xml")
	if _, _, err := runCLI(t, []string{"remap", dir, "--map", "knee"}, env.configPath); err == nil {
		t.Fatal("expected a malformed --map entry to fail")
	}
}

func TestContinuityCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "20250601_a", "EVS", "evs_png")
	for _, i := range []int{1, 2, 4, 7} {
		testsupport.WriteFile(t, filepath.Join(dir, fmt.Sprintf("816_612_8_%d.png", i)), nil)
	}

	stdout, _, err := runCLI(t, []string{"--json", "continuity", dir}, env.configPath)
	if err != nil {
		t.Fatalf("continuity: %v", err)
	}
	var summary struct {
		Discontinuous int `json:"discontinuous"`
		Dirs          []struct {
			Pattern string `json:"pattern"`
			Report  struct {
				MissingRanges []string `json:"missing_ranges"`
			} `json:"report"`
		} `json:"dirs"`
	}
	outcome := decodeOutcome(t, stdout, &summary)
	if summary.Discontinuous != 1 || len(summary.Dirs) != 1 || summary.Dirs[0].Pattern != "evs_png" {
		t.Fatalf("summary = %+v", summary)
	}
	if got, want := summary.Dirs[0].Report.MissingRanges, []string{"3", "5-6"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("missing ranges = %v, want %v", got, want)
	}
	if len(outcome.Findings) != 1 || outcome.Findings[0].CaptureID != "20250601_a" {
		t.Fatalf("findings = %+v", outcome.Findings)
	}

	stdout, _, err = runCLI(t, []string{"continuity", dir}, env.configPath)
	if err != nil {
		t.Fatalf("continuity text: %v", err)
	}
	requireContains(t, stdout, "5-6")
	requireContains(t, stdout, "discontinuous")
}

func TestContinuityCommandNeedsPattern(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"continuity", dir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--pattern") {
		t.Fatalf("err = %v, want a hint about --pattern", err)
	}
	if _, _, err := runCLI(t, []string{"continuity", dir, "--prefix", "f_", "--suffix", ".png"}, env.configPath); err != nil {
		t.Fatalf("custom pattern: %v", err)
	}
}

func TestRawDecodeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "frame.raw")
	testsupport.WriteFile(t, path, testsupport.RawFrame(2, 3, 0, map[int]byte{1: 1, 4: 2}))
	preview := filepath.Join(env.baseDir, "frame.png")

	stdout, _, err := runCLI(t, []string{"--json", "raw", "decode", path, "--height", "2", "--width", "3", "--png", preview}, env.configPath)
	if err != nil {
		t.Fatalf("raw decode: %v", err)
	}
	var got struct {
		BytesPerPixel int    `json:"bytes_per_pixel"`
		Histogram     [4]int `json:"histogram"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if got.BytesPerPixel != 1 || got.Histogram != [4]int{4, 1, 1, 0} {
		t.Fatalf("decode = %+v", got)
	}
	if _, err := os.Stat(preview); err != nil {
		t.Fatalf("preview missing: %v", err)
	}
}

func TestRawDenoiseCommandWritesOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	in := filepath.Join(env.baseDir, "raw")
	out := filepath.Join(env.baseDir, "clean")
	testsupport.WriteFile(t, filepath.Join(in, "c1", "a.raw"), testsupport.RawFrame(4, 4, 0, map[int]byte{5: 1}))

	stdout, _, err := runCLI(t, []string{"--json", "raw", "denoise", in, "--out", out, "--height", "4", "--width", "4"}, env.configPath)
	if err != nil {
		t.Fatalf("raw denoise: %v", err)
	}
	var summary struct {
		FramesProcessed int `json:"frames_processed"`
		FilesWritten    int `json:"files_written"`
	}
	decodeOutcome(t, stdout, &summary)
	if summary.FramesProcessed != 1 || summary.FilesWritten != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(out, "c1", "a.raw")); err != nil {
		t.Fatalf("cleaned frame missing: %v", err)
	}
}

func TestCaptureDiffCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	left := filepath.Join(env.baseDir, "left")
	for _, id := range []string{"20250601_a", "20250601_b"} {
		if err := os.MkdirAll(filepath.Join(left, id), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	right := filepath.Join(env.baseDir, "ids.txt")
	testsupport.WriteText(t, right, "# converted\n20250601_b\n20250601_c\n")

	stdout, _, err := runCLI(t, []string{"--json", "capture", "diff", left, right}, env.configPath)
	if err != nil {
		t.Fatalf("capture diff: %v", err)
	}
	var diff struct {
		OnlyLeft  []string `json:"only_left"`
		OnlyRight []string `json:"only_right"`
		Common    []string `json:"common"`
	}
	if err := json.Unmarshal([]byte(stdout), &diff); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if !reflect.DeepEqual(diff.OnlyLeft, []string{"20250601_a"}) || !reflect.DeepEqual(diff.OnlyRight, []string{"20250601_c"}) {
		t.Fatalf("diff = %+v", diff)
	}
}

func TestInventoryClassesCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "labels")
	writeLabel(t, dir, "20250601_a/aps/f_1.xml", vocObj{Name: "stand", XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	writeLabel(t, dir, "20250601_b/aps/f_1.xml", vocObj{Name: "crawl", XMin: 0, YMin: 0, XMax: 10, YMax: 10})

	stdout, _, err := runCLI(t, []string{"inventory", "classes", dir}, env.configPath)
	if err != nil {
		t.Fatalf("inventory classes: %v", err)
	}
	requireContains(t, stdout, "crawl (1)")
	requireContains(t, stdout, "20250601_b")
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	old := preflight.MinFreeBytes
	preflight.MinFreeBytes = 0
	t.Cleanup(func() { preflight.MinFreeBytes = old })

	stdout, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "Run ledger")
	requireContains(t, stdout, "[OK]")
}
