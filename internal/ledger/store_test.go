package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"annofuse/internal/ledger"
	"annofuse/internal/services"
	"annofuse/internal/testsupport"
)

func TestStartAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "merge", []string{"--threshold", "0.5"}, "/data")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.ID == "" || run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run: %#v", run)
	}

	summary := map[string]int{"files_modified": 3}
	if err := store.FinishRun(ctx, run.ID, ledger.StatusSucceeded, summary, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != ledger.StatusSucceeded || got.FinishedAt == nil {
		t.Fatalf("run not finished: %#v", got)
	}
	if got.DatasetDir != "/data" || len(got.Args) != 2 || got.Args[1] != "0.5" {
		t.Fatalf("run fields not round-tripped: %#v", got)
	}
	var decoded map[string]int
	if err := json.Unmarshal(got.Summary, &decoded); err != nil || decoded["files_modified"] != 3 {
		t.Fatalf("summary = %s (%v)", got.Summary, err)
	}
}

func TestFinishRunRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	run := testsupport.StartRun(t, store, "raw denoise")

	if err := store.FinishRun(ctx, run.ID, ledger.StatusFailed, nil, errors.New("size mismatch")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Error != "size mismatch" || got.Summary != nil {
		t.Fatalf("unexpected run: %#v", got)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	err := store.FinishRun(context.Background(), "missing", ledger.StatusSucceeded, nil, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	run := testsupport.StartRun(t, store, "continuity")

	got, err := store.GetRun(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("GetRun by prefix failed: %v", err)
	}
	if got.ID != run.ID {
		t.Fatalf("prefix resolved to %s, want %s", got.ID, run.ID)
	}
	if _, err := store.GetRun(ctx, "abc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("short prefix should be rejected, got %v", err)
	}
	if _, err := store.GetRun(ctx, "ffffffff-0000"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindingsRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	run := testsupport.StartRun(t, store, "capture check")

	findings := []ledger.Finding{
		{CaptureID: "cap1", Severity: "error", Category: "missing_dir", Subject: "APS", Message: "APS directory missing"},
		{Severity: "warning", Category: "discontinuous", Message: "frames 4-6 missing"},
	}
	if err := store.AddFindings(ctx, run.ID, findings); err != nil {
		t.Fatalf("AddFindings failed: %v", err)
	}
	if err := store.AddFindings(ctx, run.ID, nil); err != nil {
		t.Fatalf("AddFindings with no findings failed: %v", err)
	}

	got, err := store.Findings(ctx, run.ID)
	if err != nil {
		t.Fatalf("Findings failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("findings = %d, want 2", len(got))
	}
	if got[0].CaptureID != "cap1" || got[0].Subject != "APS" || got[0].RunID != run.ID {
		t.Fatalf("unexpected first finding: %#v", got[0])
	}
	if got[1].CaptureID != "" || got[1].Category != "discontinuous" {
		t.Fatalf("unexpected second finding: %#v", got[1])
	}
}

func TestListRunsFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	first := testsupport.StartRun(t, store, "merge")
	testsupport.StartRun(t, store, "remap")
	last := testsupport.StartRun(t, store, "merge")
	if err := store.FinishRun(ctx, first.ID, ledger.StatusSucceeded, nil, nil); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListRuns(ctx, ledger.ListOptions{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != last.ID {
		t.Fatalf("expected newest first, got %d runs", len(all))
	}

	merges, err := store.ListRuns(ctx, ledger.ListOptions{Command: "merge", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(merges) != 1 || merges[0].ID != last.ID {
		t.Fatalf("unexpected merge runs: %#v", merges)
	}

	done, err := store.ListRuns(ctx, ledger.ListOptions{Status: ledger.StatusSucceeded})
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].ID != first.ID {
		t.Fatalf("unexpected succeeded runs: %#v", done)
	}
}

func TestMarkInterruptedAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	stale := testsupport.StartRun(t, store, "overlay")
	if err := store.AddFindings(ctx, stale.ID, []ledger.Finding{{Severity: "info", Category: "note", Message: "x"}}); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour)
	n, err := store.MarkInterrupted(ctx, future)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	got, err := store.GetRun(ctx, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != ledger.StatusInterrupted || got.Error == "" {
		t.Fatalf("run not interrupted: %#v", got)
	}

	running := testsupport.StartRun(t, store, "merge")
	removed, err := store.Prune(ctx, future)
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	if _, err := store.GetRun(ctx, stale.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("pruned run still present: %v", err)
	}
	if findings, _ := store.Findings(ctx, stale.ID); len(findings) != 0 {
		t.Fatalf("pruned run left %d findings", len(findings))
	}
	if _, err := store.GetRun(ctx, running.ID); err != nil {
		t.Fatalf("running run should survive prune: %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	run, err := store.StartRun(context.Background(), "history", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), run.ID); err != nil {
		t.Fatalf("run lost across reopen: %v", err)
	}
	if reopened.Path() != path {
		t.Fatalf("Path() = %q", reopened.Path())
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := ledger.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
