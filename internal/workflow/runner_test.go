package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"annofuse/internal/ledger"
	"annofuse/internal/logging"
	"annofuse/internal/services"
	"annofuse/internal/testsupport"
	"annofuse/internal/workflow"
	"annofuse/internal/workspace"
)

type countingProgress struct {
	started  int
	added    int
	finished int
}

func (p *countingProgress) Start(string, int) { p.started++ }
func (p *countingProgress) Add(n int)         { p.added += n }
func (p *countingProgress) Finish()           { p.finished++ }

func TestRunnerRecordsRunAndFindings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	progress := &countingProgress{}
	runner := workflow.NewRunner(cfg, logging.NewNop(), workflow.WithProgress(progress))

	outcome, err := runner.Run(context.Background(), workflow.Spec{Command: "merge", Args: []string{"a", "b"}},
		func(ctx context.Context, job *workflow.Job) (any, error) {
			if id, ok := services.RunIDFromContext(ctx); !ok || id != job.RunID {
				t.Errorf("run id in context = %q, want %q", id, job.RunID)
			}
			job.StartProgress("items", 3)
			for range 3 {
				job.Step()
			}
			job.AddFinding(ledger.Finding{CaptureID: "c1", Severity: workflow.SeverityWarning, Category: "skipped_records", Subject: "c1/aps/f_1.xml", Message: "1 record(s) skipped"})
			return map[string]int{"files_modified": 2}, nil
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Status != ledger.StatusSucceeded {
		t.Fatalf("status = %s, want succeeded", outcome.Status)
	}
	if outcome.Counts[workflow.SeverityWarning] != 1 {
		t.Fatalf("finding counts = %v", outcome.Counts)
	}
	if progress.started != 1 || progress.added != 3 || progress.finished != 1 {
		t.Fatalf("progress = %+v", progress)
	}
	if _, err := os.Stat(outcome.LogPath); err != nil {
		t.Fatalf("run log missing: %v", err)
	}

	store := testsupport.MustOpenLedger(t, cfg)
	run, err := store.GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != ledger.StatusSucceeded || run.Command != "merge" {
		t.Fatalf("run = %+v", run)
	}
	if string(run.Summary) != `{"files_modified":2}` {
		t.Fatalf("summary = %s", run.Summary)
	}
	findings, err := store.Findings(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Findings: %v", err)
	}
	if len(findings) != 1 || findings[0].Subject != "c1/aps/f_1.xml" {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestRunnerRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := workflow.NewRunner(cfg, nil)
	boom := errors.New("boom")

	outcome, err := runner.Run(context.Background(), workflow.Spec{Command: "remap"},
		func(context.Context, *workflow.Job) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if outcome == nil || outcome.Status != ledger.StatusFailed {
		t.Fatalf("outcome = %+v", outcome)
	}
	run, err := testsupport.MustOpenLedger(t, cfg).GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != ledger.StatusFailed || run.Error != "boom" {
		t.Fatalf("run = %+v", run)
	}
}

func TestRunnerWithoutLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	runner := workflow.NewRunner(cfg, nil)
	outcome, err := runner.Run(context.Background(), workflow.Spec{Command: "continuity"},
		func(context.Context, *workflow.Job) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.RunID == "" {
		t.Fatal("expected a run id without a ledger")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "ledger.db")); !os.IsNotExist(err) {
		t.Fatalf("ledger created although disabled: %v", err)
	}
}

func TestRunnerRejectsBusyOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	out := cfg.Paths.OutputDir
	held, err := workspace.Acquire(out)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	ran := false
	_, err = workflow.NewRunner(cfg, nil).Run(context.Background(), workflow.Spec{Command: "merge", LockDir: out},
		func(context.Context, *workflow.Job) (any, error) { ran = true; return nil, nil })
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("err = %v, want busy", err)
	}
	if ran {
		t.Fatal("operation ran while the output was locked")
	}
}

func TestRunnerRejectsMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	missing := filepath.Join(testsupport.BaseDir(cfg), "nope")
	_, err := workflow.NewRunner(cfg, nil).Run(context.Background(), workflow.Spec{Command: "merge", ReadDirs: []string{missing}},
		func(context.Context, *workflow.Job) (any, error) { return nil, nil })
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestRunnerMarksCanceledRunInterrupted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	outcome, err := workflow.NewRunner(cfg, nil).Run(ctx, workflow.Spec{Command: "raw denoise"},
		func(ctx context.Context, _ *workflow.Job) (any, error) {
			cancel()
			return nil, ctx.Err()
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	run, err := testsupport.MustOpenLedger(t, cfg).GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != ledger.StatusInterrupted {
		t.Fatalf("status = %s, want interrupted", run.Status)
	}
}
