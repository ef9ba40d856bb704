package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"annofuse/internal/config"
	"annofuse/internal/ledger"
	"annofuse/internal/logging"
	"annofuse/internal/preflight"
	"annofuse/internal/services"
	"annofuse/internal/workspace"
)

// Progress receives batch progress. The CLI plugs a terminal bar in here.
type Progress interface {
	Start(label string, total int)
	Add(n int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Add(int)           {}
func (nopProgress) Finish()           {}

// Runner wraps batch operations with the run ledger, a per-run log file,
// the output lock, and preflight checks.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	progress Progress
	now      func() time.Time
}

// RunnerOption configures optional Runner behavior.
type RunnerOption func(*Runner)

// WithProgress routes batch progress to p.
func WithProgress(p Progress) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.progress = p
		}
	}
}

// NewRunner constructs a runner for cfg.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		progress: nopProgress{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spec describes one run.
type Spec struct {
	Command string
	Args    []string
	// ReadDirs must exist and be readable before the run starts.
	ReadDirs []string
	// LockDir is held exclusively for the whole run when set.
	LockDir string
}

// Outcome is what a finished run leaves behind.
type Outcome struct {
	RunID    string           `json:"run_id"`
	Command  string           `json:"command"`
	Status   ledger.Status    `json:"status"`
	Elapsed  time.Duration    `json:"elapsed"`
	LogPath  string           `json:"log_path,omitempty"`
	Summary  any              `json:"summary,omitempty"`
	Findings []ledger.Finding `json:"findings,omitempty"`
	Counts   map[string]int   `json:"finding_counts,omitempty"`
}

// Operation is the body of a run. It returns a JSON-serializable summary.
type Operation func(ctx context.Context, job *Job) (any, error)

// Run executes op under spec. The returned outcome is non-nil whenever the
// run started, including when op failed.
func (r *Runner) Run(ctx context.Context, spec Spec, op Operation) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.checkReadable(spec.ReadDirs); err != nil {
		return nil, err
	}

	var lock *workspace.Lock
	if spec.LockDir != "" {
		var err error
		lock, err = workspace.Acquire(spec.LockDir)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				r.logger.Warn("workspace lock release failed",
					logging.Error(err),
					logging.String(logging.FieldPath, lock.Path()),
					logging.String(logging.FieldEventType, "lock_release_failed"),
				)
			}
		}()
	}

	store, err := r.openLedger()
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
	}

	runID := uuid.NewString()
	if store != nil {
		run, err := store.StartRun(ctx, spec.Command, spec.Args, r.datasetDir())
		if err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
		runID = run.ID
	}

	started := r.now()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithCommand(ctx, spec.Command)

	logger := r.logger
	var logPath string
	if r.cfg != nil && r.cfg.Paths.LogDir != "" {
		runLog, err := logging.OpenRunLog(r.cfg.Paths.LogDir, spec.Command, runID, started)
		if err != nil {
			logging.WarnWithContext(r.logger, "run log unavailable", "run_log_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check log_dir permissions"),
				logging.String(logging.FieldImpact, "this run has no on-disk debug log"),
			)
		} else {
			defer runLog.Close()
			logger = runLog.Tee(logger)
			logPath = runLog.Path
			logging.PruneRunLogs(r.logger, r.cfg.Paths.LogDir, r.cfg.Logging.RetentionDays, logPath)
		}
	}
	levels := map[string]string(nil)
	if r.cfg != nil {
		levels = r.cfg.Logging.ComponentOverrides
	}
	logger = logging.WithContext(ctx, logging.ForComponent(logger, "workflow", levels))
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("args", strings.Join(spec.Args, " ")),
	)

	job := &Job{
		RunID:    runID,
		Command:  spec.Command,
		Logger:   logger,
		progress: r.progress,
		sampler:  logging.NewProgressSampler(10),
	}
	summary, opErr := op(ctx, job)
	job.FinishProgress()

	status := ledger.StatusSucceeded
	switch {
	case errors.Is(opErr, context.Canceled):
		status = ledger.StatusInterrupted
	case opErr != nil:
		status = ledger.StatusFailed
	}

	outcome := &Outcome{
		RunID:    runID,
		Command:  spec.Command,
		Status:   status,
		Elapsed:  r.now().Sub(started),
		LogPath:  logPath,
		Summary:  summary,
		Findings: job.Findings(),
	}
	outcome.Counts = countSeverities(outcome.Findings)

	if store != nil {
		// Record even when the caller's context is gone.
		recordCtx := context.WithoutCancel(ctx)
		if err := store.AddFindings(recordCtx, runID, outcome.Findings); err != nil {
			logging.WarnWithContext(logger, "findings not recorded", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows this run without findings"),
			)
		}
		if err := store.FinishRun(recordCtx, runID, status, summary, opErr); err != nil {
			logging.WarnWithContext(logger, "run result not recorded", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows this run as still running"),
			)
		}
	}

	if opErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(opErr),
			logging.String("category", services.Category(opErr)),
			logging.Duration("elapsed", outcome.Elapsed),
		)
		return outcome, opErr
	}
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("findings", len(outcome.Findings)),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome, nil
}

func (r *Runner) checkReadable(dirs []string) error {
	var failures []string
	for _, dir := range dirs {
		result := preflight.CheckDirectoryReadable("input", dir)
		if !result.Passed {
			failures = append(failures, result.Detail)
		}
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}

func (r *Runner) openLedger() (*ledger.Store, error) {
	if r.cfg == nil {
		return nil, nil
	}
	path := r.cfg.LedgerPath()
	if path == "" {
		return nil, nil
	}
	store, err := ledger.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	return store, nil
}

func (r *Runner) datasetDir() string {
	if r.cfg == nil {
		return ""
	}
	return r.cfg.Paths.DatasetDir
}

func countSeverities(findings []ledger.Finding) map[string]int {
	if len(findings) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// Job is the handle an operation uses to report findings and progress. It
// is safe for concurrent use.
type Job struct {
	RunID   string
	Command string
	Logger  *slog.Logger

	mu       sync.Mutex
	findings []ledger.Finding
	progress Progress
	sampler  *logging.ProgressSampler
	label    string
	total    int
	done     int
	started  bool
}

// NewJob returns a job that records findings without a ledger or progress
// output. Operations can be called with it directly.
func NewJob(logger *slog.Logger) *Job {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Job{Logger: logger, progress: nopProgress{}, sampler: logging.NewProgressSampler(10)}
}

// Severities used by workflow findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// AddFinding records one finding and logs it.
func (j *Job) AddFinding(f ledger.Finding) {
	j.mu.Lock()
	f.RunID = j.RunID
	j.findings = append(j.findings, f)
	j.mu.Unlock()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, f.Category),
		logging.String("subject", f.Subject),
	}
	if f.CaptureID != "" {
		attrs = append(attrs, logging.String(logging.FieldCaptureID, f.CaptureID))
	}
	switch f.Severity {
	case SeverityError:
		j.Logger.Warn(f.Message, logging.Args(attrs...)...)
	case SeverityWarning:
		j.Logger.Info(f.Message, logging.Args(attrs...)...)
	default:
		j.Logger.Debug(f.Message, logging.Args(attrs...)...)
	}
}

// Problem records an error finding derived from err.
func (j *Job) Problem(captureID, subject string, err error) {
	j.AddFinding(ledger.Finding{
		CaptureID: captureID,
		Severity:  SeverityError,
		Category:  services.Category(err),
		Subject:   subject,
		Message:   err.Error(),
	})
}

// Findings returns a copy of the findings recorded so far.
func (j *Job) Findings() []ledger.Finding {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ledger.Finding(nil), j.findings...)
}

// StartProgress announces a batch of total items.
func (j *Job) StartProgress(label string, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.label = label
	j.total = total
	j.done = 0
	j.started = true
	j.sampler.Reset()
	j.progress.Start(label, total)
}

// Step marks one item done.
func (j *Job) Step() {
	j.mu.Lock()
	j.done++
	done, total, label := j.done, j.total, j.label
	shouldLog := j.sampler.ShouldLog(done, total)
	j.progress.Add(1)
	j.mu.Unlock()
	if shouldLog {
		j.Logger.Debug("progress",
			logging.String("phase", label),
			logging.Int("done", done),
			logging.Int("total", total),
		)
	}
}

// FinishProgress closes the current batch, if any.
func (j *Job) FinishProgress() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.started {
		return
	}
	j.started = false
	j.progress.Finish()
}
