package ledger

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Run is one recorded command invocation.
type Run struct {
	ID         string          `json:"id"`
	Command    string          `json:"command"`
	Args       []string        `json:"args"`
	DatasetDir string          `json:"dataset_dir,omitempty"`
	Status     Status          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Duration reports how long the run took, or how long it has been running.
func (r Run) Duration(now time.Time) time.Duration {
	end := now
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

// Finding is one problem or observation attached to a run.
type Finding struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	CaptureID string `json:"capture_id,omitempty"`
	Severity  string `json:"severity"`
	Category  string `json:"category"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}

// ListOptions filters ListRuns.
type ListOptions struct {
	Command string
	Status  Status
	Limit   int
}
