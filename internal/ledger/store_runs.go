package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"annofuse/internal/services"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StartRun records a new running run and returns it.
func (s *Store) StartRun(ctx context.Context, command string, args []string, datasetDir string) (*Run, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("start run: command is empty")
	}
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	run := &Run{
		ID:         uuid.NewString(),
		Command:    command,
		Args:       args,
		DatasetDir: datasetDir,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, command, args_json, dataset_dir, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, string(argsJSON), nullableString(datasetDir), string(run.Status), run.StartedAt.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run with its final status. summary is stored as JSON
// and may be nil. runErr, when set, is kept as the run's error message.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, summary any, runErr error) error {
	var summaryJSON any
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		summaryJSON = string(data)
	}
	var message any
	if runErr != nil {
		message = runErr.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, summary_json = ?, error_message = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(timeLayout), summaryJSON, message, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "ledger", "finish run", "no run with id "+id, nil)
	}
	return nil
}

// AddFindings attaches findings to a run in one transaction.
func (s *Store) AddFindings(ctx context.Context, runID string, findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO findings (run_id, capture_id, severity, category, subject, message) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range findings {
			if _, err := stmt.ExecContext(ctx, runID, nullableString(f.CaptureID), f.Severity, f.Category, nullableString(f.Subject), f.Message); err != nil {
				return fmt.Errorf("insert finding: %w", err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `id, command, args_json, dataset_dir, status, started_at, finished_at, summary_json, error_message`

// GetRun fetches a run by id. A unique id prefix of at least four characters
// is accepted too, so users can paste the short ids from history output.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if len(id) < 4 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "get run", "run id must have at least 4 characters", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC, rowid DESC LIMIT 2`,
		id, stripLikeWildcards(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "ledger", "get run", "no run matches "+id, nil)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "ledger", "get run", "run id prefix "+id+" is ambiguous", nil)
	}
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	ctx = ensureContext(ctx)
	var (
		where []string
		args  []any
	)
	if opts.Command != "" {
		where = append(where, "command = ?")
		args = append(args, opts.Command)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Findings returns the findings of one run in insertion order.
func (s *Store) Findings(ctx context.Context, runID string) ([]Finding, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, capture_id, severity, category, subject, message FROM findings WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()
	var out []Finding
	for rows.Next() {
		var (
			f                Finding
			capture, subject sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.RunID, &capture, &f.Severity, &f.Category, &subject, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.CaptureID = capture.String
		f.Subject = subject.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkInterrupted closes runs still marked running that started before
// cutoff. Those belong to processes that died without finishing.
func (s *Store) MarkInterrupted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = COALESCE(error_message, ?) WHERE status = ? AND started_at < ?`,
		string(StatusInterrupted), time.Now().UTC().Format(timeLayout), "process exited before the run finished",
		string(StatusRunning), cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished runs (and their findings) that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stamp := cutoff.UTC().Format(timeLayout)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM findings WHERE run_id IN (SELECT id FROM runs WHERE status != ? AND started_at < ?)`,
			string(StatusRunning), stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE status != ? AND started_at < ?`, string(StatusRunning), stamp)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
