package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run                        Run
		argsJSON, status, started  string
		dataset, finished, summary sql.NullString
		message                    sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Command, &argsJSON, &dataset, &status, &started, &finished, &summary, &message); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return nil, fmt.Errorf("decode args for run %s: %w", run.ID, err)
	}
	run.DatasetDir = dataset.String
	run.Status = Status(status)
	ts, err := parseTimeString(started)
	if err != nil {
		return nil, err
	}
	run.StartedAt = ts
	if finished.Valid && finished.String != "" {
		ts, err := parseTimeString(finished.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &ts
	}
	if summary.Valid && summary.String != "" {
		run.Summary = json.RawMessage(summary.String)
	}
	run.Error = message.String
	return &run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

// stripLikeWildcards drops LIKE wildcards from a user-supplied id prefix.
// Run ids are uuids and never contain them.
func stripLikeWildcards(value string) string {
	r := strings.NewReplacer("%", "", "_", "")
	return r.Replace(value)
}
