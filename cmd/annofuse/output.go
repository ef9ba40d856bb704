package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"annofuse/internal/ledger"
	"annofuse/internal/workflow"
)

const maxFindingRows = 25

// printOutcome renders a finished batch run: status lines, the summary
// counters, any command specific tables, and the first findings.
func printOutcome(cmd *cobra.Command, outcome *workflow.Outcome, render func(*cobra.Command, any)) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader(outcome.Command, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, outcome.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(outcome.Status), string(outcome.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, outcome.Elapsed.Round(time.Millisecond).String(), colorize))
	if counts := formatCounts(outcome.Counts); counts != "" {
		fmt.Fprintln(out, renderStatusLine("Findings", findingsKind(outcome.Counts), counts, colorize))
	}

	if rows := summaryRows(outcome.Summary); len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderKeyValues(rows))
	}
	if render != nil && outcome.Summary != nil {
		render(cmd, outcome.Summary)
	}
	if len(outcome.Findings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderFindings(outcome.Findings, maxFindingRows))
		if extra := len(outcome.Findings) - maxFindingRows; extra > 0 {
			fmt.Fprintf(out, "... and %s more; see `annofuse history %s`\n", humanize.Comma(int64(extra)), shortID(outcome.RunID))
		}
	}
	if outcome.LogPath != "" {
		fmt.Fprintf(out, "\nRun log: %s\n", outcome.LogPath)
	}
}

func summaryRows(summary any) [][]string {
	if summary == nil {
		return nil
	}
	fields := summaryFields(summary)
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{humanizeKey(f[0].(string)), formatValue(f[1])})
	}
	return rows
}

func humanizeKey(key string) string {
	words := strings.Split(key, "_")
	if len(words) > 0 && words[0] != "" {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}

func formatValue(v any) string {
	switch value := v.(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return humanize.Comma(n)
		}
		if f, err := value.Float64(); err == nil {
			return humanize.Ftoa(f)
		}
		return value.String()
	case bool:
		return yesNo(value)
	default:
		return fmt.Sprint(value)
	}
}

func renderFindings(findings []ledger.Finding, limit int) string {
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{f.Severity, f.CaptureID, f.Category, f.Subject, f.Message})
	}
	return renderTable([]string{"Severity", "Capture", "Category", "Subject", "Message"}, rows, nil)
}

func formatCounts(counts map[string]int) string {
	var parts []string
	for _, severity := range []string{workflow.SeverityError, workflow.SeverityWarning, workflow.SeverityInfo} {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(n)), severity))
		}
	}
	return strings.Join(parts, ", ")
}

func findingsKind(counts map[string]int) statusKind {
	switch {
	case counts[workflow.SeverityError] > 0:
		return statusError
	case counts[workflow.SeverityWarning] > 0:
		return statusWarn
	default:
		return statusInfo
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatInt(n int) string {
	return humanize.Comma(int64(n))
}
