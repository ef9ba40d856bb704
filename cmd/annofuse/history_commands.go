package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"annofuse/internal/ledger"
)

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	path := cfg.LedgerPath()
	if path == "" {
		return fmt.Errorf("run ledger is disabled (ledger.enabled = false)")
	}
	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var command, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs, or show one run with its findings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				if len(args) == 1 {
					return showRun(cmd, ctx, store, args[0])
				}
				runs, err := store.ListRuns(cmdContext(cmd), ledger.ListOptions{
					Command: command,
					Status:  ledger.Status(strings.ToLower(status)),
					Limit:   limit,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.Command,
						string(run.Status),
						humanize.RelTime(run.StartedAt, now, "ago", "from now"),
						run.Duration(now).Round(time.Millisecond).String(),
						strings.Join(run.Args, " "),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Command", "Status", "Started", "Duration", "Args"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "Only runs of this command")
	cmd.Flags().StringVar(&status, "status", "", "Only runs with this status (running, succeeded, failed, interrupted)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func showRun(cmd *cobra.Command, ctx *commandContext, store *ledger.Store, id string) error {
	run, err := store.GetRun(cmdContext(cmd), id)
	if err != nil {
		return err
	}
	findings, err := store.Findings(cmdContext(cmd), run.ID)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, struct {
			*ledger.Run
			Findings []ledger.Finding `json:"findings"`
		}{run, findings})
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(run.Command, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, run.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", runStatusKind(run.Status), string(run.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime), colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, run.Duration(time.Now()).Round(time.Millisecond).String(), colorize))
	if len(run.Args) > 0 {
		fmt.Fprintln(out, renderStatusLine("Args", statusInfo, strings.Join(run.Args, " "), colorize))
	}
	if run.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.Error, colorize))
	}
	if len(run.Summary) > 0 {
		var summary any
		if err := json.Unmarshal(run.Summary, &summary); err == nil {
			if rows := summaryRows(summary); len(rows) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderKeyValues(rows))
			}
		}
	}
	if len(findings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderFindings(findings, 0))
	}
	return nil
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan int
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Close runs left running by dead processes and delete old runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				now := time.Now()
				closed, err := store.MarkInterrupted(cmdContext(cmd), now.Add(-staleAfter))
				if err != nil {
					return err
				}
				removed, err := store.Prune(cmdContext(cmd), now.AddDate(0, 0, -olderThan))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int64{"interrupted": closed, "removed": removed})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Marked %s stale run(s) interrupted\n", humanize.Comma(closed))
				fmt.Fprintf(out, "Removed %s run(s) older than %d days\n", humanize.Comma(removed), olderThan)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&olderThan, "older-than", 90, "Delete finished runs started more than this many days ago")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 24*time.Hour, "Treat runs still running after this long as interrupted")
	return cmd
}
