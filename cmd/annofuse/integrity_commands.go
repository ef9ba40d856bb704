package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"annofuse/internal/capture"
	"annofuse/internal/config"
	"annofuse/internal/continuity"
	"annofuse/internal/workflow"
)

func newContinuityCommand(ctx *commandContext) *cobra.Command {
	var patternName, prefix, suffix string

	cmd := &cobra.Command{
		Use:   "continuity DIR...",
		Short: "Report missing frame indices in frame directories",
		Long: "Continuity reads the frame index from each file name and reports the gaps between the\n" +
			"first and last index. Without --pattern or --prefix the pattern is chosen from the\n" +
			"directory name (aps_png, aps_raw, evs_png, evs_raw, evs_txt, or a configured pattern).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			patterns := knownPatterns(cfg)
			groups, order, err := groupByPattern(dirs, patterns, patternName, prefix, suffix)
			if err != nil {
				return err
			}
			spec := workflow.Spec{Command: "continuity", Args: args, ReadDirs: dirs}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				var total workflow.ContinuitySummary
				for _, name := range order {
					group := groups[name]
					summary, err := workflow.CheckContinuity(runCtx, job, group.dirs, group.pattern)
					if err != nil {
						return total, err
					}
					total.Dirs = append(total.Dirs, summary.Dirs...)
					total.Continuous += summary.Continuous
					total.Discontinuous += summary.Discontinuous
					total.Empty += summary.Empty
				}
				return total, nil
			}, renderContinuity)
		},
	}
	cmd.Flags().StringVarP(&patternName, "pattern", "p", "", "Named frame pattern for every directory")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Custom file name prefix before the index")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Custom file name suffix after the index")
	return cmd
}

type patternGroup struct {
	pattern continuity.Pattern
	dirs    []string
}

// knownPatterns merges configured patterns over the built-in ones.
func knownPatterns(cfg *config.Config) map[string]continuity.Pattern {
	patterns := continuity.BuiltinPatterns()
	for _, p := range cfg.Continuity.Patterns {
		patterns[p.Name] = continuity.Pattern{Name: p.Name, Prefix: p.Prefix, Suffix: p.Suffix}
	}
	return patterns
}

func groupByPattern(dirs []string, patterns map[string]continuity.Pattern, name, prefix, suffix string) (map[string]*patternGroup, []string, error) {
	groups := make(map[string]*patternGroup)
	var order []string
	add := func(p continuity.Pattern, dir string) {
		g, ok := groups[p.Name]
		if !ok {
			g = &patternGroup{pattern: p}
			groups[p.Name] = g
			order = append(order, p.Name)
		}
		g.dirs = append(g.dirs, dir)
	}
	for _, dir := range dirs {
		switch {
		case prefix != "" || suffix != "":
			add(continuity.Pattern{Name: "custom", Prefix: prefix, Suffix: suffix}, dir)
		case name != "":
			p, ok := patterns[name]
			if !ok {
				return nil, nil, fmt.Errorf("unknown pattern %q (known: %s)", name, strings.Join(patternNames(patterns), ", "))
			}
			add(p, dir)
		default:
			p, ok := patterns[strings.ToLower(filepath.Base(filepath.Clean(dir)))]
			if !ok {
				return nil, nil, fmt.Errorf("cannot infer the frame pattern of %s; pass --pattern or --prefix/--suffix", dir)
			}
			add(p, dir)
		}
	}
	return groups, order, nil
}

func patternNames(patterns map[string]continuity.Pattern) []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func renderContinuity(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.ContinuitySummary)
	if !ok || len(s.Dirs) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Dirs))
	for _, d := range s.Dirs {
		status := "continuous"
		switch {
		case d.Empty:
			status = "no frames"
		case !d.Report.IsContinuous:
			status = "gaps"
		}
		span := ""
		if !d.Empty {
			span = fmt.Sprintf("%d-%d", d.Report.First, d.Report.Last)
		}
		rows = append(rows, []string{
			d.Dir,
			d.Pattern,
			status,
			span,
			formatInt(d.Report.Observed),
			formatInt(d.Report.Missing),
			strings.Join(d.Report.MissingRanges, ","),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Directory", "Pattern", "Status", "Span", "Frames", "Missing", "Missing ranges"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture directory integrity checks",
	}
	captureCmd.AddCommand(newCaptureCheckCommand(ctx))
	captureCmd.AddCommand(newCaptureDiffCommand(ctx))
	captureCmd.AddCommand(newCaptureDedupeCommand(ctx))
	return captureCmd
}

func newCaptureCheckCommand(ctx *commandContext) *cobra.Command {
	var prefix string
	var removeExtras, dryRun bool

	cmd := &cobra.Command{
		Use:   "check [DATASET]",
		Short: "Check every capture for its video files, frame folders and continuity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dataset := cfg.Paths.DatasetDir
			if len(args) == 1 {
				if dataset, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("prefix") {
				prefix = cfg.Capture.IDPrefix
			}
			if !cmd.Flags().Changed("remove-extras") {
				removeExtras = cfg.Capture.RemoveExtras
			}
			opts := workflow.CaptureCheckOptions{
				DatasetDir:   dataset,
				IDPrefix:     prefix,
				RemoveExtras: removeExtras,
				DryRun:       dryRun,
			}
			lockDir := ""
			if removeExtras && !dryRun {
				lockDir = dataset
			}
			spec := workflow.Spec{Command: "capture check", Args: args, ReadDirs: []string{dataset}, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.CheckCaptures(runCtx, job, opts)
			}, renderCaptureCheck)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only check capture ids starting with this prefix (default capture.id_prefix)")
	cmd.Flags().BoolVar(&removeExtras, "remove-extras", false, "Delete device files left next to the capture folders")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report extra files without deleting them")
	return cmd
}

func renderCaptureCheck(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.CaptureCheckSummary)
	if !ok || len(s.Results) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		counts := capture.CountBySeverity(r.Findings)
		rows = append(rows, []string{
			r.CaptureID,
			yesNo(r.OK()),
			formatInt(len(r.Streams)),
			formatInt(counts[capture.SeverityError]),
			formatInt(counts[capture.SeverityWarning]),
			formatInt(len(r.Extras)),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Capture", "OK", "Streams", "Errors", "Warnings", "Extras"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}

func newCaptureDiffCommand(ctx *commandContext) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "diff LEFT RIGHT",
		Short: "Compare capture ids between two datasets or id lists",
		Long: "Each side is either a dataset directory, whose capture folders are listed, or a text\n" +
			"file with one capture id per line.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("prefix") {
				prefix = cfg.Capture.IDPrefix
			}
			paths, err := expandArgs(args)
			if err != nil {
				return err
			}
			left, err := captureIDs(paths[0], prefix)
			if err != nil {
				return err
			}
			right, err := captureIDs(paths[1], prefix)
			if err != nil {
				return err
			}
			diff := capture.Diff(left, right)
			if ctx.jsonOutput() {
				return writeJSON(cmd, diff)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusOK
			if len(diff.OnlyLeft)+len(diff.OnlyRight) > 0 {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Common", statusInfo, formatInt(len(diff.Common)), colorize))
			fmt.Fprintln(out, renderStatusLine("Only in "+filepath.Base(paths[0]), kind, formatInt(len(diff.OnlyLeft)), colorize))
			fmt.Fprintln(out, renderStatusLine("Only in "+filepath.Base(paths[1]), kind, formatInt(len(diff.OnlyRight)), colorize))
			rows := make([][]string, 0, len(diff.OnlyLeft)+len(diff.OnlyRight))
			for _, id := range diff.OnlyLeft {
				rows = append(rows, []string{id, args[0]})
			}
			for _, id := range diff.OnlyRight {
				rows = append(rows, []string{id, args[1]})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Capture", "Only in"}, rows, nil))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list capture folders starting with this prefix (default capture.id_prefix)")
	return cmd
}

func captureIDs(path, prefix string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("capture list %s: %w", path, err)
	}
	if info.IsDir() {
		return capture.ListIDs(path, prefix)
	}
	return capture.ReadIDList(path)
}

func newCaptureDedupeCommand(ctx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "dedupe DIR",
		Short: "Find name(1).xml copies that sit next to name.xml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			lockDir := ""
			if remove {
				lockDir = dirs[0]
			}
			spec := workflow.Spec{Command: "capture dedupe", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Dedupe(runCtx, job, dirs[0], remove)
			}, nil)
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the duplicate copies")
	return cmd
}
