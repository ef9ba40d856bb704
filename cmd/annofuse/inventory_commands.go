package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"annofuse/internal/config"
	"annofuse/internal/workflow"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	inventoryCmd := &cobra.Command{
		Use:   "inventory",
		Short: "Class counts, frame lookups and review samples of a label tree",
	}
	inventoryCmd.AddCommand(newInventoryClassesCommand(ctx))
	inventoryCmd.AddCommand(newInventoryFindCommand(ctx))
	inventoryCmd.AddCommand(newInventorySampleCommand(ctx))
	return inventoryCmd
}

func labelGeometry(cfg *config.Config) workflow.Geometry {
	return workflow.Geometry{
		Width:      cfg.Merge.ImageWidth,
		Height:     cfg.Merge.ImageHeight,
		ClassNames: cfg.Merge.ClassNames,
	}
}

// inventoryDir resolves the tree argument, defaulting to paths.dataset_dir.
func inventoryDir(cfg *config.Config, args []string) (string, error) {
	if len(args) == 0 {
		return cfg.Paths.DatasetDir, nil
	}
	return config.ExpandPath(args[0])
}

func newInventoryClassesCommand(ctx *commandContext) *cobra.Command {
	var targets []string

	cmd := &cobra.Command{
		Use:   "classes [DIR]",
		Short: "Count boxes per class and report captures with unexpected classes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := inventoryDir(cfg, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("target") {
				targets = cfg.Taxonomy.TargetClasses
			}
			spec := workflow.Spec{Command: "inventory classes", Args: args, ReadDirs: []string{dir}}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.InventoryClasses(runCtx, job, dir, labelGeometry(cfg), targets)
			}, renderClasses)
		},
	}
	cmd.Flags().StringSliceVar(&targets, "target", nil, "Expected classes; captures with others are reported (default taxonomy.target_classes)")
	return cmd
}

func renderClasses(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.ClassesSummary)
	if !ok {
		return
	}
	out := cmd.OutOrStdout()
	inv := s.Inventory
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderKeyValues([][]string{
		{"Labelled frames", formatInt(inv.Keys)},
		{"Boxes", formatInt(inv.Boxes)},
		{"Captures", formatInt(inv.Captures)},
		{"Boxes per frame", fmt.Sprintf("%s ± %s (%d-%d)",
			humanize.FtoaWithDigits(inv.BoxesPerFrame.Mean, 2),
			humanize.FtoaWithDigits(inv.BoxesPerFrame.StdDev, 2),
			inv.BoxesPerFrame.Min, inv.BoxesPerFrame.Max)},
	}))
	if len(inv.Classes) > 0 {
		rows := make([][]string, 0, len(inv.Classes))
		for _, c := range inv.Classes {
			share := ""
			if inv.Boxes > 0 {
				share = humanize.FtoaWithDigits(100*float64(c.Count)/float64(inv.Boxes), 1) + "%"
			}
			rows = append(rows, []string{c.Class, formatInt(c.Count), share})
		}
		fmt.Fprintln(out, renderTable([]string{"Class", "Boxes", "Share"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	}
	if len(s.NonTarget) > 0 {
		rows := make([][]string, 0, len(s.NonTarget))
		for _, cc := range s.NonTarget {
			parts := make([]string, 0, len(cc.Classes))
			for _, c := range cc.Classes {
				parts = append(parts, fmt.Sprintf("%s (%s)", c.Class, formatInt(c.Count)))
			}
			rows = append(rows, []string{cc.CaptureID, strings.Join(parts, ", ")})
		}
		fmt.Fprintln(out, renderTable([]string{"Capture", "Unexpected classes"}, rows, nil))
	}
}

func newInventoryFindCommand(ctx *commandContext) *cobra.Command {
	var classes []string

	cmd := &cobra.Command{
		Use:   "find [DIR]",
		Short: "List the frames labelled with any of the given classes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := inventoryDir(cfg, args)
			if err != nil {
				return err
			}
			spec := workflow.Spec{Command: "inventory find", Args: args, ReadDirs: []string{dir}}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.FindClasses(runCtx, job, dir, labelGeometry(cfg), classes)
			}, renderFind)
		},
	}
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Classes to look for")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func renderFind(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.FindSummary)
	if !ok || len(s.Keys) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, key := range s.Keys {
		fmt.Fprintln(out, key)
	}
}

func newInventorySampleCommand(ctx *commandContext) *cobra.Command {
	var size int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "sample [DIR]",
		Short: "Pick a reproducible sample of frames per class for visual review",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := inventoryDir(cfg, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("size") {
				size = cfg.Inventory.SampleSize
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Inventory.Seed
			}
			spec := workflow.Spec{Command: "inventory sample", Args: args, ReadDirs: []string{dir}}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.SampleClasses(runCtx, job, dir, labelGeometry(cfg), size, seed)
			}, renderSample)
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 0, "Frames per class (default inventory.sample_size)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default inventory.seed)")
	return cmd
}

func renderSample(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.SampleSummary)
	if !ok || len(s.Samples) == 0 {
		return
	}
	classes := make([]string, 0, len(s.Samples))
	for class := range s.Samples {
		classes = append(classes, class)
	}
	slices.Sort(classes)
	rows := make([][]string, 0, len(classes))
	for _, class := range classes {
		rows = append(rows, []string{class, strings.Join(s.Samples[class], "\n")})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Class", "Frames"}, rows, nil))
}
