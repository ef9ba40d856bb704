package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"annofuse/internal/config"
	"annofuse/internal/taxonomy"
	"annofuse/internal/workflow"
)

// labelFlags are shared by the commands that rewrite a label tree.
type labelFlags struct {
	out    string
	dryRun bool
}

func (f *labelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write results to this directory instead of rewriting in place")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would change without writing")
}

// resolve expands the output directory and picks the directory to lock.
func (f *labelFlags) resolve(inPlace string) (out, lockDir string, err error) {
	if strings.TrimSpace(f.out) != "" {
		if out, err = config.ExpandPath(strings.TrimSpace(f.out)); err != nil {
			return "", "", fmt.Errorf("resolve output directory: %w", err)
		}
	}
	if f.dryRun {
		return out, "", nil
	}
	if out != "" {
		return out, out, nil
	}
	return "", inPlace, nil
}

func expandArgs(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, arg := range args {
		path, err := config.ExpandPath(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}
		out[i] = path
	}
	return out, nil
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags labelFlags
	var threshold float64
	var classes, classNames []string
	var width, height int

	cmd := &cobra.Command{
		Use:   "merge PRIMARY SECONDARY",
		Short: "Merge supplementary labels into a primary VOC label tree",
		Long: "Merge appends every secondary box that does not overlap a primary box above the IOU\n" +
			"threshold. Secondary labels may be VOC XML or YOLO text; YOLO boxes are resolved with the\n" +
			"configured image size and class names.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			out, lockDir, err := flags.resolve(dirs[0])
			if err != nil {
				return err
			}
			opts := workflow.MergeOptions{
				PrimaryDir:   dirs[0],
				SecondaryDir: dirs[1],
				OutDir:       out,
				Threshold:    cfg.Merge.IOUThreshold,
				Classes:      cfg.Merge.Classes,
				Geometry: workflow.Geometry{
					Width:      cfg.Merge.ImageWidth,
					Height:     cfg.Merge.ImageHeight,
					ClassNames: cfg.Merge.ClassNames,
				},
				DryRun: flags.dryRun,
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			if cmd.Flags().Changed("class") {
				opts.Classes = classes
			}
			if cmd.Flags().Changed("class-names") {
				opts.Geometry.ClassNames = classNames
			}
			if width > 0 {
				opts.Geometry.Width = width
			}
			if height > 0 {
				opts.Geometry.Height = height
			}
			spec := workflow.Spec{Command: "merge", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Merge(runCtx, job, opts)
			}, nil)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "IOU above which a secondary box is a duplicate (default from config)")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Merge only these secondary classes; empty merges all (default from config)")
	cmd.Flags().StringSliceVar(&classNames, "class-names", nil, "YOLO class names in index order (default from config)")
	cmd.Flags().IntVar(&width, "width", 0, "Image width for YOLO labels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height for YOLO labels (default from config)")
	return cmd
}

func newBroadcastCommand(ctx *commandContext) *cobra.Command {
	var flags labelFlags
	var threshold float64
	var classes []string

	cmd := &cobra.Command{
		Use:   "broadcast DIR REFERENCE",
		Short: "Merge the boxes of one reference label into every label of a tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			paths, err := expandArgs(args)
			if err != nil {
				return err
			}
			out, lockDir, err := flags.resolve(paths[0])
			if err != nil {
				return err
			}
			opts := workflow.BroadcastOptions{
				Dir:       paths[0],
				Reference: paths[1],
				OutDir:    out,
				Threshold: cfg.Merge.IOUThreshold,
				Classes:   cfg.Merge.Classes,
				DryRun:    flags.dryRun,
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			if cmd.Flags().Changed("class") {
				opts.Classes = classes
			}
			spec := workflow.Spec{Command: "broadcast", Args: args, ReadDirs: paths[:1], LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Broadcast(runCtx, job, opts)
			}, nil)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "IOU above which a reference box is a duplicate (default from config)")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Broadcast only these reference classes (default from config)")
	return cmd
}

func newRemapCommand(ctx *commandContext) *cobra.Command {
	var flags labelFlags
	var pairs []string
	var mappingFile, windowStart, windowEnd string
	var keepUnmapped, foldCase, allDates bool

	cmd := &cobra.Command{
		Use:   "remap DIR",
		Short: "Rename classes through a mapping, limited to captures inside the date window",
		Long: "Remap rewrites class names under a mapping. Boxes whose class has no mapping are dropped\n" +
			"unless --keep-unmapped is set. Captures outside the date window are left untouched;\n" +
			"--all-dates applies the mapping to every capture.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			out, lockDir, err := flags.resolve(dirs[0])
			if err != nil {
				return err
			}
			mapping, err := resolveMapping(cfg, mappingFile, pairs)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep-unmapped") {
				keepUnmapped = cfg.Taxonomy.KeepUnmapped
			}
			if !cmd.Flags().Changed("fold-case") {
				foldCase = cfg.Taxonomy.FoldCase
			}
			var window taxonomy.DateWindow
			if !allDates {
				if windowStart == "" && windowEnd == "" {
					windowStart, windowEnd = cfg.Taxonomy.WindowStart, cfg.Taxonomy.WindowEnd
				}
				if window, err = taxonomy.ParseDateWindow(windowStart, windowEnd); err != nil {
					return err
				}
			}
			opts := workflow.RemapOptions{
				Dir:          dirs[0],
				OutDir:       out,
				Mapping:      mapping,
				KeepUnmapped: keepUnmapped,
				FoldCase:     foldCase,
				Window:       window,
				DryRun:       flags.dryRun,
			}
			spec := workflow.Spec{Command: "remap", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Remap(runCtx, job, opts)
			}, renderRelabel)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&pairs, "map", "m", nil, "Mapping entry FROM=TO; repeatable, overrides the configured mapping")
	cmd.Flags().StringVar(&mappingFile, "mapping-file", "", "YAML file of FROM: TO class pairs (default taxonomy.mapping_file)")
	cmd.Flags().BoolVar(&keepUnmapped, "keep-unmapped", false, "Keep boxes whose class has no mapping")
	cmd.Flags().BoolVar(&foldCase, "fold-case", false, "Match classes case-insensitively")
	cmd.Flags().StringVar(&windowStart, "window-start", "", "First capture date of the window, YYYYMMDD")
	cmd.Flags().StringVar(&windowEnd, "window-end", "", "Last capture date of the window, YYYYMMDD")
	cmd.Flags().BoolVar(&allDates, "all-dates", false, "Ignore the date window and remap every capture")
	return cmd
}

// resolveMapping layers --map pairs over the mapping file over the
// configured mapping.
func resolveMapping(cfg *config.Config, mappingFile string, pairs []string) (taxonomy.Mapping, error) {
	mapping := make(taxonomy.Mapping, len(cfg.Taxonomy.Mapping))
	for from, to := range cfg.Taxonomy.Mapping {
		mapping[from] = to
	}
	path := cfg.Taxonomy.MappingFile
	if strings.TrimSpace(mappingFile) != "" {
		expanded, err := config.ExpandPath(strings.TrimSpace(mappingFile))
		if err != nil {
			return nil, fmt.Errorf("resolve mapping file: %w", err)
		}
		path = expanded
	}
	if path != "" {
		fromFile, err := taxonomy.LoadMappingFile(path)
		if err != nil {
			return nil, err
		}
		for from, to := range fromFile {
			mapping[from] = to
		}
	}
	if len(pairs) > 0 {
		fromFlags, err := taxonomy.ParsePairs(pairs)
		if err != nil {
			return nil, err
		}
		for from, to := range fromFlags {
			mapping[from] = to
		}
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("no class mapping configured; pass --map FROM=TO or set taxonomy.mapping")
	}
	return mapping, nil
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var flags labelFlags
	var captureID, from, to string

	cmd := &cobra.Command{
		Use:   "rename DIR",
		Short: "Rename one class within a single capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			out, lockDir, err := flags.resolve(dirs[0])
			if err != nil {
				return err
			}
			opts := workflow.RenameOptions{
				Dir:       dirs[0],
				OutDir:    out,
				CaptureID: captureID,
				From:      from,
				To:        to,
				DryRun:    flags.dryRun,
			}
			spec := workflow.Spec{Command: "rename", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Rename(runCtx, job, opts)
			}, nil)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&captureID, "capture", "", "Capture id whose labels change")
	cmd.Flags().StringVar(&from, "from", "", "Class to rename")
	cmd.Flags().StringVar(&to, "to", "", "New class name")
	_ = cmd.MarkFlagRequired("capture")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newKeepClassesCommand(ctx *commandContext) *cobra.Command {
	var flags labelFlags
	var classes []string

	cmd := &cobra.Command{
		Use:   "keep-classes DIR",
		Short: "Drop every box whose class is not in the keep list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			out, lockDir, err := flags.resolve(dirs[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("class") {
				classes = cfg.Taxonomy.KeepClasses
			}
			opts := workflow.KeepOptions{Dir: dirs[0], OutDir: out, Classes: classes, DryRun: flags.dryRun}
			spec := workflow.Spec{Command: "keep-classes", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.KeepClasses(runCtx, job, opts)
			}, renderRelabel)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Classes to keep (default taxonomy.keep_classes)")
	return cmd
}

func newOverlayCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var out, class string
	var width, height int

	cmd := &cobra.Command{
		Use:   "overlay LABELS DETECTIONS",
		Short: "Add detector boxes to the label tree as a dedicated class",
		Long: "Overlay reads detector output laid out as DETECTIONS/<capture>/<channel>/<frame>.txt.\n" +
			"Frame camera boxes are appended to LABELS/<capture>/<frame>.xml under the overlay class;\n" +
			"event camera boxes are copied with their class index set to 0. Results are written to --out.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := expandArgs(args)
			if err != nil {
				return err
			}
			outDir, err := pickDir(out, cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			if outDir == "" {
				return fmt.Errorf("overlay needs --out or paths.output_dir")
			}
			opts := workflow.OverlayOptions{
				LabelDir:     dirs[0],
				DetectionDir: dirs[1],
				OutDir:       outDir,
				Class:        cfg.Overlay.Class,
				Width:        cfg.Overlay.ImageWidth,
				Height:       cfg.Overlay.ImageHeight,
				DryRun:       dryRun,
			}
			if class != "" {
				opts.Class = class
			}
			if width > 0 {
				opts.Width = width
			}
			if height > 0 {
				opts.Height = height
			}
			lockDir := outDir
			if dryRun {
				lockDir = ""
			}
			spec := workflow.Spec{Command: "overlay", Args: args, ReadDirs: dirs, LockDir: lockDir}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.Overlay(runCtx, job, opts)
			}, nil)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default paths.output_dir)")
	cmd.Flags().StringVar(&class, "class", "", "Class name for frame camera detections (default overlay.class)")
	cmd.Flags().IntVar(&width, "width", 0, "Frame image width (default overlay.image_width)")
	cmd.Flags().IntVar(&height, "height", 0, "Frame image height (default overlay.image_height)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func renderRelabel(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.RelabelSummary)
	if !ok || len(s.DroppedClasses) == 0 {
		return
	}
	classes := make([]string, 0, len(s.DroppedClasses))
	for class := range s.DroppedClasses {
		classes = append(classes, class)
	}
	slices.Sort(classes)
	rows := make([][]string, 0, len(classes))
	for _, class := range classes {
		rows = append(rows, []string{class, formatInt(s.DroppedClasses[class])})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Dropped class", "Boxes"}, rows, []columnAlignment{alignLeft, alignRight}))
}
