package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"annofuse/internal/config"
	"annofuse/internal/rawframe"
	"annofuse/internal/workflow"
)

type rawFlags struct {
	height    int
	width     int
	window    int
	occupancy float64
	border    string
	palette   string
	scale     int
	workers   int
	out       string
	dryRun    bool
}

func (f *rawFlags) registerFrame(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.height, "height", 0, "Frame height in pixels (default raw.height)")
	cmd.Flags().IntVar(&f.width, "width", 0, "Frame width in pixels (default raw.width)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Frames processed in parallel (default raw.workers)")
}

func (f *rawFlags) registerOutput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory (default paths.output_dir)")
	cmd.Flags().StringVar(&f.palette, "palette", "", "PNG palette: mono or polarity (default raw.palette)")
	cmd.Flags().IntVar(&f.scale, "scale", 0, "PNG upscaling factor (default raw.png_scale)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Process frames without writing")
}

// options merges the flags over the [raw] config section.
func (f *rawFlags) options(cfg *config.Config, input string) (workflow.RawOptions, error) {
	opts := workflow.RawOptions{
		InputDir:  input,
		Height:    cfg.Raw.Height,
		Width:     cfg.Raw.Width,
		Window:    cfg.Raw.Window,
		Occupancy: cfg.Raw.Occupancy,
		Scale:     cfg.Raw.PNGScale,
		Workers:   cfg.Raw.Workers,
		DryRun:    f.dryRun,
	}
	if f.height > 0 {
		opts.Height = f.height
	}
	if f.width > 0 {
		opts.Width = f.width
	}
	if f.window > 0 {
		opts.Window = f.window
	}
	if f.occupancy > 0 {
		opts.Occupancy = f.occupancy
	}
	if f.scale > 0 {
		opts.Scale = f.scale
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	borderName := cfg.Raw.Border
	if f.border != "" {
		borderName = f.border
	}
	border, err := rawframe.ParseBorder(borderName)
	if err != nil {
		return opts, err
	}
	opts.Border = border
	name := cfg.Raw.Palette
	if f.palette != "" {
		name = f.palette
	}
	palette, err := rawframe.ParsePalette(name)
	if err != nil {
		return opts, err
	}
	opts.Palette = palette
	if opts.OutDir, err = pickDir(f.out, cfg.Paths.OutputDir); err != nil {
		return opts, fmt.Errorf("resolve output directory: %w", err)
	}
	return opts, nil
}

func (f *rawFlags) lockDir(opts workflow.RawOptions) string {
	if opts.DryRun {
		return ""
	}
	return opts.OutDir
}

func newRawCommand(ctx *commandContext) *cobra.Command {
	rawCmd := &cobra.Command{
		Use:   "raw",
		Short: "Ternary event-frame checks, denoising and previews",
	}
	rawCmd.AddCommand(newRawCheckCommand(ctx))
	rawCmd.AddCommand(newRawDecodeCommand(ctx))
	rawCmd.AddCommand(newRawDenoiseCommand(ctx))
	rawCmd.AddCommand(newRawPNGCommand(ctx))
	return rawCmd
}

func newRawCheckCommand(ctx *commandContext) *cobra.Command {
	var flags rawFlags
	cmd := &cobra.Command{
		Use:   "check DIR",
		Short: "Validate frame sizes and pixel values of every raw file",
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
			opts, err := flags.options(cfg, dirs[0])
			if err != nil {
				return err
			}
			spec := workflow.Spec{Command: "raw check", Args: args, ReadDirs: dirs}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.RawCheck(runCtx, job, opts)
			}, renderRawSummary)
		},
	}
	flags.registerFrame(cmd)
	return cmd
}

func newRawDecodeCommand(ctx *commandContext) *cobra.Command {
	var flags rawFlags
	var pngPath string
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode one raw frame and report its sample width and value counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			paths, err := expandArgs(args)
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg, filepath.Dir(paths[0]))
			if err != nil {
				return err
			}
			decoded, err := workflow.DecodeRaw(paths[0], opts.Height, opts.Width)
			if err != nil {
				return err
			}
			hist := decoded.Frame.Histogram()
			if pngPath != "" {
				target, err := config.ExpandPath(pngPath)
				if err != nil {
					return err
				}
				if err := rawframe.WritePNG(target, decoded.Frame, opts.Palette, opts.Scale); err != nil {
					return err
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"path":            paths[0],
					"height":          decoded.Frame.Height,
					"width":           decoded.Frame.Width,
					"bytes_per_pixel": decoded.BytesPerPixel,
					"histogram":       hist,
					"png":             pngPath,
				})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("File", statusInfo, paths[0], colorize))
			fmt.Fprintln(out, renderStatusLine("Size", statusInfo, fmt.Sprintf("%dx%d", decoded.Frame.Width, decoded.Frame.Height), colorize))
			fmt.Fprintln(out, renderStatusLine("Bytes per pixel", statusInfo, fmt.Sprint(decoded.BytesPerPixel), colorize))
			kind, msg := statusOK, "ternary"
			if hist[rawframe.NumClasses] > 0 {
				kind, msg = statusError, fmt.Sprintf("%s illegal pixel values", formatInt(hist[rawframe.NumClasses]))
			}
			fmt.Fprintln(out, renderStatusLine("Values", kind, msg, colorize))
			fmt.Fprintln(out, renderHistogram(hist))
			if pngPath != "" {
				fmt.Fprintf(out, "Wrote preview to %s\n", pngPath)
			}
			return nil
		},
	}
	flags.registerFrame(cmd)
	cmd.Flags().StringVar(&pngPath, "png", "", "Also write a PNG preview to this path")
	cmd.Flags().StringVar(&flags.palette, "palette", "", "PNG palette: mono or polarity (default raw.palette)")
	cmd.Flags().IntVar(&flags.scale, "scale", 0, "PNG upscaling factor (default raw.png_scale)")
	return cmd
}

func newRawDenoiseCommand(ctx *commandContext) *cobra.Command {
	var flags rawFlags
	var writeRaw, writePNG bool
	cmd := &cobra.Command{
		Use:   "denoise DIR",
		Short: "Apply the per-class median filter to every raw frame",
		Long: "Denoise keeps a pixel's class when the class occupies enough of the window around it.\n" +
			"Cleaned frames mirror DIR's layout under --out as raw files, PNG previews, or both.",
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
			opts, err := flags.options(cfg, dirs[0])
			if err != nil {
				return err
			}
			opts.WriteRaw = writeRaw
			opts.WritePNG = writePNG
			spec := workflow.Spec{Command: "raw denoise", Args: args, ReadDirs: dirs, LockDir: flags.lockDir(opts)}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.RawDenoise(runCtx, job, opts)
			}, renderRawSummary)
		},
	}
	flags.registerFrame(cmd)
	flags.registerOutput(cmd)
	cmd.Flags().IntVar(&flags.window, "window", 0, "Filter window size in pixels (default raw.window)")
	cmd.Flags().Float64Var(&flags.occupancy, "occupancy", 0, "Fraction of the window a class must fill (default majority)")
	cmd.Flags().StringVar(&flags.border, "border", "", "Frame edge handling: reflect or constant (default raw.border)")
	cmd.Flags().BoolVar(&writeRaw, "raw", false, "Write cleaned raw frames (default when --png is not set)")
	cmd.Flags().BoolVar(&writePNG, "png", false, "Write PNG previews of the cleaned frames")
	return cmd
}

func newRawPNGCommand(ctx *commandContext) *cobra.Command {
	var flags rawFlags
	cmd := &cobra.Command{
		Use:   "png DIR",
		Short: "Render every raw frame as a PNG preview",
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
			opts, err := flags.options(cfg, dirs[0])
			if err != nil {
				return err
			}
			spec := workflow.Spec{Command: "raw png", Args: args, ReadDirs: dirs, LockDir: flags.lockDir(opts)}
			return ctx.runBatch(cmd, spec, func(runCtx context.Context, job *workflow.Job) (any, error) {
				return workflow.RawPNG(runCtx, job, opts)
			}, nil)
		},
	}
	flags.registerFrame(cmd)
	flags.registerOutput(cmd)
	return cmd
}

func renderRawSummary(cmd *cobra.Command, summary any) {
	s, ok := summary.(workflow.RawSummary)
	if !ok || s.FramesProcessed == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderHistogram(s.Histogram))
}

func renderHistogram(hist [rawframe.NumClasses + 1]int) string {
	labels := []string{"0 (none)", "1 (positive)", "2 (negative)", "illegal"}
	rows := make([][]string, 0, len(hist))
	for i, n := range hist {
		rows = append(rows, []string{labels[i], formatInt(n)})
	}
	return renderTable([]string{"Value", "Pixels"}, rows, []columnAlignment{alignLeft, alignRight})
}
