package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-toolkit/core"
)

var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Re-encode an image as close to a target size as possible",
	Long: `Searches output formats and quality levels for the encoding closest to
--target kilobytes, shrinking the image first when the budget per pixel is
very small.`,
	RunE: runCompress,
}

func init() {
	addIOFlags(compressCmd)
	compressCmd.Flags().Float64P("target", "t", 0, "Target size in KB")
	compressCmd.Flags().Int("max-attempts", 0, "Encode attempts allowed (default from config)")
	compressCmd.Flags().StringSlice("formats", nil, "Formats to try in order (default from config)")
	compressCmd.Flags().Bool("trace", false, "Print every attempt")
	compressCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, _ []string) error {
	ctx := app.ctx
	in, s, err := decodeInput(ctx, cmd)
	if err != nil {
		return err
	}

	target, _ := cmd.Flags().GetFloat64("target")
	req := app.tk.CompressRequest(target)
	if n, _ := cmd.Flags().GetInt("max-attempts"); n > 0 {
		req.MaxAttempts = n
	}
	if names, _ := cmd.Flags().GetStringSlice("formats"); len(names) > 0 {
		req.Formats = req.Formats[:0]
		for _, name := range names {
			f, err := core.ParseFormat(name)
			if err != nil {
				return err
			}
			req.Formats = append(req.Formats, f)
		}
	}

	res, err := app.tk.CompressWith(ctx, s, req)
	if err != nil {
		return err
	}

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		for i, a := range res.Trace {
			mark := ""
			if a.Best {
				mark = " *"
			}
			if a.Err != nil {
				printf(cmd, "  %2d  %-4s q=%.2f  %dx%d  error: %v\n", i+1, a.Format, a.Quality, a.Width, a.Height, a.Err)
				continue
			}
			printf(cmd, "  %2d  %-4s q=%.2f  %dx%d  %6d B%s\n", i+1, a.Format, a.Quality, a.Width, a.Height, a.Size, mark)
		}
	}

	name := outputName(cmd, in, "compressed", res.Blob.Format)
	savings := core.SavingsPercent(int64(len(in.data)), int64(res.Blob.Size()))
	meta := map[string]any{
		"source":          in.name,
		"width":           res.Width,
		"height":          res.Height,
		"quality":         res.Quality,
		"target_kb":       res.TargetSizeKB,
		"attempts":        res.Attempts,
		"achieved":        res.Achieved(),
		"savings_percent": savings,
	}
	if err := writeOutput(ctx, cmd, name, res.Blob, meta); err != nil {
		return err
	}

	status := "achieved"
	if !res.Achieved() {
		status = "closest possible"
	}
	printf(cmd, "Wrote %s\n", app.store.Path(name))
	printf(cmd, "  format:   %s (quality %.2f)\n", res.Blob.Format, res.Quality)
	printf(cmd, "  size:     %d KB of %g KB target, %s\n", res.ActualSizeKB, res.TargetSizeKB, status)
	printf(cmd, "  geometry: %dx%d\n", res.Width, res.Height)
	printf(cmd, "  attempts: %d\n", res.Attempts)
	printf(cmd, "  savings:  %.1f%%\n", savings)
	if !res.Achieved() {
		app.log.Warn("target not reached", "target_kb", target, "actual_kb", res.ActualSizeKB,
			"formats", strings.Join(formatNames(req.Formats), ","))
	}
	return nil
}

func formatNames(fs []core.Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
