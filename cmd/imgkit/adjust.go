package main

import (
	"github.com/spf13/cobra"

	"github.com/Skryldev/image-toolkit/filter"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Apply brightness, contrast and sharpen filters",
	Long: `Applies filters in a fixed order: brightness, contrast, sharpen.
Brightness and contrast take a delta in [-100, 100]; 0 leaves the image
unchanged.`,
	RunE: runAdjust,
}

func init() {
	addIOFlags(adjustCmd)
	addEncodeFlags(adjustCmd)
	adjustCmd.Flags().Int("brightness", 0, "Brightness delta in [-100, 100]")
	adjustCmd.Flags().Int("contrast", 0, "Contrast delta in [-100, 100]")
	adjustCmd.Flags().Float64("sharpen", 0, "Unsharp strength, 0 disables")
	rootCmd.AddCommand(adjustCmd)
}

func runAdjust(cmd *cobra.Command, _ []string) error {
	var spec filter.Spec
	spec.Brightness, _ = cmd.Flags().GetInt("brightness")
	spec.Contrast, _ = cmd.Flags().GetInt("contrast")
	spec.Sharpen, _ = cmd.Flags().GetFloat64("sharpen")
	// Reject bad deltas before reading the input.
	if err := spec.Validate(); err != nil {
		return err
	}

	ctx := app.ctx
	in, s, err := decodeInput(ctx, cmd)
	if err != nil {
		return err
	}
	out, err := app.tk.ApplyFilters(s, spec)
	if err != nil {
		return err
	}
	return encodeAndWrite(ctx, cmd, in, out, "adjusted", map[string]any{
		"brightness": spec.Brightness,
		"contrast":   spec.Contrast,
		"sharpen":    spec.Sharpen,
	})
}
