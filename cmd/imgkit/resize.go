package main

import (
	"github.com/spf13/cobra"

	"github.com/Skryldev/image-toolkit/core"
	"github.com/Skryldev/image-toolkit/transform"
)

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Resize an image",
	Long: `Resizes to --width x --height.  With --keep-aspect (the default) the
side that would distort the image is recomputed from the other, and either
side may be left at 0.`,
	RunE: runResize,
}

func init() {
	addIOFlags(resizeCmd)
	addEncodeFlags(resizeCmd)
	resizeCmd.Flags().IntP("width", "W", 0, "Target width in pixels")
	resizeCmd.Flags().IntP("height", "H", 0, "Target height in pixels")
	resizeCmd.Flags().Bool("keep-aspect", true, "Keep the source aspect ratio")
	resizeCmd.Flags().StringP("resampling", "r", "", "pixelated, smooth or high-quality (default from config)")
	v.BindPFlag("resampling", resizeCmd.Flags().Lookup("resampling"))
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, _ []string) error {
	ctx := app.ctx
	in, s, err := decodeInput(ctx, cmd)
	if err != nil {
		return err
	}

	w, _ := cmd.Flags().GetInt("width")
	h, _ := cmd.Flags().GetInt("height")
	keep, _ := cmd.Flags().GetBool("keep-aspect")
	spec := transform.Spec{Width: w, Height: h, MaintainAspectRatio: keep}
	if name, _ := cmd.Flags().GetString("resampling"); name != "" {
		r, err := core.ParseResampling(name)
		if err != nil {
			return err
		}
		spec.Resampling = r
	}

	out, err := app.tk.Resize(s, spec)
	if err != nil {
		return err
	}
	return encodeAndWrite(ctx, cmd, in, out, "resized", map[string]any{
		"resampling": spec.Resampling,
	})
}
