package main

import (
	"github.com/spf13/cobra"
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Cut a rectangle out of an image",
	RunE:  runCrop,
}

func init() {
	addIOFlags(cropCmd)
	addEncodeFlags(cropCmd)
	cropCmd.Flags().Int("x", 0, "Left edge")
	cropCmd.Flags().Int("y", 0, "Top edge")
	cropCmd.Flags().IntP("width", "W", 0, "Width of the rectangle")
	cropCmd.Flags().IntP("height", "H", 0, "Height of the rectangle")
	cropCmd.MarkFlagRequired("width")
	cropCmd.MarkFlagRequired("height")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(cmd *cobra.Command, _ []string) error {
	ctx := app.ctx
	in, s, err := decodeInput(ctx, cmd)
	if err != nil {
		return err
	}
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	w, _ := cmd.Flags().GetInt("width")
	h, _ := cmd.Flags().GetInt("height")

	out, err := app.tk.Crop(s, x, y, w, h)
	if err != nil {
		return err
	}
	return encodeAndWrite(ctx, cmd, in, out, "cropped", nil)
}
