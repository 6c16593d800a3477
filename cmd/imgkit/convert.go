package main

import (
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Re-encode an image in another format",
	Long: `Decodes the input and encodes it as --format.  Transparent pixels are
composited onto white when the target is jpeg.`,
	RunE: runConvert,
}

func init() {
	addIOFlags(convertCmd)
	addEncodeFlags(convertCmd)
	convertCmd.MarkFlagRequired("format")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, _ []string) error {
	ctx := app.ctx
	in, s, err := decodeInput(ctx, cmd)
	if err != nil {
		return err
	}
	return encodeAndWrite(ctx, cmd, in, s, "converted", nil)
}
