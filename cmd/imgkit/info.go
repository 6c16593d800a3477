package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-toolkit/adapters/fetch"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

var infoCmd = &cobra.Command{
	Use:   "info <path|url>",
	Short: "Print format and dimensions without decoding pixels",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := app.ctx
	var (
		data []byte
		err  error
	)
	if fetch.IsURL(args[0]) {
		data, err = app.tk.FetchURL(ctx, args[0])
	} else if data, err = os.ReadFile(args[0]); err != nil {
		err = apperrors.Wrap(apperrors.CategoryDecode, "read input", err)
	}
	if err != nil {
		return err
	}

	info, err := app.tk.Inspect(ctx, data)
	if err != nil {
		return err
	}
	printf(cmd, "%s\n", args[0])
	printf(cmd, "  format: %s (%s)\n", info.Format, info.Format.MIMEType())
	printf(cmd, "  size:   %dx%d, aspect %.3f\n", info.Width, info.Height, info.AspectRatio)
	printf(cmd, "  bytes:  %d\n", info.SizeBytes)
	return nil
}
