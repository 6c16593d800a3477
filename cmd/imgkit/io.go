package main

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skryldev/image-toolkit/adapters/fetch"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

// input is a source image read from disk or the network.
type input struct {
	name string
	data []byte
}

func addIOFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Input image path or http(s) URL")
	cmd.Flags().StringP("output", "o", "", "Output path (default derived from input)")
	cmd.MarkFlagRequired("input")
}

func readInput(ctx context.Context, cmd *cobra.Command) (*input, error) {
	name, _ := cmd.Flags().GetString("input")
	if fetch.IsURL(name) {
		data, err := app.tk.FetchURL(ctx, name)
		if err != nil {
			return nil, err
		}
		return &input{name: name, data: data}, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "read input", err)
	}
	return &input{name: name, data: data}, nil
}

func decodeInput(ctx context.Context, cmd *cobra.Command) (*input, *core.Surface, error) {
	in, err := readInput(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	s, err := app.tk.Decode(ctx, in.data)
	if err != nil {
		return nil, nil, err
	}
	return in, s, nil
}

// outputName returns -o, or "<input stem>-<suffix>.<ext>" when it is empty.
func outputName(cmd *cobra.Command, in *input, suffix string, f core.Format) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	base := in.name
	if fetch.IsURL(base) {
		if u, err := url.Parse(base); err == nil {
			base = path.Base(u.Path)
		}
	}
	base = filepath.Base(base)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "image"
	}
	return fmt.Sprintf("%s-%s.%s", stem, suffix, f.Extension())
}

func writeOutput(ctx context.Context, cmd *cobra.Command, name string, blob *core.Blob, meta map[string]any) error {
	if force, _ := cmd.Flags().GetBool("force"); !force {
		exists, err := app.store.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.New(apperrors.CategoryStorage, "write output",
				fmt.Errorf("%s exists; pass --force to overwrite", app.store.Path(name)))
		}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["format"] = blob.Format
	meta["size_bytes"] = blob.Size()
	meta["size_kb"] = blob.SizeKB()
	return app.store.Put(ctx, name, bytes.NewReader(blob.Data), meta)
}

// formatFlag parses --format, falling back to fallback when unset.
func formatFlag(cmd *cobra.Command, fallback core.Format) (core.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return fallback, nil
	}
	return core.ParseFormat(name)
}

// qualityFlag returns --quality, or the configured default when unset.
func qualityFlag(cmd *cobra.Command) float64 {
	if !cmd.Flags().Changed("quality") {
		return app.cfg.DefaultQuality
	}
	q, _ := cmd.Flags().GetFloat64("quality")
	return q
}

func addEncodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "", "Output format: png, jpeg, webp, bmp (default: input format)")
	cmd.Flags().Float64P("quality", "q", 0, "Encode quality in [0,1] for jpeg and webp (default from config)")
}

// encodeAndWrite encodes s with the encode flags and writes it.
func encodeAndWrite(ctx context.Context, cmd *cobra.Command, in *input, s *core.Surface, suffix string, meta map[string]any) error {
	srcFormat := core.Format(utils.DetectFormat(in.data))
	if !srcFormat.Valid() {
		srcFormat = core.FormatPNG
	}
	f, err := formatFlag(cmd, srcFormat)
	if err != nil {
		return err
	}
	blob, err := app.tk.Encode(ctx, s, f, qualityFlag(cmd))
	if err != nil {
		return err
	}
	name := outputName(cmd, in, suffix, f)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["source"] = in.name
	meta["width"] = s.Width
	meta["height"] = s.Height
	meta["savings_percent"] = core.SavingsPercent(int64(len(in.data)), int64(blob.Size()))
	if err := writeOutput(ctx, cmd, name, blob, meta); err != nil {
		return err
	}
	printf(cmd, "Wrote %s (%dx%d %s, %d KB)\n", app.store.Path(name), s.Width, s.Height, f, blob.SizeKB())
	return nil
}
