// Package vips is an optional libvips backend.  It registers as the decoder
// and encoder for JPEG, PNG and WebP and offers shrink-on-load thumbnails.
package vips

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/image-toolkit/adapters/encoder"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool

	// AutoRotate applies the EXIF orientation on decode.
	AutoRotate bool
}

// Backend is a unified libvips-powered Decoder and Encoder.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP:
		return true
	}
	return false
}

func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}
	defer ref.Close()

	if b.cfg.AutoRotate {
		if err := ref.AutoRotate(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.rotate", err)
		}
	}
	return toSurface(ref, "vips.decode")
}

// ─── Encoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanEncode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP:
		return true
	}
	return false
}

// Encode exports s through libvips.  JPEG output is flattened onto white
// first, like the built-in encoder.
func (b *Backend) Encode(ctx context.Context, s *core.Surface, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode", err)
	}
	if !b.CanEncode(opts.Format) {
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, opts.Format))
	}

	ref, err := fromSurface(s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.load", err)
	}
	defer ref.Close()

	quality := encoder.Percent(opts.Quality)

	switch opts.Format {
	case core.FormatJPEG:
		if ref.HasAlpha() {
			if err := ref.Flatten(&govips.Color{R: 255, G: 255, B: 255}); err != nil {
				return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.flatten", err)
			}
		}
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.StripMetadata = true
		buf, _, err := ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.jpeg", err)
		}
		return buf, nil

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		ep.StripMetadata = true
		buf, _, err := ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.png", err)
		}
		return buf, nil

	default:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.StripMetadata = true
		buf, _, err := ref.ExportWebp(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.webp", err)
		}
		return buf, nil
	}
}

// ─── Resize ───────────────────────────────────────────────────────────────────

// Resize scales s to exactly w x h with the kernel matching r.
func (b *Backend) Resize(s *core.Surface, w, h int, r core.Resampling) (*core.Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategoryDimension, "vips.resize",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, w, h))
	}
	ref, err := fromSurface(s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDimension, "vips.resize.load", err)
	}
	defer ref.Close()

	hscale := float64(w) / float64(s.Width)
	vscale := float64(h) / float64(s.Height)
	if err := ref.ResizeWithVScale(hscale, vscale, kernelFor(r)); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDimension, "vips.resize", err)
	}
	return toSurface(ref, "vips.resize")
}

// ─── ThumbnailStep ────────────────────────────────────────────────────────────

// ThumbnailStep generates a square thumbnail using vips_thumbnail().  It
// operates directly on encoded bytes, so no decode step is needed and JPEG
// sources benefit from shrink-on-load.
type ThumbnailStep struct {
	Size int
}

func (s *ThumbnailStep) Name() string { return "vips.thumbnail" }

func (s *ThumbnailStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	if len(img.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}
	if s.Size <= 0 {
		return nil, apperrors.New(apperrors.CategoryDimension, s.Name(),
			fmt.Errorf("%w: size %d", apperrors.ErrInvalidDimensions, s.Size))
	}
	ref, err := govips.NewThumbnailFromBuffer(img.Data, s.Size, s.Size, govips.InterestingCentre)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, s.Name(), err)
	}
	defer ref.Close()

	surf, err := toSurface(ref, s.Name())
	if err != nil {
		return nil, err
	}
	out := *img
	out.Surface = surf
	out.Meta.Width = surf.Width
	out.Meta.Height = surf.Height
	out.Meta.HasAlpha = surf.HasAlpha()
	out.Meta.AspectRatio = float64(surf.Width) / float64(surf.Height)
	return &out, nil
}

// ─── RegisterBackend ──────────────────────────────────────────────────────────

// RegisterBackend replaces the built-in codecs with libvips for JPEG, PNG
// and WebP.  BMP stays on the built-in codec.
func RegisterBackend(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		reg.RegisterDecoder(f, b)
		reg.RegisterEncoder(f, b)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// fromSurface hands pixels to libvips through an uncompressed PNG.
func fromSurface(s *core.Surface) (*govips.ImageRef, error) {
	if !s.Valid() {
		return nil, apperrors.ErrEmptyInput
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, s.NRGBA()); err != nil {
		return nil, err
	}
	return govips.NewImageFromBuffer(buf.Bytes())
}

func toSurface(ref *govips.ImageRef, op string) (*core.Surface, error) {
	ep := govips.NewPngExportParams()
	ep.Compression = 0
	ep.StripMetadata = true
	buf, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	return core.FromImage(img)
}

func kernelFor(r core.Resampling) govips.Kernel {
	switch r {
	case core.ResamplePixelated:
		return govips.KernelNearest
	case core.ResampleSmooth:
		return govips.KernelLinear
	default:
		return govips.KernelLanczos3
	}
}

// compile-time interface checks
var (
	_ core.Decoder = (*Backend)(nil)
	_ core.Encoder = (*Backend)(nil)
	_ core.Step    = (*ThumbnailStep)(nil)
)
