package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/Skryldev/image-toolkit/compress"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/filter"
	"github.com/Skryldev/image-toolkit/transform"
)

// ── Decode ────────────────────────────────────────────────────────────────────

// DecodeStep decodes the raw bytes in img.Data into a Surface.
type DecodeStep struct {
	Registry core.Registry
}

func (s *DecodeStep) Name() string { return "decode" }

func (s *DecodeStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	if img.Surface != nil {
		return img, nil // already decoded
	}
	surf, format, err := core.DecodeSurface(ctx, s.Registry, img.Data, img.Format)
	if err != nil {
		return nil, err
	}
	out := withSurface(img, surf)
	out.Format = format
	out.Meta.Format = format
	return out, nil
}

// ── Resize ────────────────────────────────────────────────────────────────────

// ResizeStep resizes the surface.  With MaintainAspectRatio a zero axis is
// derived from the other.
type ResizeStep struct {
	Spec transform.Spec
}

func (s *ResizeStep) Name() string { return "resize" }

func (s *ResizeStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	dst, err := transform.Resize(src, s.Spec)
	if err != nil {
		return nil, err
	}
	return withSurface(img, dst), nil
}

// ── Fit ───────────────────────────────────────────────────────────────────────

// FitStep bounds the surface to MaxWidth x MaxHeight (zero = unbounded)
// without changing its aspect ratio.  Smaller images pass through.
type FitStep struct {
	MaxWidth, MaxHeight int
	Resampling          core.Resampling
}

func (s *FitStep) Name() string { return "fit" }

func (s *FitStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	dst, err := transform.Fit(src, s.MaxWidth, s.MaxHeight, s.Resampling)
	if err != nil {
		return nil, err
	}
	if dst == src {
		return img, nil
	}
	return withSurface(img, dst), nil
}

// ── Crop ──────────────────────────────────────────────────────────────────────

// CropStep crops a rectangle from the surface.
type CropStep struct {
	X, Y, Width, Height int
}

func (s *CropStep) Name() string { return "crop" }

func (s *CropStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	dst, err := transform.Crop(src, image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height))
	if err != nil {
		return nil, err
	}
	return withSurface(img, dst), nil
}

// ── Thumbnail ────────────────────────────────────────────────────────────────

// ThumbnailStep resizes so the shorter side equals Size, then centre-crops
// to a square.
type ThumbnailStep struct {
	Size       int
	Resampling core.Resampling
}

func (s *ThumbnailStep) Name() string { return "thumbnail" }

func (s *ThumbnailStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	if s.Size <= 0 {
		return nil, apperrors.New(apperrors.CategoryDimension, s.Name(),
			fmt.Errorf("%w: size %d", apperrors.ErrInvalidDimensions, s.Size))
	}

	spec := transform.Spec{MaintainAspectRatio: true, Resampling: s.Resampling}
	if src.Width < src.Height {
		spec.Width = s.Size
	} else {
		spec.Height = s.Size
	}
	resized, err := transform.Resize(src, spec)
	if err != nil {
		return nil, err
	}

	side := min(s.Size, resized.Width, resized.Height)
	ox := (resized.Width - side) / 2
	oy := (resized.Height - side) / 2
	dst, err := transform.Crop(resized, image.Rect(ox, oy, ox+side, oy+side))
	if err != nil {
		return nil, err
	}
	return withSurface(img, dst), nil
}

// ── Filters ───────────────────────────────────────────────────────────────────

// FilterStep applies brightness, contrast and sharpen in that order to a
// copy of the surface.
type FilterStep struct {
	Spec filter.Spec
}

func (s *FilterStep) Name() string { return "filter" }

func (s *FilterStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	if s.Spec.IsZero() {
		return img, nil
	}
	dst, err := filter.Apply(src.Clone(), s.Spec)
	if err != nil {
		return nil, err
	}
	return withSurface(img, dst), nil
}

// ── Format conversion ─────────────────────────────────────────────────────────

// FormatStep sets the output format for the subsequent encode step.
type FormatStep struct {
	Format core.Format
}

func (s *FormatStep) Name() string { return "format" }

func (s *FormatStep) Execute(_ context.Context, img *core.ImageData) (*core.ImageData, error) {
	if !s.Format.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, s.Name(),
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, s.Format))
	}
	out := *img
	out.Format = s.Format
	out.Meta.Format = s.Format
	return &out, nil
}

// ── Quality ───────────────────────────────────────────────────────────────────

// QualityStep records the encode quality in [0,1] consumed by EncodeStep.
type QualityStep struct {
	Quality float64
}

func (s *QualityStep) Name() string { return "quality" }

func (s *QualityStep) Execute(_ context.Context, img *core.ImageData) (*core.ImageData, error) {
	if s.Quality < 0 || s.Quality > 1 || math.IsNaN(s.Quality) {
		return nil, apperrors.New(apperrors.CategoryEncode, s.Name(),
			fmt.Errorf("%w: got %v", apperrors.ErrInvalidQuality, s.Quality))
	}
	out := *img
	out.Quality = s.Quality
	return &out, nil
}

// ── Encode ────────────────────────────────────────────────────────────────────

// EncodeStep serialises the surface with the encoder registered for
// img.Format at img.Quality.
type EncodeStep struct {
	Registry core.Registry
}

func (s *EncodeStep) Name() string { return "encode" }

func (s *EncodeStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	blob, err := core.EncodeBlob(ctx, s.Registry, src, img.Format, img.Quality)
	if err != nil {
		return nil, err
	}
	out := *img
	out.Data = blob.Data
	out.Meta.SizeBytes = int64(blob.Size())
	return &out, nil
}

// ── Compress ──────────────────────────────────────────────────────────────────

// CompressStep runs the size-targeted search and stores the winning blob.
// Format, Quality and the reported dimensions come from the search result.
type CompressStep struct {
	Registry core.Registry
	Request  compress.Request
	Logger   core.Logger
	Metrics  core.MetricsCollector
}

func (s *CompressStep) Name() string { return "compress" }

func (s *CompressStep) Execute(ctx context.Context, img *core.ImageData) (*core.ImageData, error) {
	src, err := requireSurface(ctx, s.Name(), img)
	if err != nil {
		return nil, err
	}
	searcher := compress.NewSearcher(RegistryEncoder(s.Registry))
	if s.Logger != nil {
		searcher.Logger = s.Logger
	}
	searcher.Metrics = s.Metrics

	res, err := searcher.Search(ctx, src, s.Request)
	if err != nil {
		return nil, err
	}
	out := *img
	out.Data = res.Blob.Data
	out.Format = res.Blob.Format
	out.Quality = res.Quality
	out.Attempts = res.Attempts
	out.Meta.Format = res.Blob.Format
	out.Meta.Width = res.Width
	out.Meta.Height = res.Height
	out.Meta.SizeBytes = int64(res.Blob.Size())
	return &out, nil
}

// RegistryEncoder adapts a registry to compress.EncodeFunc.
func RegistryEncoder(reg core.Registry) compress.EncodeFunc {
	return func(ctx context.Context, s *core.Surface, f core.Format, q float64) (*core.Blob, error) {
		return core.EncodeBlob(ctx, reg, s, f, q)
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func requireSurface(ctx context.Context, step string, img *core.ImageData) (*core.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, step, err)
	}
	if img == nil || !img.Surface.Valid() {
		return nil, apperrors.New(apperrors.CategoryPipeline, step,
			fmt.Errorf("%w: no decoded surface", apperrors.ErrEmptyInput))
	}
	return img.Surface, nil
}

// withSurface returns a copy of img carrying s, with metadata refreshed.
func withSurface(img *core.ImageData, s *core.Surface) *core.ImageData {
	out := *img
	out.Surface = s
	out.Meta.Width = s.Width
	out.Meta.Height = s.Height
	out.Meta.HasAlpha = s.HasAlpha()
	out.Meta.AspectRatio = float64(s.Width) / float64(s.Height)
	return &out
}
