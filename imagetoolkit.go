// Package imagetoolkit is the entry point of the image toolkit: decoding,
// resizing, filtering, encoding and size-targeted compression of raster
// images, plus a step pipeline that strings them together.
package imagetoolkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/Skryldev/image-toolkit/adapters/decoder"
	"github.com/Skryldev/image-toolkit/adapters/encoder"
	"github.com/Skryldev/image-toolkit/adapters/fetch"
	"github.com/Skryldev/image-toolkit/compress"
	"github.com/Skryldev/image-toolkit/config"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/filter"
	"github.com/Skryldev/image-toolkit/hooks"
	"github.com/Skryldev/image-toolkit/pipeline"
	"github.com/Skryldev/image-toolkit/transform"
	"github.com/Skryldev/image-toolkit/utils"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
	BMP  = core.FormatBMP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Toolkit is the primary entry point.
type Toolkit struct {
	inner      *core.Processor
	reg        *core.DefaultRegistry
	fetcher    *fetch.HTTPFetcher
	metrics    core.MetricsCollector
	resampling core.Resampling
}

// New creates a fully wired Toolkit with the built-in PNG, JPEG, WebP and
// BMP codecs registered.
func New(cfg config.Config) *Toolkit {
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatBMP, decoder.NewBMP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG())
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP())
	reg.RegisterEncoder(core.FormatBMP, encoder.NewBMP())

	r, err := core.ParseResampling(cfg.Resampling)
	if err != nil {
		r = core.ResampleHighQuality
	}
	return &Toolkit{
		inner:      core.New(cfg, reg),
		reg:        reg,
		fetcher:    fetch.NewHTTPFetcher(cfg),
		resampling: r,
	}
}

// SetLogger attaches a structured logger.
func (t *Toolkit) SetLogger(l core.Logger) {
	t.inner.SetLogger(l)
	t.fetcher.Logger = t.inner.Logger()
}

// Logger returns the attached logger (never nil).
func (t *Toolkit) Logger() core.Logger { return t.inner.Logger() }

// SetMetrics attaches a metrics collector.  Pipeline steps report through a
// MetricsHook; compression searches report directly.
func (t *Toolkit) SetMetrics(m core.MetricsCollector) {
	t.metrics = m
	t.inner.SetMetrics(m)
	if m != nil {
		t.inner.AddHook(hooks.NewMetricsHook(m))
	}
}

// AddHook registers an observer for pipeline step events.
func (t *Toolkit) AddHook(h core.Hook) { t.inner.AddHook(h) }

// RegisterDecoder registers a custom decoder for the given format.
func (t *Toolkit) RegisterDecoder(f core.Format, d core.Decoder) { t.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (t *Toolkit) RegisterEncoder(f core.Format, e core.Encoder) { t.reg.RegisterEncoder(f, e) }

// Registry exposes the codec registry.
func (t *Toolkit) Registry() *core.DefaultRegistry { return t.reg }

// Config returns the configuration the toolkit was built with.
func (t *Toolkit) Config() config.Config { return t.inner.Config() }

// Core exposes the underlying core.Processor for advanced use.
func (t *Toolkit) Core() *core.Processor { return t.inner }

// Stats returns lightweight processing statistics.
func (t *Toolkit) Stats() (processed, errors int64) {
	return t.inner.ProcessedCount(), t.inner.ErrorCount()
}

// ── Raster buffer ─────────────────────────────────────────────────────────────

// Decode sniffs the format of data and decodes it into a Surface.
func (t *Toolkit) Decode(ctx context.Context, data []byte) (*core.Surface, error) {
	s, _, err := core.DecodeSurface(ctx, t.reg, data, core.FormatUnknown)
	return s, err
}

// DecodeReader drains r, honouring MaxImageBytes, and decodes the bytes.
func (t *Toolkit) DecodeReader(ctx context.Context, r io.Reader) (*core.Surface, error) {
	cfg := t.inner.Config()
	data, err := utils.ReadAll(ctx, r, cfg.MaxImageBytes, cfg.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrLimitExceeded) {
			err = fmt.Errorf("%w: input exceeds %d bytes", apperrors.ErrImageTooLarge, cfg.MaxImageBytes)
		}
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "decode.reader", err)
	}
	return t.Decode(ctx, data)
}

// DecodeURL fetches rawURL and decodes the body.  Fetch failures are decode
// errors whose chain also carries the fetch category.
func (t *Toolkit) DecodeURL(ctx context.Context, rawURL string) (*core.Surface, error) {
	data, err := t.FetchURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return t.Decode(ctx, data)
}

// FetchURL downloads rawURL without decoding it.
func (t *Toolkit) FetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := t.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "decode.url", err)
	}
	return resp.Data, nil
}

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Format      core.Format
	Width       int
	Height      int
	SizeBytes   int64
	AspectRatio float64
}

// Inspect reads the header of data.
func (t *Toolkit) Inspect(_ context.Context, data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "inspect", apperrors.ErrEmptyInput)
	}
	format := core.Format(utils.DetectFormat(data))
	if !format.Valid() {
		return nil, apperrors.New(apperrors.CategoryDecode, "inspect", apperrors.ErrUnsupportedFormat)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "inspect", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "inspect",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, cfg.Width, cfg.Height))
	}
	return &Info{
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		SizeBytes:   int64(len(data)),
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
	}, nil
}

// NewSurface allocates a transparent width x height surface.
func (t *Toolkit) NewSurface(width, height int) (*core.Surface, error) {
	return core.NewSurface(width, height)
}

// ── Geometry ──────────────────────────────────────────────────────────────────

// Resize returns a resized copy of src.  An empty Resampling uses the
// configured default.
func (t *Toolkit) Resize(src *core.Surface, spec transform.Spec) (*core.Surface, error) {
	if spec.Resampling == "" {
		spec.Resampling = t.resampling
	}
	return transform.Resize(src, spec)
}

// Crop copies the given rectangle out of src.
func (t *Toolkit) Crop(src *core.Surface, x, y, width, height int) (*core.Surface, error) {
	return transform.Crop(src, image.Rect(x, y, x+width, y+height))
}

// Fit bounds src by maxW x maxH keeping the aspect ratio; zero is unbounded.
func (t *Toolkit) Fit(src *core.Surface, maxW, maxH int) (*core.Surface, error) {
	return transform.Fit(src, maxW, maxH, t.resampling)
}

// ── Filters ───────────────────────────────────────────────────────────────────
// These modify src in place and return it.

func (t *Toolkit) Sharpen(src *core.Surface, strength float64) (*core.Surface, error) {
	return filter.Sharpen(src, strength)
}

func (t *Toolkit) AdjustBrightness(src *core.Surface, delta int) (*core.Surface, error) {
	return filter.AdjustBrightness(src, delta)
}

func (t *Toolkit) AdjustContrast(src *core.Surface, delta int) (*core.Surface, error) {
	return filter.AdjustContrast(src, delta)
}

func (t *Toolkit) ApplyFilters(src *core.Surface, spec filter.Spec) (*core.Surface, error) {
	return filter.Apply(src, spec)
}

// ── Encoding ──────────────────────────────────────────────────────────────────

// Encode serialises s as format at quality in [0,1].
func (t *Toolkit) Encode(ctx context.Context, s *core.Surface, format core.Format, quality float64) (*core.Blob, error) {
	return core.EncodeBlob(ctx, t.reg, s, format, quality)
}

// Convert re-encodes s as format at the configured default quality.
func (t *Toolkit) Convert(ctx context.Context, s *core.Surface, format core.Format) (*core.Blob, error) {
	return t.Encode(ctx, s, format, t.inner.Config().DefaultQuality)
}

// CompressRequest builds a search request for targetKB from the
// compression section of the configuration.
func (t *Toolkit) CompressRequest(targetKB float64) compress.Request {
	cc := t.inner.Config().Compression
	req := compress.Request{
		TargetKB:            targetKB,
		MaxAttempts:         cc.MaxAttempts,
		Qualities:           append([]float64(nil), cc.Qualities...),
		Resampling:          t.resampling,
		DownscaleThreshold:  cc.DownscaleThreshold,
		DownscaleCorrection: cc.DownscaleCorrection,
	}
	for _, name := range cc.Formats {
		f, err := core.ParseFormat(name)
		if err != nil {
			f = core.Format(name) // rejected by Request.Validate
		}
		req.Formats = append(req.Formats, f)
	}
	return req
}

// Compress searches for the encoding of s closest to targetKB.
func (t *Toolkit) Compress(ctx context.Context, s *core.Surface, targetKB float64) (*compress.Result, error) {
	return t.CompressWith(ctx, s, t.CompressRequest(targetKB))
}

// CompressWith runs a search with an explicit request.
func (t *Toolkit) CompressWith(ctx context.Context, s *core.Surface, req compress.Request) (*compress.Result, error) {
	searcher := compress.NewSearcher(pipeline.RegistryEncoder(t.reg))
	searcher.Logger = t.inner.Logger()
	searcher.Metrics = t.metrics
	return searcher.Search(ctx, s, req)
}

// ── Pipelines ─────────────────────────────────────────────────────────────────

// Process reads src and runs steps in order.
func (t *Toolkit) Process(ctx context.Context, src core.Source, steps ...core.Step) (*core.ProcessingResult, error) {
	return t.inner.Process(ctx, src, steps...)
}

// NewPipeline creates a reusable, standalone pipeline carrying the
// toolkit's hooks.
func (t *Toolkit) NewPipeline(steps ...core.Step) *pipeline.Pipeline {
	pl := pipeline.New()
	for _, h := range t.inner.Hooks() {
		pl.AddHook(h)
	}
	return pl.Use(steps...)
}

// ── Source constructors ────────────────────────────────────────────────────────

// FromReader creates a Source from an io.Reader.
func FromReader(r io.Reader) core.Source { return core.Source{Reader: r, Size: -1} }

// FromBytes creates a Source over an in-memory buffer.
func FromBytes(b []byte) core.Source {
	return core.Source{Reader: bytes.NewReader(b), Size: int64(len(b))}
}

// FromReaderWithMeta creates a Source with known size and content-type hints.
func FromReaderWithMeta(r io.Reader, size int64, contentType, name string) core.Source {
	return core.Source{Reader: r, Size: size, ContentType: contentType, Name: name}
}

// ── Step constructors ─────────────────────────────────────────────────────────

// DecodeStep returns a decode step bound to the toolkit's registry.
func (t *Toolkit) DecodeStep() core.Step { return &pipeline.DecodeStep{Registry: t.reg} }

// EncodeStep returns an encode step bound to the toolkit's registry.
func (t *Toolkit) EncodeStep() core.Step { return &pipeline.EncodeStep{Registry: t.reg} }

// CompressStep returns a size-targeted compression step for targetKB.
func (t *Toolkit) CompressStep(targetKB float64) core.Step {
	return &pipeline.CompressStep{
		Registry: t.reg,
		Request:  t.CompressRequest(targetKB),
		Logger:   t.inner.Logger(),
		Metrics:  t.metrics,
	}
}

// Resize returns a resize step.  With keepAspect, pass 0 for one axis to
// derive it from the other.
func Resize(width, height int, keepAspect bool) core.Step {
	return &pipeline.ResizeStep{Spec: transform.Spec{
		Width: width, Height: height, MaintainAspectRatio: keepAspect,
		Resampling: core.ResampleHighQuality,
	}}
}

// ResizeWith returns a resize step for an explicit spec.
func ResizeWith(spec transform.Spec) core.Step { return &pipeline.ResizeStep{Spec: spec} }

// Crop returns a crop step.
func Crop(x, y, width, height int) core.Step {
	return &pipeline.CropStep{X: x, Y: y, Width: width, Height: height}
}

// Fit returns a step bounding the image to maxW x maxH.
func Fit(maxW, maxH int) core.Step {
	return &pipeline.FitStep{MaxWidth: maxW, MaxHeight: maxH, Resampling: core.ResampleHighQuality}
}

// Thumbnail returns a square thumbnail step.
func Thumbnail(size int) core.Step {
	return &pipeline.ThumbnailStep{Size: size, Resampling: core.ResampleHighQuality}
}

// Filters returns a brightness/contrast/sharpen step.
func Filters(spec filter.Spec) core.Step { return &pipeline.FilterStep{Spec: spec} }

// ConvertFormat instructs subsequent steps to use the given output format.
func ConvertFormat(f core.Format) core.Step { return &pipeline.FormatStep{Format: f} }

// Quality stores the desired encode quality in [0,1] for the next encode step.
func Quality(q float64) core.Step { return &pipeline.QualityStep{Quality: q} }
