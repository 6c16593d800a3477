package core

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// Format identifies an image codec.  The set is closed: anything outside it
// is rejected by ParseFormat.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatUnknown Format = "unknown"
)

// Formats lists every supported format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatWebP, FormatBMP}

// ParseFormat maps a name, extension or MIME type to a Format.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "image/")
	v = strings.TrimPrefix(v, ".")
	switch v {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "bmp", "x-ms-bmp":
		return FormatBMP, nil
	}
	return FormatUnknown, apperrors.New(apperrors.CategoryEncode, "format.parse",
		fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, s))
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatWebP, FormatBMP:
		return true
	}
	return false
}

// Lossless reports whether the encoder ignores the quality factor.
func (f Format) Lossless() bool { return f == FormatPNG || f == FormatBMP }

// MIMEType returns the canonical MIME type.
func (f Format) MIMEType() string {
	if !f.Valid() {
		return "application/octet-stream"
	}
	return "image/" + string(f)
}

// Extension returns the usual file extension without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Resampling selects the interpolation filter used when resizing.
type Resampling string

const (
	// ResamplePixelated is nearest-neighbour: hard edges, no smoothing.
	ResamplePixelated Resampling = "pixelated"
	// ResampleSmooth is bilinear.
	ResampleSmooth Resampling = "smooth"
	// ResampleHighQuality is a 3-lobe Lanczos filter.
	ResampleHighQuality Resampling = "high-quality"
)

// ParseResampling maps a name to a Resampling tier.
func ParseResampling(s string) (Resampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pixelated", "nearest":
		return ResamplePixelated, nil
	case "smooth", "bilinear", "medium":
		return ResampleSmooth, nil
	case "high-quality", "high", "hq", "lanczos":
		return ResampleHighQuality, nil
	}
	return "", apperrors.New(apperrors.CategoryInput, "resampling.parse",
		fmt.Errorf("%w: resampling %q", apperrors.ErrInvalidParameter, s))
}

// Blob is an encoded, format-tagged byte sequence.  Produced only by the
// encoder bridge and never mutated afterwards.
type Blob struct {
	Data   []byte
	Format Format
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int { return len(b.Data) }

// SizeKB returns the blob size in kilobytes rounded to the nearest integer.
func (b *Blob) SizeKB() int { return int(math.Round(float64(len(b.Data)) / 1024)) }

// SavingsPercent returns (original-processed)/original*100, or 0 when the
// original size is unknown.
func SavingsPercent(originalBytes, processedBytes int64) float64 {
	if originalBytes <= 0 {
		return 0
	}
	return float64(originalBytes-processedBytes) / float64(originalBytes) * 100
}

// Metadata holds image information gathered without touching pixels.
type Metadata struct {
	Width       int
	Height      int
	Format      Format
	HasAlpha    bool
	SizeBytes   int64
	AspectRatio float64
}

// ImageData is the value passed between pipeline steps.  Data holds encoded
// bytes; Surface holds the decoded pixels once a decode step has run.
type ImageData struct {
	Data    []byte
	Format  Format
	Surface *Surface
	Meta    Metadata

	// Quality is the encode quality in [0,1] picked up by the encode step.
	Quality float64

	// Attempts is set by the compression step.
	Attempts int

	// OriginalSize is the size of the raw input, for savings reporting.
	OriginalSize int64
}

// Savings returns the percentage saved by the current encoded data relative
// to the original input.
func (img *ImageData) Savings() float64 {
	return SavingsPercent(img.OriginalSize, int64(len(img.Data)))
}

// ProcessingResult is returned to the caller after the full pipeline completes.
type ProcessingResult struct {
	Primary *ImageData

	RunID          string
	ProcessingTime time.Duration
	StepTimings    map[string]time.Duration
}

// Source abstracts where raw bytes come from.
type Source struct {
	Reader      io.Reader
	ContentType string // optional hint
	Name        string // optional logical name / filename
	Size        int64  // -1 if unknown
}

// Step is the fundamental pipeline building block.  A step owns the
// ImageData it receives for the duration of the call.
type Step interface {
	Name() string
	Execute(ctx context.Context, img *ImageData) (*ImageData, error)
}

// Hook is an optional observer invoked around pipeline steps.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, img *ImageData)
	AfterStep(ctx context.Context, stepName string, img *ImageData, d time.Duration, err error)
}
