package compress

import (
	"fmt"
	"math"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

const (
	// DefaultMaxAttempts bounds the number of encodes per search.
	DefaultMaxAttempts = 8

	// AcceptBand is the lower edge of the "close enough" window: a result in
	// [target*AcceptBand, target] stops the search at once.
	AcceptBand = 0.8

	// AchievedTolerance is the presentation-layer slack used by
	// Result.Achieved.  It plays no part in the search itself.
	AchievedTolerance = 1.05

	// DefaultDownscaleThreshold is the bytes-per-pixel budget below which the
	// source is shrunk before the first encode.
	DefaultDownscaleThreshold = 0.1

	// DefaultDownscaleCorrection multiplies the budget ratio before the
	// square root; with the default threshold the scale is continuous at 1.
	DefaultDownscaleCorrection = 10.0
)

// DefaultFormats is the preference order: WebP usually wins at equal quality.
var DefaultFormats = []core.Format{core.FormatWebP, core.FormatJPEG}

// DefaultQualities is the descending quality ladder tried per format.
var DefaultQualities = []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2}

// Request describes one size-targeted search.  Zero fields take defaults.
type Request struct {
	TargetKB    float64
	MaxAttempts int
	Formats     []core.Format
	Qualities   []float64

	// Resampling used when the source has to be shrunk.  Defaults to
	// high-quality.
	Resampling          core.Resampling
	DownscaleThreshold  float64
	DownscaleCorrection float64
}

// NewRequest returns a Request for targetKB with every other field at its
// default.
func NewRequest(targetKB float64) Request {
	return Request{TargetKB: targetKB}.withDefaults()
}

// TargetBytes is TargetKB*1024.
func (r Request) TargetBytes() float64 { return r.TargetKB * 1024 }

func (r Request) withDefaults() Request {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if len(r.Formats) == 0 {
		r.Formats = DefaultFormats
	}
	if len(r.Qualities) == 0 {
		r.Qualities = DefaultQualities
	}
	if r.Resampling == "" {
		r.Resampling = core.ResampleHighQuality
	}
	if r.DownscaleThreshold == 0 {
		r.DownscaleThreshold = DefaultDownscaleThreshold
	}
	if r.DownscaleCorrection == 0 {
		r.DownscaleCorrection = DefaultDownscaleCorrection
	}
	return r
}

// Validate checks a request after defaults have been applied.
func (r Request) Validate() error {
	if r.TargetKB <= 0 || math.IsNaN(r.TargetKB) || math.IsInf(r.TargetKB, 0) {
		return invalid("target %v KB must be a positive finite number", r.TargetKB)
	}
	if r.MaxAttempts < 1 {
		return invalid("max attempts %d must be at least 1", r.MaxAttempts)
	}
	for _, f := range r.Formats {
		if !f.Valid() {
			return invalid("format %q", f)
		}
	}
	for _, q := range r.Qualities {
		if q < 0 || q > 1 || math.IsNaN(q) {
			return invalid("quality %v outside [0,1]", q)
		}
	}
	if r.DownscaleThreshold < 0 || r.DownscaleCorrection <= 0 {
		return invalid("downscale threshold %v / correction %v", r.DownscaleThreshold, r.DownscaleCorrection)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return apperrors.New(apperrors.CategoryCompression, "compress.request",
		fmt.Errorf("%w: "+format, append([]any{apperrors.ErrInvalidTarget}, args...)...))
}
