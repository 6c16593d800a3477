// Package compress implements the size-targeted compression search: a
// bounded, strictly sequential walk over formats and a descending quality
// ladder that looks for the encoding closest to, and preferably not above, a
// byte budget.
package compress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/transform"
)

// EncodeFunc encodes a surface at a quality in [0,1].
type EncodeFunc func(ctx context.Context, s *core.Surface, f core.Format, quality float64) (*core.Blob, error)

// Attempt records one encode performed by a search.
type Attempt struct {
	Format  core.Format
	Quality float64
	Width   int
	Height  int
	Size    int   // bytes; 0 when Err is set
	Err     error // encode failure, the ladder moved on
	Best    bool  // became the best-so-far candidate
}

// Result is the outcome of a search.
type Result struct {
	Blob    *core.Blob
	Quality float64
	Width   int
	Height  int

	ActualSizeKB int // round(Blob.Size()/1024)
	TargetSizeKB float64
	Attempts     int
	Trace        []Attempt
}

// Achieved reports whether the result is within AchievedTolerance of the
// target, the signal used for user feedback.
func (r *Result) Achieved() bool {
	return float64(r.ActualSizeKB) <= r.TargetSizeKB*AchievedTolerance
}

// Searcher runs searches with a fixed encoder and optional observers.
type Searcher struct {
	Encode  EncodeFunc
	Logger  core.Logger
	Metrics core.MetricsCollector
}

// NewSearcher returns a Searcher using enc.
func NewSearcher(enc EncodeFunc) *Searcher {
	return &Searcher{Encode: enc, Logger: core.NopLogger{}}
}

// Search is shorthand for NewSearcher(enc).Search(ctx, src, req).
func Search(ctx context.Context, enc EncodeFunc, src *core.Surface, req Request) (*Result, error) {
	return NewSearcher(enc).Search(ctx, src, req)
}

type candidate struct {
	blob    *core.Blob
	quality float64
	width   int
	height  int
}

// Search looks for the encoding of src closest to req.TargetKB.
//
// Formats are tried in order, each with the quality ladder.  After every
// encode:
//   - a size inside [target*AcceptBand, target] is accepted and ends the search;
//   - a size at or under target becomes the best candidate and ends the
//     format's ladder, and the whole search if it was the first format;
//   - otherwise the candidate replaces the best one only if both are over
//     target and it is strictly closer.
//
// At most req.MaxAttempts encodes run.  An encode failure uses up an attempt
// and moves to the next ladder step.  src is never modified.
func (s *Searcher) Search(ctx context.Context, src *core.Surface, req Request) (*Result, error) {
	const op = "compress"
	log := s.Logger
	if log == nil {
		log = core.NopLogger{}
	}
	if s.Encode == nil {
		return nil, apperrors.New(apperrors.CategoryCompression, op, fmt.Errorf("nil encoder"))
	}
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !src.Valid() {
		return nil, apperrors.New(apperrors.CategoryCompression, op,
			fmt.Errorf("%w: %w", apperrors.ErrNoCandidate, apperrors.ErrEmptyInput))
	}

	searchID := uuid.NewString()
	start := time.Now()
	target := req.TargetBytes()

	working, err := workingSurface(src, req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryCompression, op, err)
	}
	if working != src {
		log.Debug("compress.downscale", "search_id", searchID,
			"from", fmt.Sprintf("%dx%d", src.Width, src.Height),
			"to", fmt.Sprintf("%dx%d", working.Width, working.Height))
	}

	var (
		best    *candidate
		lastErr error
		trace   = make([]Attempt, 0, req.MaxAttempts)
	)

search:
	for fi, format := range req.Formats {
		for _, q := range req.Qualities {
			if len(trace) >= req.MaxAttempts {
				break search
			}
			if err := ctx.Err(); err != nil {
				return nil, apperrors.Wrap(apperrors.CategoryCompression, op, err)
			}

			att := Attempt{Format: format, Quality: q, Width: working.Width, Height: working.Height}
			blob, encErr := s.Encode(ctx, working, format, q)
			if encErr != nil {
				att.Err = encErr
				trace = append(trace, att)
				lastErr = encErr
				log.Debug("compress.attempt.failed", "search_id", searchID, "n", len(trace),
					"format", format, "quality", q, "error", encErr.Error())
				continue
			}

			size := float64(blob.Size())
			att.Size = blob.Size()
			cand := &candidate{blob: blob, quality: q, width: working.Width, height: working.Height}
			if outranks(cand, best, target) {
				best = cand
				att.Best = true
			}
			trace = append(trace, att)
			log.Debug("compress.attempt", "search_id", searchID, "n", len(trace),
				"format", format, "quality", q, "bytes", blob.Size(), "best", att.Best)

			if size <= target && size >= target*AcceptBand {
				break search
			}
			if size <= target {
				if fi == 0 {
					break search
				}
				break
			}
		}
	}

	if best == nil {
		err := apperrors.ErrNoCandidate
		if lastErr != nil {
			err = fmt.Errorf("%w: %w", apperrors.ErrNoCandidate, lastErr)
		}
		if s.Metrics != nil {
			s.Metrics.RecordSearch(len(trace), false)
			s.Metrics.RecordError(op, string(apperrors.CategoryCompression))
		}
		return nil, apperrors.New(apperrors.CategoryCompression, op, err)
	}

	res := &Result{
		Blob:         best.blob,
		Quality:      best.quality,
		Width:        best.width,
		Height:       best.height,
		ActualSizeKB: best.blob.SizeKB(),
		TargetSizeKB: req.TargetKB,
		Attempts:     len(trace),
		Trace:        trace,
	}
	if s.Metrics != nil {
		s.Metrics.RecordSearch(res.Attempts, res.Achieved())
		s.Metrics.RecordProcessingTime("compress.search", time.Since(start))
	}
	log.Info("compress.done", "search_id", searchID, "format", res.Blob.Format,
		"quality", res.Quality, "size_kb", res.ActualSizeKB, "target_kb", res.TargetSizeKB,
		"attempts", res.Attempts, "achieved", res.Achieved(), "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// DownscaleFactor returns the per-side scale applied before encoding a
// width x height source for req, or 1 when no downscale is needed.
func DownscaleFactor(width, height int, req Request) float64 {
	req = req.withDefaults()
	ratio := req.TargetBytes() / float64(width*height)
	if ratio >= req.DownscaleThreshold {
		return 1
	}
	f := math.Sqrt(ratio * req.DownscaleCorrection)
	if f >= 1 {
		return 1
	}
	return f
}

func workingSurface(src *core.Surface, req Request) (*core.Surface, error) {
	f := DownscaleFactor(src.Width, src.Height, req)
	if f == 1 {
		return src, nil
	}
	return transform.Scale(src, f, req.Resampling)
}

// outranks orders candidates: at or under target beats over target; on the
// same side the smaller distance wins, ties keep the incumbent.
func outranks(c, best *candidate, target float64) bool {
	if best == nil {
		return true
	}
	cs, bs := float64(c.blob.Size()), float64(best.blob.Size())
	cu, bu := cs <= target, bs <= target
	if cu != bu {
		return cu
	}
	return math.Abs(cs-target) < math.Abs(bs-target)
}
