// Package transform implements geometric operations on surfaces: resize with
// a selectable resampling tier, crop, and bounding-box fit.
package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

// Spec describes a resize request.
type Spec struct {
	Width, Height int
	// MaintainAspectRatio corrects (Width, Height) to the source aspect
	// ratio before allocation.  A zero on one axis is then derived from the
	// other.
	MaintainAspectRatio bool
	// Resampling defaults to smooth when empty.
	Resampling core.Resampling
}

// Dimensions returns the output size Resize would produce for a source of
// srcW x srcH.
//
// With MaintainAspectRatio the side that would overshoot the source aspect
// is recomputed from the other one and rounded half away from zero; the
// output is never letterboxed or cropped.
func Dimensions(srcW, srcH int, spec Spec) (int, int, error) {
	const op = "resize"
	if srcW <= 0 || srcH <= 0 {
		return 0, 0, invalidDims(op, "source %dx%d", srcW, srcH)
	}
	w, h := spec.Width, spec.Height
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return 0, 0, invalidDims(op, "requested %dx%d", w, h)
	}
	if !spec.MaintainAspectRatio {
		if w == 0 || h == 0 {
			return 0, 0, invalidDims(op, "requested %dx%d", w, h)
		}
		return w, h, nil
	}
	w, h = utils.FitAspect(srcW, srcH, w, h)
	if w <= 0 || h <= 0 {
		return 0, 0, invalidDims(op, "corrected size %dx%d for %dx%d source", w, h, srcW, srcH)
	}
	return w, h, nil
}

// Resize scales src into a new surface.  src is not modified.
func Resize(src *core.Surface, spec Spec) (*core.Surface, error) {
	if !src.Valid() {
		return nil, apperrors.New(apperrors.CategoryDimension, "resize", apperrors.ErrEmptyInput)
	}
	w, h, err := Dimensions(src.Width, src.Height, spec)
	if err != nil {
		return nil, err
	}
	return scaleTo(src, w, h, spec.Resampling)
}

// Scale resizes src by factor on both axes (each side at least 1 pixel).
func Scale(src *core.Surface, factor float64, r core.Resampling) (*core.Surface, error) {
	if !src.Valid() {
		return nil, apperrors.New(apperrors.CategoryDimension, "scale", apperrors.ErrEmptyInput)
	}
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, invalidDims("scale", "factor %v", factor)
	}
	w := max(1, utils.Round(float64(src.Width)*factor))
	h := max(1, utils.Round(float64(src.Height)*factor))
	return scaleTo(src, w, h, r)
}

// Fit bounds src by maxW then maxH keeping its aspect ratio.  Zero means
// unbounded.  When src already fits it is returned as is.
func Fit(src *core.Surface, maxW, maxH int, r core.Resampling) (*core.Surface, error) {
	if !src.Valid() {
		return nil, apperrors.New(apperrors.CategoryDimension, "fit", apperrors.ErrEmptyInput)
	}
	if maxW < 0 || maxH < 0 {
		return nil, invalidDims("fit", "bounds %dx%d", maxW, maxH)
	}
	w, h := utils.BoundDimensions(src.Width, src.Height, maxW, maxH)
	if w == src.Width && h == src.Height {
		return src, nil
	}
	if w <= 0 || h <= 0 {
		return nil, invalidDims("fit", "bounded size %dx%d", w, h)
	}
	return scaleTo(src, w, h, r)
}

// Crop copies rect out of src into a new surface.  rect must be non-empty
// and lie inside src.
func Crop(src *core.Surface, rect image.Rectangle) (*core.Surface, error) {
	if !src.Valid() {
		return nil, apperrors.New(apperrors.CategoryDimension, "crop", apperrors.ErrEmptyInput)
	}
	bounds := image.Rect(0, 0, src.Width, src.Height)
	if rect.Empty() || !rect.In(bounds) {
		return nil, invalidDims("crop", "rect %v outside image bounds %v", rect, bounds)
	}
	dst, err := core.NewSurface(rect.Dx(), rect.Dy())
	if err != nil {
		return nil, err
	}
	rowBytes := rect.Dx() * 4
	for y := 0; y < rect.Dy(); y++ {
		so := ((rect.Min.Y+y)*src.Width + rect.Min.X) * 4
		copy(dst.Pix[y*rowBytes:(y+1)*rowBytes], src.Pix[so:so+rowBytes])
	}
	return dst, nil
}

func scaleTo(src *core.Surface, w, h int, r core.Resampling) (*core.Surface, error) {
	switch r {
	case core.ResampleHighQuality:
		return core.FromImage(imaging.Resize(src.NRGBA(), w, h, imaging.Lanczos))
	case core.ResamplePixelated, core.ResampleSmooth, "":
	default:
		return nil, apperrors.New(apperrors.CategoryInput, "resize",
			fmt.Errorf("%w: resampling %q", apperrors.ErrInvalidParameter, r))
	}

	var interp xdraw.Interpolator = xdraw.BiLinear
	if r == core.ResamplePixelated {
		interp = xdraw.NearestNeighbor
	}
	// Interpolate in premultiplied space so transparent pixels do not bleed
	// their colour into neighbours.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	interp.Scale(dst, dst.Bounds(), src.NRGBA(), image.Rect(0, 0, src.Width, src.Height), xdraw.Src, nil)
	return core.FromImage(dst)
}

func invalidDims(op, format string, args ...any) error {
	return apperrors.New(apperrors.CategoryDimension, op,
		fmt.Errorf("%w: "+format, append([]any{apperrors.ErrInvalidDimensions}, args...)...))
}
