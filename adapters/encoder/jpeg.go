// Package encoder provides format-specific image encoders.
package encoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// JPEG encodes images to JPEG format.  JPEG has no alpha channel, so every
// surface is composited onto opaque white before encoding.
type JPEG struct{}

func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanEncode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Encode(ctx context.Context, s *core.Surface, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	if !s.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "jpeg.encode", apperrors.ErrEmptyInput)
	}

	var buf bytes.Buffer
	buf.Grow(s.PixelCount() / 4)
	if err := jpeg.Encode(&buf, FlattenOnWhite(s), &jpeg.Options{Quality: Percent(opts.Quality)}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	return buf.Bytes(), nil
}

// FlattenOnWhite composites s over an opaque white background and returns
// the opaque result.  s is not modified.
func FlattenOnWhite(s *core.Surface) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for i := 0; i < len(s.Pix); i += 4 {
		a := uint32(s.Pix[i+3])
		inv := 255 - a
		dst.Pix[i] = uint8((uint32(s.Pix[i])*a + 255*inv + 127) / 255)
		dst.Pix[i+1] = uint8((uint32(s.Pix[i+1])*a + 255*inv + 127) / 255)
		dst.Pix[i+2] = uint8((uint32(s.Pix[i+2])*a + 255*inv + 127) / 255)
		dst.Pix[i+3] = 0xff
	}
	return dst
}

// Percent maps a [0,1] quality factor to the 1-100 scale lossy codecs use.
func Percent(q float64) int {
	p := int(math.Round(q * 100))
	if p < 1 {
		return 1
	}
	if p > 100 {
		return 100
	}
	return p
}
