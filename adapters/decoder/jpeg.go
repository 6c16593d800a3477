// Package decoder provides format-specific image decoders.
package decoder

import (
	"context"
	"image"
	"image/jpeg"
	"io"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// JPEG decodes JPEG images using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Surface, error) {
	return decodeWith(ctx, "jpeg.decode", r, jpeg.Decode)
}

// decodeWith runs a stdlib-style decode function and converts the result to
// a Surface, tagging failures as decode errors.
func decodeWith(ctx context.Context, op string, r io.Reader, fn func(io.Reader) (image.Image, error)) (*core.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	img, err := fn(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	s, err := core.FromImage(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	return s, nil
}
