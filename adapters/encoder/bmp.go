package encoder

import (
	"bytes"
	"context"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// BMP encodes uncompressed Windows bitmaps.  Surfaces with transparency are
// written as 32-bit BMP; opaque ones as 24-bit.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanEncode(format core.Format) bool { return format == core.FormatBMP }

func (b *BMP) Encode(ctx context.Context, s *core.Surface, _ core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "bmp.encode", err)
	}
	if !s.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "bmp.encode", apperrors.ErrEmptyInput)
	}

	var buf bytes.Buffer
	buf.Grow(54 + s.PixelCount()*4)
	if err := bmp.Encode(&buf, s.NRGBA()); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "bmp.encode", err)
	}
	return buf.Bytes(), nil
}
