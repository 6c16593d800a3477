package encoder

import (
	"bytes"
	"context"
	"image/png"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// PNG encodes images to PNG format.  Output is deterministic for a given
// surface and compression level.
type PNG struct {
	CompressionLevel png.CompressionLevel
}

func NewPNG() *PNG { return &PNG{CompressionLevel: png.DefaultCompression} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, s *core.Surface, _ core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	if !s.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEmptyInput)
	}

	enc := &png.Encoder{CompressionLevel: p.CompressionLevel}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, s.NRGBA()); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return buf.Bytes(), nil
}
