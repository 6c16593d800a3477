package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Skryldev/image-toolkit/core"
)

// PNG decodes PNG images using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Surface, error) {
	return decodeWith(ctx, "png.decode", r, png.Decode)
}
