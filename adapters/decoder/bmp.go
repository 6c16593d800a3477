package decoder

import (
	"context"
	"io"

	"golang.org/x/image/bmp"

	"github.com/Skryldev/image-toolkit/core"
)

// BMP decodes Windows bitmaps using golang.org/x/image/bmp.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanDecode(format core.Format) bool {
	return format == core.FormatBMP
}

func (b *BMP) Decode(ctx context.Context, r io.Reader) (*core.Surface, error) {
	return decodeWith(ctx, "bmp.decode", r, bmp.Decode)
}
