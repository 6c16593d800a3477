package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/Skryldev/image-toolkit/core"
)

// WebP decodes WebP images (lossy, lossless and alpha) using
// golang.org/x/image/webp.  Animated WebP is not supported.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Surface, error) {
	return decodeWith(ctx, "webp.decode", r, webp.Decode)
}
