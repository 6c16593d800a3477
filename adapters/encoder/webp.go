package encoder

import (
	"bytes"
	"context"

	"github.com/chai2010/webp"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// WebP encodes images to lossy WebP with github.com/chai2010/webp (bundled
// libwebp).  Alpha is preserved.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Encode(ctx context.Context, s *core.Surface, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	if !s.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, "webp.encode", apperrors.ErrEmptyInput)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, s.NRGBA(), &webp.Options{Quality: float32(Percent(opts.Quality))}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	return buf.Bytes(), nil
}
