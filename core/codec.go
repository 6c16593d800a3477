package core

import (
	"bytes"
	"context"
	"fmt"
	"math"

	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

// EncodeBlob is the encoder bridge: it validates the request, dispatches to
// the encoder registered for format and wraps the bytes in a Blob.  It never
// returns a zero-length blob.
func EncodeBlob(ctx context.Context, reg Registry, s *Surface, format Format, quality float64) (*Blob, error) {
	const op = "encode"
	if !format.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, op,
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	if !s.Valid() {
		return nil, apperrors.New(apperrors.CategoryEncode, op, apperrors.ErrEmptyInput)
	}
	if !format.Lossless() {
		if math.IsNaN(quality) || quality < 0 || quality > 1 {
			return nil, apperrors.New(apperrors.CategoryEncode, op,
				fmt.Errorf("%w: got %v", apperrors.ErrInvalidQuality, quality))
		}
	}
	enc, ok := reg.EncoderFor(format)
	if !ok || !enc.CanEncode(format) {
		return nil, apperrors.New(apperrors.CategoryEncode, op,
			fmt.Errorf("%w: no encoder for %s", apperrors.ErrUnsupportedFormat, format))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}

	data, err := enc.Encode(ctx, s, EncodeOptions{Format: format, Quality: quality})
	if err != nil {
		if apperrors.IsEncodeError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CategoryEncode, op, err)
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CategoryEncode, op, apperrors.ErrEmptyOutput)
	}
	return &Blob{Data: data, Format: format}, nil
}

// DecodeSurface sniffs the format of data and decodes it with the registered
// decoder.  A hint of FormatUnknown means "detect".
func DecodeSurface(ctx context.Context, reg Registry, data []byte, hint Format) (*Surface, Format, error) {
	const op = "decode"
	if len(data) == 0 {
		return nil, FormatUnknown, apperrors.New(apperrors.CategoryDecode, op, apperrors.ErrEmptyInput)
	}
	format := hint
	if detected := Format(utils.DetectFormat(data)); detected != FormatUnknown {
		format = detected
	}
	if !format.Valid() {
		return nil, FormatUnknown, apperrors.New(apperrors.CategoryDecode, op,
			fmt.Errorf("%w: unrecognised signature", apperrors.ErrUnsupportedFormat))
	}
	dec, ok := reg.DecoderFor(format)
	if !ok || !dec.CanDecode(format) {
		return nil, format, apperrors.New(apperrors.CategoryDecode, op,
			fmt.Errorf("%w: no decoder for %s", apperrors.ErrUnsupportedFormat, format))
	}
	if err := ctx.Err(); err != nil {
		return nil, format, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}

	s, err := dec.Decode(ctx, bytes.NewReader(data))
	if err != nil {
		if apperrors.IsDecodeError(err) {
			return nil, format, err
		}
		return nil, format, apperrors.Wrap(apperrors.CategoryDecode, op, err)
	}
	return s, format, nil
}
