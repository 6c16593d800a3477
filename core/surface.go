package core

import (
	"fmt"
	"image"
	"image/draw"

	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// Surface is an owned grid of 8-bit RGBA pixels, non-premultiplied,
// row-major from the top-left corner.  len(Pix) is always Width*Height*4.
type Surface struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewSurface allocates a transparent black surface.
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.New(apperrors.CategoryDimension, "surface.new",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, width, height))
	}
	return &Surface{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// FromImage copies any decoded image into a new Surface.
func FromImage(img image.Image) (*Surface, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.CategoryDecode, "surface.from_image", apperrors.ErrEmptyInput)
	}
	b := img.Bounds()
	s, err := NewSurface(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	if n, ok := img.(*image.NRGBA); ok && n.Stride == b.Dx()*4 {
		copy(s.Pix, n.Pix[:len(s.Pix)])
		return s, nil
	}
	dst := s.NRGBA()
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return s, nil
}

// NRGBA returns an image view sharing Pix.  Writes through the view mutate
// the surface.
func (s *Surface) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    s.Pix,
		Stride: s.Width * 4,
		Rect:   image.Rect(0, 0, s.Width, s.Height),
	}
}

// Clone returns a deep copy.
func (s *Surface) Clone() *Surface {
	pix := make([]uint8, len(s.Pix))
	copy(pix, s.Pix)
	return &Surface{Width: s.Width, Height: s.Height, Pix: pix}
}

// Valid reports whether dimensions are positive and the buffer length matches.
func (s *Surface) Valid() bool {
	return s != nil && s.Width > 0 && s.Height > 0 && len(s.Pix) == s.Width*s.Height*4
}

// HasAlpha reports whether any pixel is not fully opaque.
func (s *Surface) HasAlpha() bool {
	for i := 3; i < len(s.Pix); i += 4 {
		if s.Pix[i] != 0xff {
			return true
		}
	}
	return false
}

// PixelCount returns Width*Height.
func (s *Surface) PixelCount() int { return s.Width * s.Height }

// At returns the RGBA quadruple at (x, y).
func (s *Surface) At(x, y int) (r, g, b, a uint8) {
	i := (y*s.Width + x) * 4
	return s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3]
}

// Set writes the RGBA quadruple at (x, y).
func (s *Surface) Set(x, y int, r, g, b, a uint8) {
	i := (y*s.Width + x) * 4
	s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = r, g, b, a
}

// Fill paints every pixel with the given colour.
func (s *Surface) Fill(r, g, b, a uint8) {
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = r, g, b, a
	}
}
