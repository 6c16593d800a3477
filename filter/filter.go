// Package filter implements in-place pixel filters: unsharp-mask sharpening
// and linear brightness/contrast adjustment.  Each filter touches only the
// surface passed in and never the alpha channel.
package filter

import (
	"fmt"
	"math"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

const (
	// MinDelta and MaxDelta bound brightness and contrast deltas.
	MinDelta = -100
	MaxDelta = 100

	midGray = 128.0
)

// Spec is a composition of filters, applied brightness, then contrast, then
// sharpen.  Zero values are skipped.
type Spec struct {
	Sharpen    float64
	Brightness int
	Contrast   int
}

// IsZero reports whether applying s would be a no-op.
func (s Spec) IsZero() bool { return s.Sharpen == 0 && s.Brightness == 0 && s.Contrast == 0 }

// Validate checks every field without touching pixels.
func (s Spec) Validate() error {
	if err := checkDelta("brightness", s.Brightness); err != nil {
		return err
	}
	if err := checkDelta("contrast", s.Contrast); err != nil {
		return err
	}
	return checkStrength(s.Sharpen)
}

// Apply runs the non-zero filters of spec on surf: brightness, contrast, sharpen.
func Apply(surf *core.Surface, spec Spec) (*core.Surface, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	var err error
	if spec.Brightness != 0 {
		if surf, err = AdjustBrightness(surf, spec.Brightness); err != nil {
			return nil, err
		}
	}
	if spec.Contrast != 0 {
		if surf, err = AdjustContrast(surf, spec.Contrast); err != nil {
			return nil, err
		}
	}
	if spec.Sharpen != 0 {
		if surf, err = Sharpen(surf, spec.Sharpen); err != nil {
			return nil, err
		}
	}
	return surf, nil
}

// BrightnessOffset is the channel offset added for a brightness delta:
// round(delta*255/100).
func BrightnessOffset(delta int) int {
	return int(math.Round(float64(delta) * 255 / 100))
}

// ContrastFactor is ((100+delta)/100)^2: 0 at -100, 1 at 0, 4 at +100.
func ContrastFactor(delta int) float64 {
	f := float64(100+delta) / 100
	return f * f
}

// AdjustBrightness adds BrightnessOffset(delta) to R, G and B of every pixel,
// clamping to [0,255].  The surface is modified and returned.
func AdjustBrightness(surf *core.Surface, delta int) (*core.Surface, error) {
	if err := checkSurface("brightness", surf); err != nil {
		return nil, err
	}
	if err := checkDelta("brightness", delta); err != nil {
		return nil, err
	}
	if delta == 0 {
		return surf, nil
	}
	var lut [256]uint8
	off := BrightnessOffset(delta)
	for i := range lut {
		lut[i] = clamp(i + off)
	}
	applyLUT(surf, &lut)
	return surf, nil
}

// AdjustContrast maps every R, G and B value v to
// clamp(round((v-128)*ContrastFactor(delta)+128)).  Mid-gray is a fixed
// point.  The surface is modified and returned.
func AdjustContrast(surf *core.Surface, delta int) (*core.Surface, error) {
	if err := checkSurface("contrast", surf); err != nil {
		return nil, err
	}
	if err := checkDelta("contrast", delta); err != nil {
		return nil, err
	}
	if delta == 0 {
		return surf, nil
	}
	var lut [256]uint8
	factor := ContrastFactor(delta)
	for i := range lut {
		lut[i] = clampf((float64(i)-midGray)*factor + midGray)
	}
	applyLUT(surf, &lut)
	return surf, nil
}

// Sharpen convolves R, G and B with the unsharp kernel
//
//	[ 0  -s   0 ]
//	[-s  1+4s -s]
//	[ 0  -s   0 ]
//
// reading from a snapshot of the input.  The outermost pixel ring and the
// alpha channel are left as they are.  strength 0 returns immediately;
// strengths well above 1 ring visibly and that is expected.
func Sharpen(surf *core.Surface, strength float64) (*core.Surface, error) {
	if err := checkSurface("sharpen", surf); err != nil {
		return nil, err
	}
	if err := checkStrength(strength); err != nil {
		return nil, err
	}
	if strength == 0 || surf.Width < 3 || surf.Height < 3 {
		return surf, nil
	}

	src := make([]uint8, len(surf.Pix))
	copy(src, surf.Pix)

	stride := surf.Width * 4
	center := 1 + 4*strength
	for y := 1; y < surf.Height-1; y++ {
		row := y * stride
		for x := 1; x < surf.Width-1; x++ {
			i := row + x*4
			for c := 0; c < 3; c++ {
				p := i + c
				neighbours := int(src[p-stride]) + int(src[p+stride]) + int(src[p-4]) + int(src[p+4])
				v := center*float64(src[p]) - strength*float64(neighbours)
				surf.Pix[p] = clampf(v)
			}
		}
	}
	return surf, nil
}

func applyLUT(surf *core.Surface, lut *[256]uint8) {
	pix := surf.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = lut[pix[i]]
		pix[i+1] = lut[pix[i+1]]
		pix[i+2] = lut[pix[i+2]]
	}
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampf(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func checkSurface(op string, surf *core.Surface) error {
	if !surf.Valid() {
		return apperrors.New(apperrors.CategoryInput, op, apperrors.ErrEmptyInput)
	}
	return nil
}

func checkDelta(op string, delta int) error {
	if delta < MinDelta || delta > MaxDelta {
		return apperrors.New(apperrors.CategoryInput, op,
			fmt.Errorf("%w: delta %d outside [%d,%d]", apperrors.ErrInvalidParameter, delta, MinDelta, MaxDelta))
	}
	return nil
}

func checkStrength(strength float64) error {
	if strength < 0 || math.IsNaN(strength) || math.IsInf(strength, 0) {
		return apperrors.New(apperrors.CategoryInput, "sharpen",
			fmt.Errorf("%w: strength %v", apperrors.ErrInvalidParameter, strength))
	}
	return nil
}
