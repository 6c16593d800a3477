package filter_test

import (
	"math"
	"testing"

	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/filter"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func filled(t testing.TB, w, h int, v, a uint8) *core.Surface {
	t.Helper()
	s, err := core.NewSurface(w, h)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	s.Fill(v, v, v, a)
	return s
}

func assertPixel(t *testing.T, s *core.Surface, x, y int, want [4]uint8) {
	t.Helper()
	r, g, b, a := s.At(x, y)
	if got := [4]uint8{r, g, b, a}; got != want {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}

// ── Brightness / contrast ─────────────────────────────────────────────────────

func TestBrightnessOffset(t *testing.T) {
	cases := map[int]int{0: 0, 10: 26, -10: -26, 50: 128, 100: 255, -100: -255}
	for delta, want := range cases {
		if got := filter.BrightnessOffset(delta); got != want {
			t.Errorf("BrightnessOffset(%d) = %d, want %d", delta, got, want)
		}
	}
}

func TestAdjustBrightness_Clamps(t *testing.T) {
	cases := []struct {
		name  string
		in    uint8
		delta int
		want  uint8
	}{
		{"up", 100, 10, 126},
		{"down", 100, -10, 74},
		{"clamp high", 250, 20, 255},
		{"clamp low", 5, -20, 0},
		{"full white", 0, 100, 255},
		{"zero is identity", 77, 0, 77},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := filled(t, 2, 2, tc.in, 200)
			out, err := filter.AdjustBrightness(s, tc.delta)
			if err != nil {
				t.Fatalf("AdjustBrightness: %v", err)
			}
			assertPixel(t, out, 1, 1, [4]uint8{tc.want, tc.want, tc.want, 200})
		})
	}
}

func TestAdjustContrast_MidGrayIsFixed(t *testing.T) {
	for _, delta := range []int{-100, -50, -1, 1, 37, 100} {
		s := filled(t, 3, 3, 128, 255)
		out, err := filter.AdjustContrast(s, delta)
		if err != nil {
			t.Fatalf("AdjustContrast(%d): %v", delta, err)
		}
		for i, v := range out.Pix {
			if v != 128 && i%4 != 3 {
				t.Fatalf("delta %d: byte %d = %d, want 128", delta, i, v)
			}
		}
	}
}

func TestAdjustContrast_Values(t *testing.T) {
	cases := []struct {
		in    uint8
		delta int
		want  uint8
	}{
		{100, 100, 16},   // (100-128)*4+128
		{200, 100, 255},  // clamped
		{10, 100, 0},     // clamped
		{0, -100, 128},   // factor 0 flattens to gray
		{255, -100, 128}, // same
		{200, 0, 200},
	}
	for _, tc := range cases {
		s := filled(t, 1, 1, tc.in, 255)
		out, err := filter.AdjustContrast(s, tc.delta)
		if err != nil {
			t.Fatalf("AdjustContrast: %v", err)
		}
		assertPixel(t, out, 0, 0, [4]uint8{tc.want, tc.want, tc.want, 255})
	}
}

func TestContrastFactor(t *testing.T) {
	if f := filter.ContrastFactor(0); f != 1 {
		t.Errorf("factor(0) = %v", f)
	}
	if f := filter.ContrastFactor(100); f != 4 {
		t.Errorf("factor(100) = %v", f)
	}
	if f := filter.ContrastFactor(-100); f != 0 {
		t.Errorf("factor(-100) = %v", f)
	}
}

// ── Sharpen ───────────────────────────────────────────────────────────────────

func TestSharpen_ZeroIsNoop(t *testing.T) {
	s := filled(t, 5, 5, 90, 255)
	s.Set(2, 2, 200, 10, 30, 255)
	before := s.Clone()
	out, err := filter.Sharpen(s, 0)
	if err != nil {
		t.Fatalf("Sharpen: %v", err)
	}
	for i := range before.Pix {
		if out.Pix[i] != before.Pix[i] {
			t.Fatalf("byte %d changed: %d -> %d", i, before.Pix[i], out.Pix[i])
		}
	}
}

func TestSharpen_UniformStaysUniform(t *testing.T) {
	s := filled(t, 6, 4, 140, 255)
	out, err := filter.Sharpen(s, 1.5)
	if err != nil {
		t.Fatalf("Sharpen: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			assertPixel(t, out, x, y, [4]uint8{140, 140, 140, 255})
		}
	}
}

func TestSharpen_CentreAndBorder(t *testing.T) {
	s := filled(t, 3, 3, 50, 255)
	s.Set(1, 1, 100, 100, 100, 7)

	out, err := filter.Sharpen(s, 1)
	if err != nil {
		t.Fatalf("Sharpen: %v", err)
	}
	// 5*100 - 4*50 = 300, clamped; alpha untouched.
	assertPixel(t, out, 1, 1, [4]uint8{255, 255, 255, 7})
	// Border ring is copied through even though its neighbour changed.
	assertPixel(t, out, 0, 1, [4]uint8{50, 50, 50, 255})
	assertPixel(t, out, 2, 2, [4]uint8{50, 50, 50, 255})
}

func TestSharpen_ReadsFromSnapshot(t *testing.T) {
	// Two bright pixels side by side: if the second read the already
	// sharpened first, its value would differ from the first's.
	s := filled(t, 4, 3, 50, 255)
	s.Set(1, 1, 100, 100, 100, 255)
	s.Set(2, 1, 100, 100, 100, 255)
	out, err := filter.Sharpen(s, 0.5)
	if err != nil {
		t.Fatalf("Sharpen: %v", err)
	}
	r1, _, _, _ := out.At(1, 1)
	r2, _, _, _ := out.At(2, 1)
	// 3*100 - 0.5*(50+50+50+100) = 175
	if r1 != 175 || r2 != 175 {
		t.Errorf("got %d and %d, want 175 for both", r1, r2)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestSpecValidate(t *testing.T) {
	cases := []struct {
		name    string
		spec    filter.Spec
		wantErr bool
	}{
		{"zero", filter.Spec{}, false},
		{"limits", filter.Spec{Brightness: -100, Contrast: 100, Sharpen: 3}, false},
		{"brightness high", filter.Spec{Brightness: 101}, true},
		{"contrast low", filter.Spec{Contrast: -101}, true},
		{"negative sharpen", filter.Spec{Sharpen: -0.1}, true},
		{"nan sharpen", filter.Spec{Sharpen: math.NaN()}, true},
		{"inf sharpen", filter.Spec{Sharpen: math.Inf(1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !apperrors.IsCategory(err, apperrors.CategoryInput) {
				t.Errorf("error %v is not an input error", err)
			}
		})
	}
}

func TestApply_OrderAndEmptySurface(t *testing.T) {
	// Brightness first then contrast: 100 -> 126 -> (126-128)*4+128 = 120.
	s := filled(t, 2, 2, 100, 255)
	out, err := filter.Apply(s, filter.Spec{Brightness: 10, Contrast: 100})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	assertPixel(t, out, 0, 0, [4]uint8{120, 120, 120, 255})

	if _, err := filter.Apply(&core.Surface{}, filter.Spec{Brightness: 1}); err == nil {
		t.Error("expected error for empty surface")
	}
	if _, err := filter.AdjustBrightness(filled(t, 1, 1, 0, 255), 500); !apperrors.IsCategory(err, apperrors.CategoryInput) {
		t.Errorf("out-of-range delta: got %v", err)
	}
}

// ── Benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkApply_1080p(b *testing.B) {
	src := filled(b, 1920, 1080, 120, 255)
	spec := filter.Spec{Brightness: 10, Contrast: 20, Sharpen: 0.5}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := filter.Apply(src.Clone(), spec); err != nil {
			b.Fatal(err)
		}
	}
}
