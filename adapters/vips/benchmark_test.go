package vips_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	imagetoolkit "github.com/Skryldev/image-toolkit"
	"github.com/Skryldev/image-toolkit/adapters/vips"
	"github.com/Skryldev/image-toolkit/core"
	"github.com/Skryldev/image-toolkit/transform"
)

func makeJPEG(b *testing.B, w, h int) []byte {
	b.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92})
	return buf.Bytes()
}

func newVipsToolkit(b *testing.B) (*imagetoolkit.Toolkit, *vips.Backend) {
	b.Helper()
	tk := imagetoolkit.New(imagetoolkit.DefaultConfig())
	backend := vips.NewBackend(vips.BackendConfig{})
	vips.RegisterBackend(tk.Registry(), backend)
	return tk, backend
}

func newStdlibToolkit(b *testing.B) *imagetoolkit.Toolkit {
	b.Helper()
	return imagetoolkit.New(imagetoolkit.DefaultConfig())
}

// ─── Decode ───────────────────────────────────────────────────────────────────

func benchDecode(b *testing.B, tk *imagetoolkit.Toolkit, raw []byte) {
	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Decode(context.Background(), raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode_Stdlib_1920x1080(b *testing.B) {
	benchDecode(b, newStdlibToolkit(b), makeJPEG(b, 1920, 1080))
}

func BenchmarkDecode_Vips_1920x1080(b *testing.B) {
	tk, _ := newVipsToolkit(b)
	benchDecode(b, tk, makeJPEG(b, 1920, 1080))
}

// ─── Resize ───────────────────────────────────────────────────────────────────

func BenchmarkResize_Stdlib_1920to960(b *testing.B) {
	tk := newStdlibToolkit(b)
	src, err := tk.Decode(context.Background(), makeJPEG(b, 1920, 1080))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Resize(src, transform.Spec{Width: 960, Height: 540, Resampling: core.ResampleHighQuality}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResize_Vips_1920to960(b *testing.B) {
	tk, backend := newVipsToolkit(b)
	src, err := tk.Decode(context.Background(), makeJPEG(b, 1920, 1080))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := backend.Resize(src, 960, 540, core.ResampleHighQuality); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Thumbnail ────────────────────────────────────────────────────────────────

func BenchmarkThumbnail_Stdlib_4K(b *testing.B) {
	tk := newStdlibToolkit(b)
	raw := makeJPEG(b, 3840, 2160)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Process(context.Background(), imagetoolkit.FromBytes(raw),
			tk.DecodeStep(), imagetoolkit.Thumbnail(256)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkThumbnail_Vips_4K(b *testing.B) {
	tk, _ := newVipsToolkit(b)
	raw := makeJPEG(b, 3840, 2160)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Process(context.Background(), imagetoolkit.FromBytes(raw),
			&vips.ThumbnailStep{Size: 256}); err != nil {
			b.Fatal(err)
		}
	}
}

// ─── Encode ───────────────────────────────────────────────────────────────────

func benchEncodeWebP(b *testing.B, tk *imagetoolkit.Toolkit) {
	src, err := tk.Decode(context.Background(), makeJPEG(b, 1280, 720))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Encode(context.Background(), src, core.FormatWebP, 0.8); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncodeWebP_Stdlib(b *testing.B) { benchEncodeWebP(b, newStdlibToolkit(b)) }

func BenchmarkEncodeWebP_Vips(b *testing.B) {
	tk, _ := newVipsToolkit(b)
	benchEncodeWebP(b, tk)
}

// ─── Compress ─────────────────────────────────────────────────────────────────

func benchCompress(b *testing.B, tk *imagetoolkit.Toolkit) {
	src, err := tk.Decode(context.Background(), makeJPEG(b, 1920, 1080))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Compress(context.Background(), src, 120); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompress_Stdlib(b *testing.B) { benchCompress(b, newStdlibToolkit(b)) }

func BenchmarkCompress_Vips(b *testing.B) {
	tk, _ := newVipsToolkit(b)
	benchCompress(b, tk)
}
