package imagetoolkit_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	imagetoolkit "github.com/Skryldev/image-toolkit"
	"github.com/Skryldev/image-toolkit/compress"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/filter"
	"github.com/Skryldev/image-toolkit/hooks"
	"github.com/Skryldev/image-toolkit/transform"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newRedJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func newBluePNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 50, G: 50, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// gradient fills a surface with a smooth two-axis gradient.
func gradient(t testing.TB, w, h int) *core.Surface {
	t.Helper()
	s, err := core.NewSurface(w, h)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s.Set(x, y, uint8(x*255/w), uint8(y*255/h), 128, 255)
		}
	}
	return s
}

func newToolkit(t testing.TB) *imagetoolkit.Toolkit {
	t.Helper()
	return imagetoolkit.New(imagetoolkit.DefaultConfig())
}

// ── Raster buffer ─────────────────────────────────────────────────────────────

func TestDecode_Formats(t *testing.T) {
	tk := newToolkit(t)
	ctx := context.Background()

	s, err := tk.Decode(ctx, newBluePNG(t, 30, 20))
	if err != nil {
		t.Fatalf("Decode png: %v", err)
	}
	if s.Width != 30 || s.Height != 20 {
		t.Errorf("png dims %dx%d", s.Width, s.Height)
	}
	if r, g, b, a := s.At(5, 5); r != 50 || g != 50 || b != 200 || a != 255 {
		t.Errorf("png pixel (%d,%d,%d,%d)", r, g, b, a)
	}

	s, err = tk.DecodeReader(ctx, bytes.NewReader(newRedJPEG(t, 40, 10)))
	if err != nil {
		t.Fatalf("DecodeReader jpeg: %v", err)
	}
	if s.Width != 40 || s.Height != 10 {
		t.Errorf("jpeg dims %dx%d", s.Width, s.Height)
	}
}

func TestDecode_RoundTripThroughEveryEncoder(t *testing.T) {
	tk := newToolkit(t)
	ctx := context.Background()
	src := gradient(t, 24, 16)

	for _, f := range core.Formats {
		t.Run(string(f), func(t *testing.T) {
			blob, err := tk.Encode(ctx, src, f, 0.9)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := tk.Decode(ctx, blob.Data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Width != 24 || got.Height != 16 {
				t.Errorf("dims %dx%d", got.Width, got.Height)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tk := newToolkit(t)
	ctx := context.Background()
	cases := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": newBluePNG(t, 10, 10)[:30],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := tk.Decode(ctx, data)
			if !apperrors.IsDecodeError(err) {
				t.Errorf("want decode error, got %v", err)
			}
			if s != nil {
				t.Error("surface must be nil on error")
			}
		})
	}
}

func TestDecodeReader_TooLarge(t *testing.T) {
	cfg := imagetoolkit.DefaultConfig()
	cfg.MaxImageBytes = 64
	tk := imagetoolkit.New(cfg)
	_, err := tk.DecodeReader(context.Background(), bytes.NewReader(newBluePNG(t, 50, 50)))
	if !apperrors.IsDecodeError(err) {
		t.Errorf("want decode error, got %v", err)
	}
}

func TestDecodeURL(t *testing.T) {
	raw := newRedJPEG(t, 32, 24)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(raw)
	}))
	defer srv.Close()

	tk := newToolkit(t)
	s, err := tk.DecodeURL(context.Background(), srv.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("DecodeURL: %v", err)
	}
	if s.Width != 32 || s.Height != 24 {
		t.Errorf("dims %dx%d", s.Width, s.Height)
	}

	_, err = tk.DecodeURL(context.Background(), srv.URL+"/missing.jpg")
	if !apperrors.IsDecodeError(err) || !apperrors.IsCategory(err, apperrors.CategoryFetch) {
		t.Errorf("want decode+fetch error, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	tk := newToolkit(t)
	raw := newRedJPEG(t, 160, 90)
	info, err := tk.Inspect(context.Background(), raw)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Format != core.FormatJPEG || info.Width != 160 || info.Height != 90 {
		t.Errorf("info: %+v", info)
	}
	if info.SizeBytes != int64(len(raw)) {
		t.Errorf("size: %d", info.SizeBytes)
	}
	if _, err := tk.Inspect(context.Background(), []byte("nope nope nope")); !apperrors.IsDecodeError(err) {
		t.Errorf("want decode error, got %v", err)
	}
}

// ── Scenarios ─────────────────────────────────────────────────────────────────

func TestResize_KeepsSixteenByNine(t *testing.T) {
	tk := newToolkit(t)
	src, err := tk.NewSurface(1920, 1080)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	src.Fill(10, 20, 30, 255)

	out, err := tk.Resize(src, transform.Spec{Width: 960, Height: 0, MaintainAspectRatio: true})
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if out.Width != 960 || out.Height != 540 {
		t.Errorf("got %dx%d, want 960x540", out.Width, out.Height)
	}
}

func TestAdjustContrast_MidGrayFixedPoint(t *testing.T) {
	tk := newToolkit(t)
	s, _ := tk.NewSurface(8, 8)
	s.Fill(128, 128, 128, 255)
	out, err := tk.AdjustContrast(s, 50)
	if err != nil {
		t.Fatalf("AdjustContrast: %v", err)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 128 || out.Pix[i+1] != 128 || out.Pix[i+2] != 128 || out.Pix[i+3] != 255 {
			t.Fatalf("pixel %d changed: %v", i/4, out.Pix[i:i+4])
		}
	}
}

func TestCompress_LargePhotoWithinBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("compresses a 4000x3000 image")
	}
	tk := newToolkit(t)
	src := gradient(t, 4000, 3000)

	res, err := tk.Compress(context.Background(), src, 100)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if res.Attempts < 1 || res.Attempts > 8 {
		t.Errorf("attempts %d", res.Attempts)
	}
	if f := res.Blob.Format; f != core.FormatWebP && f != core.FormatJPEG {
		t.Errorf("format %s", f)
	}
	if res.ActualSizeKB != res.Blob.SizeKB() {
		t.Errorf("reported %d KB, blob is %d KB", res.ActualSizeKB, res.Blob.SizeKB())
	}
	if src.Width != 4000 || src.Height != 3000 {
		t.Error("source surface modified")
	}
}

func TestEncode_JPEGTransparentBecomesWhite(t *testing.T) {
	tk := newToolkit(t)
	s, _ := tk.NewSurface(16, 16) // alpha 0 everywhere
	blob, err := tk.Encode(context.Background(), s, core.FormatJPEG, 0.9)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 < 250 || g>>8 < 250 || bl>>8 < 250 {
				t.Fatalf("pixel (%d,%d) not white: %d %d %d", x, y, r>>8, g>>8, bl>>8)
			}
		}
	}
}

func TestResize_ZeroWidthFails(t *testing.T) {
	tk := newToolkit(t)
	src := gradient(t, 100, 100)
	cases := []transform.Spec{
		{Width: 0, Height: 50},
		{Width: 0, Height: 0, MaintainAspectRatio: true},
		{Width: -10, Height: 50, MaintainAspectRatio: true},
	}
	for _, spec := range cases {
		out, err := tk.Resize(src, spec)
		if !apperrors.IsInvalidDimension(err) {
			t.Errorf("%+v: want invalid dimension error, got %v", spec, err)
		}
		if out != nil {
			t.Errorf("%+v: partial surface returned", spec)
		}
	}
}

// ── Facade operations ─────────────────────────────────────────────────────────

func TestCropFitConvert(t *testing.T) {
	tk := newToolkit(t)
	ctx := context.Background()
	src := gradient(t, 200, 100)

	c, err := tk.Crop(src, 10, 10, 50, 40)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if c.Width != 50 || c.Height != 40 {
		t.Errorf("crop %dx%d", c.Width, c.Height)
	}
	if _, err := tk.Crop(src, 180, 0, 50, 10); !apperrors.IsInvalidDimension(err) {
		t.Errorf("out-of-bounds crop: %v", err)
	}

	f, err := tk.Fit(src, 100, 100)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if f.Width != 100 || f.Height != 50 {
		t.Errorf("fit %dx%d", f.Width, f.Height)
	}

	blob, err := tk.Convert(ctx, src, core.FormatWebP)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if blob.Format != core.FormatWebP || blob.Size() == 0 {
		t.Errorf("convert: %s %d", blob.Format, blob.Size())
	}
}

func TestApplyFilters_InvalidInput(t *testing.T) {
	tk := newToolkit(t)
	src := gradient(t, 10, 10)
	if _, err := tk.ApplyFilters(src, filter.Spec{Brightness: 101}); !apperrors.IsCategory(err, apperrors.CategoryInput) {
		t.Errorf("brightness 101: %v", err)
	}
	if _, err := tk.Sharpen(src, -1); !apperrors.IsCategory(err, apperrors.CategoryInput) {
		t.Errorf("sharpen -1: %v", err)
	}
}

func TestCompressRequest_FromConfig(t *testing.T) {
	cfg := imagetoolkit.DefaultConfig()
	cfg.Compression.MaxAttempts = 4
	cfg.Compression.Formats = []string{"jpg"}
	tk := imagetoolkit.New(cfg)

	req := tk.CompressRequest(120)
	if req.MaxAttempts != 4 || req.TargetKB != 120 {
		t.Errorf("request: %+v", req)
	}
	if len(req.Formats) != 1 || req.Formats[0] != core.FormatJPEG {
		t.Errorf("formats: %v", req.Formats)
	}
}

// ── Pipelines ─────────────────────────────────────────────────────────────────

func TestProcess_JPEG_Resize(t *testing.T) {
	tk := newToolkit(t)
	raw := newRedJPEG(t, 800, 600)

	result, err := tk.Process(context.Background(),
		imagetoolkit.FromReader(bytes.NewReader(raw)),
		tk.DecodeStep(),
		imagetoolkit.Resize(400, 0, true),
		imagetoolkit.Quality(0.8),
		tk.EncodeStep(),
	)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := result.Primary
	if got.Meta.Width != 400 || got.Meta.Height != 300 {
		t.Errorf("dims: got %dx%d, want 400x300", got.Meta.Width, got.Meta.Height)
	}
	if got.Format != core.FormatJPEG || len(got.Data) == 0 {
		t.Errorf("output: %s, %d bytes", got.Format, len(got.Data))
	}
	if result.RunID == "" {
		t.Error("missing run id")
	}
}

func TestProcess_FormatConversion_JPEG_to_PNG(t *testing.T) {
	tk := newToolkit(t)
	result, err := tk.Process(context.Background(),
		imagetoolkit.FromBytes(newRedJPEG(t, 200, 200)),
		tk.DecodeStep(),
		imagetoolkit.ConvertFormat(imagetoolkit.PNG),
		tk.EncodeStep(),
	)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Primary.Format != core.FormatPNG {
		t.Errorf("output format: got %s, want png", result.Primary.Format)
	}
	if !bytes.HasPrefix(result.Primary.Data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestProcess_Thumbnail(t *testing.T) {
	tk := newToolkit(t)
	result, err := tk.Process(context.Background(),
		imagetoolkit.FromBytes(newRedJPEG(t, 800, 400)),
		tk.DecodeStep(),
		imagetoolkit.Thumbnail(100),
		tk.EncodeStep(),
	)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Primary.Meta.Width != 100 || result.Primary.Meta.Height != 100 {
		t.Errorf("thumbnail dimensions: %dx%d, want 100x100",
			result.Primary.Meta.Width, result.Primary.Meta.Height)
	}
}

func TestProcess_FiltersThenCompress(t *testing.T) {
	tk := newToolkit(t)
	m := hooks.NewMetrics(nil)
	tk.SetMetrics(m)

	result, err := tk.Process(context.Background(),
		imagetoolkit.FromBytes(newBluePNG(t, 300, 200)),
		tk.DecodeStep(),
		imagetoolkit.Filters(filter.Spec{Brightness: 10, Contrast: 10, Sharpen: 0.5}),
		tk.CompressStep(50),
	)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out := result.Primary
	if out.Attempts < 1 || out.Attempts > compress.DefaultMaxAttempts {
		t.Errorf("attempts %d", out.Attempts)
	}
	if out.Format != core.FormatWebP && out.Format != core.FormatJPEG {
		t.Errorf("format %s", out.Format)
	}

	snap := m.Snapshot()
	for _, step := range []string{"decode", "filter", "compress"} {
		if snap.StepCalls[step] != 1 {
			t.Errorf("step %s recorded %d times", step, snap.StepCalls[step])
		}
	}
	if snap.Searches != 1 {
		t.Errorf("searches %d", snap.Searches)
	}
	if snap.TotalThroughputB != int64(len(out.Data)) {
		t.Errorf("throughput %d, want %d", snap.TotalThroughputB, len(out.Data))
	}
}

func TestProcess_ErrorsAreCounted(t *testing.T) {
	tk := newToolkit(t)
	_, err := tk.Process(context.Background(),
		imagetoolkit.FromBytes([]byte("garbage data here")),
		tk.DecodeStep(),
	)
	if !apperrors.IsDecodeError(err) {
		t.Errorf("want decode error, got %v", err)
	}
	// Encoding without a decoded surface is a pipeline error.
	_, err = tk.Process(context.Background(),
		imagetoolkit.FromBytes(newBluePNG(t, 4, 4)),
		tk.EncodeStep(),
	)
	if !apperrors.IsCategory(err, apperrors.CategoryPipeline) {
		t.Errorf("want pipeline error, got %v", err)
	}
	if processed, errs := tk.Stats(); processed != 0 || errs != 2 {
		t.Errorf("stats: processed=%d errors=%d", processed, errs)
	}
}

func TestProcess_ContextCancel(t *testing.T) {
	tk := newToolkit(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tk.Process(ctx,
		imagetoolkit.FromBytes(newRedJPEG(t, 100, 100)),
		tk.DecodeStep(),
	)
	if err == nil {
		t.Error("expected context cancellation error, got nil")
	}
}

func TestNewPipeline(t *testing.T) {
	tk := newToolkit(t)
	m := hooks.NewMetrics(nil)
	tk.SetMetrics(m)

	pl := tk.NewPipeline(tk.DecodeStep(), imagetoolkit.Fit(64, 64), imagetoolkit.ConvertFormat(imagetoolkit.WebP), tk.EncodeStep())
	img := &core.ImageData{Data: newRedJPEG(t, 256, 128), Format: core.FormatJPEG, Quality: 0.8}
	out, timings, err := pl.Run(context.Background(), img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Meta.Width != 64 || out.Meta.Height != 32 {
		t.Errorf("dims %dx%d", out.Meta.Width, out.Meta.Height)
	}
	if len(timings) != 4 {
		t.Errorf("timings: %v", timings)
	}
	if m.Snapshot().StepCalls["fit"] != 1 {
		t.Error("pipeline did not carry the metrics hook")
	}
}

// ── Concurrency tests ─────────────────────────────────────────────────────────

func TestProcess_ConcurrentSafety(t *testing.T) {
	tk := newToolkit(t)
	tk.SetMetrics(hooks.NewMetrics(nil))
	raw := newRedJPEG(t, 200, 200)

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = tk.Process(context.Background(),
				imagetoolkit.FromBytes(raw),
				tk.DecodeStep(),
				imagetoolkit.Resize(100, 0, true),
				tk.EncodeStep(),
			)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("goroutine %d: %v", i, err)
		}
	}
	if processed, _ := tk.Stats(); processed != goroutines {
		t.Errorf("processed %d, want %d", processed, goroutines)
	}
}

// ── Custom step test ──────────────────────────────────────────────────────────

// invertStep is a custom pipeline step for testing extensibility.
type invertStep struct{}

func (invertStep) Name() string { return "invert" }
func (invertStep) Execute(_ context.Context, img *core.ImageData) (*core.ImageData, error) {
	s := img.Surface.Clone()
	for i := 0; i < len(s.Pix); i += 4 {
		s.Pix[i], s.Pix[i+1], s.Pix[i+2] = 255-s.Pix[i], 255-s.Pix[i+1], 255-s.Pix[i+2]
	}
	out := *img
	out.Surface = s
	return &out, nil
}

func TestCustomStep(t *testing.T) {
	tk := newToolkit(t)
	result, err := tk.Process(context.Background(),
		imagetoolkit.FromBytes(newBluePNG(t, 8, 8)),
		tk.DecodeStep(),
		invertStep{},
	)
	if err != nil {
		t.Fatalf("Process with custom step: %v", err)
	}
	if r, g, b, _ := result.Primary.Surface.At(0, 0); r != 205 || g != 205 || b != 55 {
		t.Errorf("inverted pixel (%d,%d,%d)", r, g, b)
	}
}

// ── Benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkProcess_Resize_JPEG(b *testing.B) {
	tk := imagetoolkit.New(imagetoolkit.DefaultConfig())
	raw := newRedJPEG(b, 1920, 1080)

	b.ReportAllocs()
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Process(context.Background(),
			imagetoolkit.FromBytes(raw),
			tk.DecodeStep(),
			imagetoolkit.Resize(960, 0, true),
			tk.EncodeStep(),
		); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompress_1080p(b *testing.B) {
	tk := imagetoolkit.New(imagetoolkit.DefaultConfig())
	src := gradient(b, 1920, 1080)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tk.Compress(context.Background(), src, 150); err != nil {
			b.Fatal(err)
		}
	}
}
