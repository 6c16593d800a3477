package utils

import (
	"bytes"
	"math"
	"net/http"
)

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatWebP    = "webp"
	formatBMP     = "bmp"
	formatUnknown = "unknown"
)

// DetectFormat sniffs the leading bytes of data and returns the image format.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return formatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return formatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return formatPNG
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return formatWebP
	}
	// BMP: "BM"
	if data[0] == 'B' && data[1] == 'M' {
		return formatBMP
	}
	// Fallback to net/http sniffing.
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return formatJPEG
	case "image/png":
		return formatPNG
	case "image/webp":
		return formatWebP
	case "image/bmp":
		return formatBMP
	}
	return formatUnknown
}

// FitAspect corrects a requested (w, h) to the source aspect ratio: the
// side that would overshoot is derived from the other.  A zero request on
// one side is derived from the non-zero side.  Results use math.Round.
func FitAspect(srcW, srcH, reqW, reqH int) (int, int) {
	aspect := float64(srcW) / float64(srcH)
	switch {
	case reqH == 0:
		return reqW, Round(float64(reqW) / aspect)
	case reqW == 0:
		return Round(float64(reqH) * aspect), reqH
	}
	if float64(reqW)/float64(reqH) > aspect {
		return Round(float64(reqH) * aspect), reqH
	}
	return reqW, Round(float64(reqW) / aspect)
}

// BoundDimensions shrinks (w, h) to fit maxW then maxH, keeping the ratio.
// Zero bounds are ignored.
func BoundDimensions(w, h, maxW, maxH int) (int, int) {
	fw, fh := float64(w), float64(h)
	if maxW > 0 && fw > float64(maxW) {
		fh = fh * float64(maxW) / fw
		fw = float64(maxW)
	}
	if maxH > 0 && fh > float64(maxH) {
		fw = fw * float64(maxH) / fh
		fh = float64(maxH)
	}
	return Round(fw), Round(fh)
}

// Round rounds half away from zero.
func Round(v float64) int { return int(math.Round(v)) }

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
