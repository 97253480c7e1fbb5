package extractor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"sort"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/edusight-backend/internal/domain/uploads"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

const (
	// Images wider than this are scaled down before OCR.
	maxOCRWidth   = 2400
	sharpenSigma  = 1.0
	contrastBoost = 20
)

// Image cleans up a scanned image and runs OCR on the result.
type Image struct {
	log *logger.Logger
	ocr OCRProvider
}

func (x *Image) Extract(ctx context.Context, filename string, data []byte) (*Extraction, error) {
	out := newExtraction(uploads.FormatImage)
	if x.ocr == nil {
		return nil, parseFailure("image ocr unavailable", nil)
	}
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, parseFailure("unreadable image", err)
	}
	b := img.Bounds()
	out.Diagnostics["source_format"] = kind
	out.Diagnostics["width"] = b.Dx()
	out.Diagnostics["height"] = b.Dy()

	var buf bytes.Buffer
	if err := png.Encode(&buf, Preprocess(img)); err != nil {
		return nil, parseFailure("image encode failed", err)
	}
	text, err := x.ocr.OCRImage(ctx, buf.Bytes())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, parseFailure("image ocr failed", err)
	}
	out.Text = normalizeLines(sanitizeUTF8(text))
	out.OCR = true
	if out.Text == "" {
		return nil, parseFailure("image has no readable text", nil)
	}
	x.log.Debug("image extracted", "file", filename, "format", kind, "chars", len(out.Text))
	return out, nil
}

// Preprocess converts to grayscale, removes speckle noise with a 3x3 median
// filter and sharpens edges.
func Preprocess(img image.Image) image.Image {
	if img.Bounds().Dx() > maxOCRWidth {
		img = imaging.Resize(img, maxOCRWidth, 0, imaging.Lanczos)
	}
	g := imaging.Grayscale(img)
	g = imaging.AdjustContrast(g, contrastBoost)
	return imaging.Sharpen(median3(g), sharpenSigma)
}

func median3(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	var win [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := clampInt(x+dx, b.Min.X, b.Max.X-1), clampInt(y+dy, b.Min.Y, b.Max.Y-1)
					win[n] = src.NRGBAAt(px, py).R
					n++
				}
			}
			s := win[:]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			v := s[4]
			dst.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
