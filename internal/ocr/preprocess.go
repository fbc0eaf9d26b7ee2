package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
)

// Preprocessing constants. Tuned for clean text against mixed-quality
// scans; the threshold sits slightly above mid-gray.
const (
	maxDimension   = 2500
	contrastFactor = 1.2
	binThreshold   = 160
)

// Preprocess prepares an image for local OCR: downscale so the longer
// dimension stays within maxDimension, flatten onto a white background,
// grayscale with perceptual weights, linear contrast stretch around the
// mid-tone, then binarize to pure black/white. Pure function of the input
// pixels; returns PNG bytes.
func Preprocess(imageData []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDimension || height > maxDimension {
		src = imaging.Fit(src, maxDimension, maxDimension, imaging.Lanczos)
		bounds = src.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	// White background, then the source on top. Transparent regions in
	// the input must read as white, not black, for thresholding.
	flat := imaging.New(width, height, color.White)
	flat = imaging.Overlay(flat, src, image.Pt(0, 0), 1.0)

	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := flat.PixOffset(x, y)
			r := float64(flat.Pix[i])
			g := float64(flat.Pix[i+1])
			b := float64(flat.Pix[i+2])

			lum := 0.299*r + 0.587*g + 0.114*b
			contrast := (lum-128)*contrastFactor + 128

			var bin uint8
			if contrast >= binThreshold {
				bin = 255
			}
			out.SetGray(x, y, color.Gray{Y: bin})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
