// Package alpha decides whether an input image carries real transparency.
package alpha

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/media"
)

// SampleSize bounds the square the image is sampled into.
const SampleSize = 256

// Detect reports whether any sampled pixel is less than fully opaque. Only PNG
// input is inspected, and undecodable input counts as opaque.
func Detect(data []byte, mediaType media.Type) bool {
	if mediaType != media.PNG {
		return false
	}

	img, err := containers.Decode(data)
	if err != nil {
		return false
	}

	return Sample(img)
}

// Sample scans img after scaling it down into at most SampleSize x SampleSize.
func Sample(img image.Image) bool {
	b := img.Bounds()
	w, h := min(b.Dx(), SampleSize), min(b.Dy(), SampleSize)
	if w <= 0 || h <= 0 {
		return false
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	for i := 3; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] < 0xFF {
			return true
		}
	}

	return false
}
