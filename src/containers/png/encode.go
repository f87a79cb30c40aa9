package png

import (
	"bytes"
	"fmt"
	"image"
	nPng "image/png"

	"github.com/disintegration/imaging"
)

func Encode(img image.Image) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(nPng.BestSpeed)); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes img as a PNG file, used to feed external encoders.
func Save(img image.Image, file string) error {
	if err := imaging.Save(img, file, imaging.PNGCompressionLevel(nPng.NoCompression)); err != nil {
		return fmt.Errorf("png save failed: %w", err)
	}

	return nil
}
