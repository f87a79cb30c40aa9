package jpeg

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Encode writes img as a baseline JPEG at quality (1-100).
func Encode(w io.Writer, img image.Image, quality int) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("jpeg encode failed: %w", err)
	}

	return nil
}
