package containers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/compresslab/compressor/src/containers/jpeg"
	"github.com/compresslab/compressor/src/containers/webp"
	"github.com/compresslab/compressor/src/media"
)

// Codec re-encodes images into the supported output formats. JPEG is encoded
// in process, WebP is handed to the cwebp binary.
type Codec struct {
	WorkingDir string
	Cwebp      string
}

func NewCodec(workingDir, cwebp string) *Codec {
	if workingDir == "" {
		workingDir = os.TempDir()
	}
	if cwebp == "" {
		cwebp = "cwebp"
	}

	return &Codec{
		WorkingDir: workingDir,
		Cwebp:      cwebp,
	}
}

// Compress decodes data, caps its long edge at maxLongEdge (0 disables the cap)
// and encodes it as format at quality in (0,1].
func (c *Codec) Compress(ctx context.Context, data []byte, format media.Type, quality float64, maxLongEdge int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	img = Fit(img, maxLongEdge)
	q := Quality(quality)

	switch format {
	case media.JPEG:
		buf := bytes.Buffer{}
		if err := jpeg.Encode(&buf, img, q); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	case media.WEBP:
		dir := path.Join(c.WorkingDir, uuid.NewString())
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("mkdir failed: %s", err.Error())
		}
		defer os.RemoveAll(dir)

		return webp.Encode(ctx, c.Cwebp, dir, img, q)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// Fit shrinks img so that neither side exceeds maxLongEdge. Smaller images are
// returned untouched.
func Fit(img image.Image, maxLongEdge int) image.Image {
	b := img.Bounds()
	if maxLongEdge <= 0 || (b.Dx() <= maxLongEdge && b.Dy() <= maxLongEdge) {
		return img
	}

	return imaging.Fit(img, maxLongEdge, maxLongEdge, imaging.Lanczos)
}

// Quality maps a factor in (0,1] onto the 1-100 scale encoders expect.
func Quality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}

	return v
}
