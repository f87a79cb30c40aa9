package webp

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path"
	"strconv"

	"github.com/compresslab/compressor/src/containers/png"
	"github.com/compresslab/compressor/src/utils"
)

// Encode converts img to WebP by running cwebp inside dir. The directory must exist
// and is owned by the caller.
func Encode(ctx context.Context, cwebp string, dir string, img image.Image, quality int) ([]byte, error) {
	in := path.Join(dir, "input.png")
	out := path.Join(dir, "output.webp")

	if err := png.Save(img, in); err != nil {
		return nil, err
	}

	data, err := exec.CommandContext(ctx,
		cwebp,
		"-quiet",
		"-q", strconv.Itoa(quality),
		"-m", "4",
		"-alpha_q", "100",
		"-exact",
		in,
		"-o", out,
	).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("cwebp failed: %s : %s", err.Error(), utils.B2S(data))
	}

	return os.ReadFile(out)
}
