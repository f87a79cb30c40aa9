package heatmap

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/compresslab/compressor/src/containers"
	"github.com/compresslab/compressor/src/containers/png"
)

const (
	// MaxWidth caps the working width of a heatmap.
	MaxWidth = 1400
	// Boost scales normalised distances so moderate differences stay visible.
	Boost = 3
)

// maxDistance is the RGB distance between black and white.
var maxDistance = math.Sqrt(3 * 255 * 255)

// Compute decodes both images and returns the PNG encoded heatmap.
func Compute(original, compressed []byte) ([]byte, error) {
	a, err := containers.Decode(original)
	if err != nil {
		return nil, err
	}

	b, err := containers.Decode(compressed)
	if err != nil {
		return nil, err
	}

	return png.Encode(Diff(a, b))
}

// WorkingSize is the smaller of both sizes, scaled down to MaxWidth keeping
// the aspect ratio.
func WorkingSize(a, b image.Rectangle) (int, int) {
	w := min(a.Dx(), b.Dx())
	h := min(a.Dy(), b.Dy())

	if w > MaxWidth {
		h = int(math.Round(float64(h) * MaxWidth / float64(w)))
		w = MaxWidth
	}

	return max(w, 1), max(h, 1)
}

// Diff resamples a and b to a shared size and maps the per pixel colour
// distance onto a transparent to yellow to red ramp.
func Diff(a, b image.Image) *image.NRGBA {
	w, h := WorkingSize(a.Bounds(), b.Bounds())
	rect := image.Rect(0, 0, w, h)

	na := image.NewNRGBA(rect)
	xdraw.BiLinear.Scale(na, rect, a, a.Bounds(), xdraw.Src, nil)

	nb := image.NewNRGBA(rect)
	xdraw.BiLinear.Scale(nb, rect, b, b.Bounds(), xdraw.Src, nil)

	out := image.NewNRGBA(rect)
	for i := 0; i < len(out.Pix); i += 4 {
		dr := float64(na.Pix[i]) - float64(nb.Pix[i])
		dg := float64(na.Pix[i+1]) - float64(nb.Pix[i+1])
		db := float64(na.Pix[i+2]) - float64(nb.Pix[i+2])

		d := math.Sqrt(dr*dr+dg*dg+db*db) / maxDistance
		c := Ramp(math.Min(1, d*Boost))

		out.Pix[i] = c.R
		out.Pix[i+1] = c.G
		out.Pix[i+2] = c.B
		out.Pix[i+3] = c.A
	}

	return out
}

// Ramp maps t in [0,1] to a colour. Red rises over [0.33,1], green rises over
// [0,0.66] and falls back over [0.66,1], alpha follows t.
func Ramp(t float64) color.NRGBA {
	t = clamp(t)

	r := 0.0
	if t >= 0.33 {
		r = (t - 0.33) / 0.67
	}

	g := (1 - t) / 0.34
	if t <= 0.66 {
		g = t / 0.66
	}

	return color.NRGBA{
		R: channel(r),
		G: channel(g),
		B: 0,
		A: channel(t),
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v) * 255))
}
