package heatmap

import (
	"bytes"
	"image"
	"image/color"
	stdPng "image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresslab/compressor/src/containers"
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	buf := bytes.Buffer{}
	require.NoError(t, stdPng.Encode(&buf, img))
	return buf.Bytes()
}

func TestRamp(t *testing.T) {
	assert.Equal(t, color.NRGBA{0, 0, 0, 0}, Ramp(0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, Ramp(1))

	mid := Ramp(0.66)
	assert.Equal(t, uint8(255), mid.G)
	assert.Equal(t, uint8(126), mid.R)
	assert.Equal(t, uint8(0), mid.B)
	assert.Equal(t, uint8(168), mid.A)

	low := Ramp(0.2)
	assert.Equal(t, uint8(0), low.R)
	assert.Equal(t, uint8(77), low.G)

	assert.Equal(t, Ramp(1), Ramp(4))
	assert.Equal(t, Ramp(0), Ramp(-1))
}

func TestWorkingSize(t *testing.T) {
	w, h := WorkingSize(image.Rect(0, 0, 800, 600), image.Rect(0, 0, 400, 700))
	assert.Equal(t, 400, w)
	assert.Equal(t, 600, h)

	w, h = WorkingSize(image.Rect(0, 0, 2800, 1000), image.Rect(0, 0, 2800, 1000))
	assert.Equal(t, MaxWidth, w)
	assert.Equal(t, 500, h)
}

func TestDiffIdentical(t *testing.T) {
	img := fill(40, 20, color.NRGBA{10, 120, 200, 255})

	out := Diff(img, img)
	assert.Equal(t, image.Rect(0, 0, 40, 20), out.Bounds())
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(0), out.Pix[i])
	}
}

func TestDiffOpposite(t *testing.T) {
	black := fill(16, 16, color.NRGBA{0, 0, 0, 255})
	white := fill(32, 32, color.NRGBA{255, 255, 255, 255})

	out := Diff(black, white)
	assert.Equal(t, image.Rect(0, 0, 16, 16), out.Bounds())
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(8, 8))
}

func TestDiffSmallChange(t *testing.T) {
	a := fill(8, 8, color.NRGBA{100, 100, 100, 255})
	b := fill(8, 8, color.NRGBA{100, 100, 100, 255})
	b.SetNRGBA(3, 3, color.NRGBA{130, 100, 100, 255})

	out := Diff(a, b)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).A)
	// 30/441.67*3 = 0.2038
	assert.Equal(t, Ramp(30/maxDistance*Boost), out.NRGBAAt(3, 3))
}

func TestCompute(t *testing.T) {
	data, err := Compute(
		encode(t, fill(10, 10, color.NRGBA{0, 0, 0, 255})),
		encode(t, fill(10, 10, color.NRGBA{0, 0, 0, 255})),
	)
	require.NoError(t, err)

	img, err := containers.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	_, err = Compute([]byte("nope"), data)
	assert.ErrorIs(t, err, containers.ErrDecodeFailed)
}
