// Package magnifier renders a round comparison lens: the original image on the
// left half, the compressed one on the right.
package magnifier

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

var (
	DividerColor = color.NRGBA{255, 255, 255, 255}
	BorderColor  = color.NRGBA{255, 255, 255, 255}
)

const (
	dividerWidth = 2
	borderWidth  = 2
)

// Geometry describes the cursor over the displayed original and the lens shape.
type Geometry struct {
	CursorX       float64
	CursorY       float64
	DisplayWidth  float64
	DisplayHeight float64
	Zoom          float64
	Diameter      int
}

// Center maps the cursor into the natural pixel space of bounds.
func (g Geometry) Center(bounds image.Rectangle) (float64, float64) {
	fx, fy := 0.5, 0.5
	if g.DisplayWidth > 0 {
		fx = g.CursorX / g.DisplayWidth
	}
	if g.DisplayHeight > 0 {
		fy = g.CursorY / g.DisplayHeight
	}

	return float64(bounds.Min.X) + fx*float64(bounds.Dx()),
		float64(bounds.Min.Y) + fy*float64(bounds.Dy())
}

// Side is the edge of the square sampled from the original.
func (g Geometry) Side() float64 {
	zoom := g.Zoom
	if zoom <= 0 {
		zoom = 1
	}

	return math.Max(1, float64(g.Diameter)/zoom)
}

// Regions returns the source rectangles sampled from the original and from the
// compressed image. The compressed region is scaled when its natural size differs.
func Regions(orig, comp image.Rectangle, g Geometry) (image.Rectangle, image.Rectangle) {
	cx, cy := g.Center(orig)
	side := g.Side()

	sx, sy := 1.0, 1.0
	if orig.Dx() > 0 && orig.Dy() > 0 {
		sx = float64(comp.Dx()) / float64(orig.Dx())
		sy = float64(comp.Dy()) / float64(orig.Dy())
	}

	o := square(cx, cy, side, side)
	c := square(
		float64(comp.Min.X)+(cx-float64(orig.Min.X))*sx,
		float64(comp.Min.Y)+(cy-float64(orig.Min.Y))*sy,
		side*sx,
		side*sy,
	)

	return o, c
}

func square(cx, cy, w, h float64) image.Rectangle {
	x0 := int(math.Round(cx - w/2))
	y0 := int(math.Round(cy - h/2))

	return image.Rect(x0, y0, x0+max(1, int(math.Round(w))), y0+max(1, int(math.Round(h))))
}

// Render draws the lens. Pixels outside the circle stay transparent, as does
// any part of the sampled square that falls outside its image.
func Render(orig, comp image.Image, g Geometry) *image.NRGBA {
	d := max(g.Diameter, 1)
	dst := image.NewNRGBA(image.Rect(0, 0, d, d))

	or, cr := Regions(orig.Bounds(), comp.Bounds(), g)

	sample(dst, orig, or, halfMask(d, true))
	sample(dst, comp, cr, halfMask(d, false))

	decorate(dst)

	return dst
}

// sample scales the part of sr that lies inside src onto the matching part of dst.
func sample(dst *image.NRGBA, src image.Image, sr image.Rectangle, mask *image.Alpha) {
	in := sr.Intersect(src.Bounds())
	if in.Empty() {
		return
	}

	d := dst.Bounds()
	fx := float64(d.Dx()) / float64(sr.Dx())
	fy := float64(d.Dy()) / float64(sr.Dy())
	dr := image.Rect(
		int(math.Round(float64(in.Min.X-sr.Min.X)*fx)),
		int(math.Round(float64(in.Min.Y-sr.Min.Y)*fy)),
		int(math.Round(float64(in.Max.X-sr.Min.X)*fx)),
		int(math.Round(float64(in.Max.Y-sr.Min.Y)*fy)),
	)

	xdraw.NearestNeighbor.Scale(dst, dr, src, in, xdraw.Src, &xdraw.Options{DstMask: mask})
}

func inside(x, y, d int) (bool, float64) {
	r := float64(d) / 2
	dx := float64(x) + 0.5 - r
	dy := float64(y) + 0.5 - r
	dist := math.Sqrt(dx*dx + dy*dy)

	return dist <= r, dist
}

// halfMask is opaque inside the left or right half of the lens circle.
func halfMask(d int, left bool) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, d, d))
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			in, _ := inside(x, y, d)
			if !in || (x < d/2) != left {
				continue
			}
			m.SetAlpha(x, y, color.Alpha{A: 0xFF})
		}
	}

	return m
}

func decorate(dst *image.NRGBA) {
	d := dst.Bounds().Dx()
	r := float64(d) / 2

	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			in, dist := inside(x, y, d)
			if !in {
				continue
			}
			if dist >= r-borderWidth {
				dst.SetNRGBA(x, y, BorderColor)
			} else if x >= d/2-dividerWidth/2 && x < d/2+dividerWidth/2 {
				dst.SetNRGBA(x, y, DividerColor)
			}
		}
	}
}
