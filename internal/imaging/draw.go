package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// clipped restricts drawing on an image to a rectangle. Writes outside the
// rectangle are dropped.
type clipped struct {
	draw.Image
	r image.Rectangle
}

func (c clipped) Bounds() image.Rectangle { return c.r }

func (c clipped) Set(x, y int, col color.Color) {
	if (image.Point{X: x, Y: y}).In(c.r) {
		c.Image.Set(x, y, col)
	}
}

// Clip returns a view of dst whose Set ignores pixels outside r. The
// rectangle is intersected with the bounds of dst.
func Clip(dst draw.Image, r image.Rectangle) draw.Image {
	return clipped{Image: dst, r: r.Intersect(dst.Bounds())}
}

// DrawCircle draws the outline of a circle centered on c using the
// midpoint algorithm. Pixels outside clip are skipped.
func DrawCircle(dst draw.Image, c image.Point, radius int, col color.Color, clip image.Rectangle) {
	if radius < 0 {
		return
	}
	out := Clip(dst, clip)
	if radius == 0 {
		out.Set(c.X, c.Y, col)
		return
	}

	x, y := radius, 0
	err := 1 - radius
	for x >= y {
		for _, p := range [8]image.Point{
			{c.X + x, c.Y + y}, {c.X + y, c.Y + x},
			{c.X - y, c.Y + x}, {c.X - x, c.Y + y},
			{c.X - x, c.Y - y}, {c.X - y, c.Y - x},
			{c.X + y, c.Y - x}, {c.X + x, c.Y - y},
		} {
			out.Set(p.X, p.Y, col)
		}
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// DrawLine draws a one pixel wide segment from a to b (Bresenham). Pixels
// outside clip are skipped.
func DrawLine(dst draw.Image, a, b image.Point, col color.Color, clip image.Rectangle) {
	out := Clip(dst, clip)

	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	err := dx + dy
	x, y := a.X, a.Y
	for {
		out.Set(x, y, col)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// DrawLabel writes text with its baseline starting at pt using the 7x13
// fixed font. Glyph pixels outside clip are skipped.
func DrawLabel(dst draw.Image, pt image.Point, text string, col color.Color, clip image.Rectangle) {
	d := &font.Drawer{
		Dst:  Clip(dst, clip),
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}

// GrayToRGB expands a single-channel image to an opaque color image with
// equal channels.
func GrayToRGB(g *image.Gray) *image.NRGBA {
	return imaging.Clone(g)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
