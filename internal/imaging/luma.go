package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Luma converts a color image to single-channel intensity.
//
// The conversion uses ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B),
// the same weighting camera drivers use for their mono streams. The result
// has origin (0,0) regardless of the source bounds.
func Luma(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}

	gs := imaging.Grayscale(img)
	b := gs.Bounds()
	dst := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		in := gs.Pix[y*gs.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out[x] = in[x*4]
		}
	}
	return dst
}
