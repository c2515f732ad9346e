package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// MaxHue is the largest hue value in the 8-bit HSV representation.
const MaxHue = 179

// HSV is a color in 8-bit HSV space.
//
// The scaling matches the common 8-bit convention used by camera tooling:
//   - H: 0-179 (degrees / 2, so 0=red, 60=green, 120=blue)
//   - S: 0-255 (0=gray, 255=fully saturated)
//   - V: 0-255 (0=black, 255=full brightness)
type HSV struct {
	H uint8
	S uint8
	V uint8
}

// HSVOf converts any color to 8-bit HSV.
//
// Fully transparent colors convert to black. Hue is rounded to the nearest
// half degree; a hue that rounds to 180 wraps to 0.
func HSVOf(c color.Color) HSV {
	col, ok := colorful.MakeColor(c)
	if !ok {
		return HSV{}
	}
	h, s, v := col.Hsv()

	hue := math.Round(h / 2)
	if hue > MaxHue {
		hue -= MaxHue + 1
	}
	return HSV{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// HSVImage is an image stored in 8-bit HSV, three bytes per pixel.
type HSVImage struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// At returns the HSV value at (x, y). Out-of-bounds coordinates return the
// zero value.
func (m *HSVImage) At(x, y int) HSV {
	if !(image.Point{X: x, Y: y}.In(m.Rect)) {
		return HSV{}
	}
	i := (y-m.Rect.Min.Y)*m.Stride + (x-m.Rect.Min.X)*3
	return HSV{H: m.Pix[i], S: m.Pix[i+1], V: m.Pix[i+2]}
}

// Bounds returns the image rectangle.
func (m *HSVImage) Bounds() image.Rectangle { return m.Rect }

// ToHSV converts every pixel of img to 8-bit HSV.
func ToHSV(img image.Image) *HSVImage {
	b := img.Bounds()
	dst := &HSVImage{
		Pix:    make([]uint8, b.Dx()*b.Dy()*3),
		Stride: b.Dx() * 3,
		Rect:   b,
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			p := HSVOf(img.At(x, y))
			i := (x - b.Min.X) * 3
			row[i], row[i+1], row[i+2] = p.H, p.S, p.V
		}
	}
	return dst
}

// HSVRange is a band of HSV values, inclusive at both ends.
//
// A negative LowH describes a hue band that crosses the 0/MaxHue boundary:
// the band covers [MaxHue+LowH, MaxHue] together with [0, HighH].
type HSVRange struct {
	LowH, HighH int
	LowS, HighS int
	LowV, HighV int
}

// Wraps reports whether the hue band crosses the wraparound point.
func (r HSVRange) Wraps() bool { return r.LowH < 0 }

// Split returns the linear sub-ranges that make up r. A wrapping range
// yields two sub-ranges sharing the saturation and value bounds; any other
// range yields itself.
func (r HSVRange) Split() []HSVRange {
	if !r.Wraps() {
		return []HSVRange{r}
	}
	upper := r
	upper.LowH, upper.HighH = MaxHue+r.LowH, MaxHue
	lower := r
	lower.LowH = 0
	return []HSVRange{upper, lower}
}

// Contains reports whether p falls inside the band, honoring hue wraparound.
func (r HSVRange) Contains(p HSV) bool {
	for _, sub := range r.Split() {
		if InRange(p, sub) {
			return true
		}
	}
	return false
}

// InRange tests p against a linear range without any wraparound handling.
func InRange(p HSV, r HSVRange) bool {
	h, s, v := int(p.H), int(p.S), int(p.V)
	return h >= r.LowH && h <= r.HighH &&
		s >= r.LowS && s <= r.HighS &&
		v >= r.LowV && v <= r.HighV
}

// ThresholdMask builds a binary mask of the pixels of hsv inside r.
//
// Mask pixels are 255 inside the band and 0 outside. When r wraps, each
// linear sub-range is thresholded separately and the results are OR-ed; a
// single linear test with a negative lower hue bound would match the wrong
// pixels.
func ThresholdMask(hsv *HSVImage, r HSVRange) *image.Gray {
	b := hsv.Rect
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for _, sub := range r.Split() {
		part := inRangeMask(hsv, sub)
		for i := range mask.Pix {
			mask.Pix[i] |= part.Pix[i]
		}
	}
	return mask
}

// inRangeMask thresholds hsv against one linear range.
func inRangeMask(hsv *HSVImage, r HSVRange) *image.Gray {
	b := hsv.Rect
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := hsv.Pix[y*hsv.Stride:]
		out := mask.Pix[y*mask.Stride:]
		for x := 0; x < b.Dx(); x++ {
			p := HSV{H: row[x*3], S: row[x*3+1], V: row[x*3+2]}
			if InRange(p, r) {
				out[x] = 0xFF
			}
		}
	}
	return mask
}
