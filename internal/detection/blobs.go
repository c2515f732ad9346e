package detection

import (
	"image"
	"math"
)

// Blob is a connected bright region of the thresholded frame.
type Blob struct {
	// Center is the intensity-weighted centroid in pixel coordinates.
	Center Point

	// Area is the pixel count.
	Area int

	// Radius is the radius of a disc with the same area.
	Radius float64

	// SemiMajor and SemiMinor are the semi-axes of the ellipse with the same
	// second moments as the blob.
	SemiMajor float64
	SemiMinor float64

	// MeanIntensity is the average intensity of the blob pixels (0-255).
	MeanIntensity float64

	// Bounds is the bounding box (inclusive min, exclusive max).
	Bounds image.Rectangle
}

// AxisRatio returns SemiMinor / SemiMajor, 1 for a perfect circle.
func (b Blob) AxisRatio() float64 {
	if b.SemiMajor == 0 {
		return 0
	}
	return b.SemiMinor / b.SemiMajor
}

// FillDistortion measures how far the blob is from a filled ellipse:
// |1 - area / (pi * a * b)|. A filled ellipse scores about 0; rings, blobs
// with holes and irregular shapes score higher.
func (b Blob) FillDistortion() float64 {
	ellipse := math.Pi * b.SemiMajor * b.SemiMinor
	if ellipse == 0 {
		return math.Inf(1)
	}
	return math.Abs(1 - float64(b.Area)/ellipse)
}

// findBlobs groups the non-zero pixels of mask inside roi into 8-connected
// blobs and measures them against the intensity image gray.
//
// Blobs are returned in raster order of their first pixel. The flood fill
// is iterative so large regions cannot overflow the stack.
func findBlobs(mask, gray *image.Gray, roi image.Rectangle) []Blob {
	width, height := roi.Dx(), roi.Dy()
	visited := make([]bool, width*height)

	blobs := make([]Blob, 0)
	var pixels []image.Point
	var stack []image.Point

	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			idx := (y-roi.Min.Y)*width + (x - roi.Min.X)
			if visited[idx] || mask.GrayAt(x, y).Y == 0 {
				continue
			}

			pixels = pixels[:0]
			stack = append(stack[:0], image.Point{X: x, Y: y})
			visited[idx] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pixels = append(pixels, p)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						n := image.Point{X: p.X + dx, Y: p.Y + dy}
						if !n.In(roi) {
							continue
						}
						nIdx := (n.Y-roi.Min.Y)*width + (n.X - roi.Min.X)
						if visited[nIdx] || mask.GrayAt(n.X, n.Y).Y == 0 {
							continue
						}
						visited[nIdx] = true
						stack = append(stack, n)
					}
				}
			}

			blobs = append(blobs, measureBlob(pixels, gray))
		}
	}

	return blobs
}

// measureBlob computes centroid, moments and intensity statistics.
func measureBlob(pixels []image.Point, gray *image.Gray) Blob {
	n := float64(len(pixels))

	var sumX, sumY, sumI, sumWX, sumWY float64
	bounds := image.Rectangle{Min: pixels[0], Max: pixels[0].Add(image.Point{X: 1, Y: 1})}
	for _, p := range pixels {
		w := float64(gray.GrayAt(p.X, p.Y).Y)
		sumX += float64(p.X)
		sumY += float64(p.Y)
		sumI += w
		sumWX += w * float64(p.X)
		sumWY += w * float64(p.Y)
		bounds = bounds.Union(image.Rectangle{Min: p, Max: p.Add(image.Point{X: 1, Y: 1})})
	}

	meanX, meanY := sumX/n, sumY/n
	center := Point{X: meanX, Y: meanY}
	if sumI > 0 {
		center = Point{X: sumWX / sumI, Y: sumWY / sumI}
	}

	// Central second moments. Each pixel is a unit square, which adds 1/12
	// of variance per axis and keeps single-pixel blobs non-degenerate.
	var mu20, mu02, mu11 float64
	for _, p := range pixels {
		dx := float64(p.X) - meanX
		dy := float64(p.Y) - meanY
		mu20 += dx * dx
		mu02 += dy * dy
		mu11 += dx * dy
	}
	mu20 = mu20/n + 1.0/12
	mu02 = mu02/n + 1.0/12
	mu11 /= n

	common := (mu20 + mu02) / 2
	diff := math.Sqrt(((mu20-mu02)/2)*((mu20-mu02)/2) + mu11*mu11)
	lambda1 := common + diff
	lambda2 := math.Max(common-diff, 0)

	return Blob{
		Center:        center,
		Area:          len(pixels),
		Radius:        math.Sqrt(n / math.Pi),
		SemiMajor:     2 * math.Sqrt(lambda1),
		SemiMinor:     2 * math.Sqrt(lambda2),
		MeanIntensity: sumI / n,
		Bounds:        bounds,
	}
}
