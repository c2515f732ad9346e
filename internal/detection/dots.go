package detection

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/imaging"
)

// Point is a pixel coordinate with sub-pixel precision.
type Point = calibration.Point

// Undistorter maps distorted pixel coordinates to undistorted ones.
// *calibration.Camera satisfies it.
type Undistorter interface {
	UndistortPoints(pts []Point) []Point
}

// Params holds the detector tolerances. Angles are in degrees.
type Params struct {
	Threshold int
	BlurSigma float64

	MinBlobArea           int
	MaxBlobArea           int
	MaxCircularDistortion float64
	EllipseRatioMin       float64
	EllipseRatioMax       float64

	RadiusRatioTolerance    float64
	IntensityRatioTolerance float64
	HorizontalLineAngle     float64
	LineAngleTolerance      float64
	PositionRatio           float64
	PositionRatioTolerance  float64
}

// Hypothesis is one candidate dot pair.
//
// Distorted holds the chain of dot centers as seen in the raw frame,
// ordered left to right. Undistorted holds the same chain after lens
// correction. Both chains have the same length.
type Hypothesis struct {
	Distorted   []Point
	Undistorted []Point
}

// FindDotPairs detects pairs of bright elliptical dots in an intensity frame.
//
// Parameters:
//   - gray: Single-channel intensity frame.
//   - roi: Area to search. It is intersected with the frame bounds.
//   - p: Blob and pair tolerances.
//   - u: Lens model used to undistort the chains. If nil the Undistorted
//     chains are left empty.
//
// Returns the qualifying pairs in detection order. An empty result is a
// normal outcome.
//
// # Algorithm
//
//  1. Smoothing: Gaussian blur when BlurSigma > 0
//  2. Thresholding: pixels whose rank reaches Threshold are foreground.
//     The rank is computed in floating point and truncated, so a pixel
//     exactly at Threshold may land one level below it
//  3. Blob extraction: 8-connected flood fill inside roi
//  4. Blob filtering: area bounds, axis ratio within [EllipseRatioMin,
//     EllipseRatioMax], fill distortion at most MaxCircularDistortion
//  5. Pairing: blobs are visited in raster order; each blob pairs with the
//     first later unused blob that passes the radius ratio, intensity
//     ratio, line angle and position ratio checks
//  6. Undistortion: each [left, right] chain is mapped through u
func FindDotPairs(gray *image.Gray, roi image.Rectangle, p Params, u Undistorter) []Hypothesis {
	roi = roi.Intersect(gray.Bounds())
	if roi.Empty() {
		return nil
	}

	src := gray
	if p.BlurSigma > 0 {
		src = imaging.Luma(blur.Gaussian(gray, p.BlurSigma))
	}
	mask := segment.Threshold(src, clampByte(p.Threshold))

	candidates := make([]Blob, 0)
	for _, b := range findBlobs(mask, src, roi) {
		if acceptBlob(b, p) {
			candidates = append(candidates, b)
		}
	}

	used := make([]bool, len(candidates))
	hyps := make([]Hypothesis, 0)
	for i := range candidates {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			left, right, ok := acceptPair(candidates[i], candidates[j], p)
			if !ok {
				continue
			}
			used[i], used[j] = true, true

			chain := []Point{left.Center, right.Center}
			h := Hypothesis{Distorted: chain}
			if u != nil {
				h.Undistorted = u.UndistortPoints(chain)
			}
			hyps = append(hyps, h)
			break
		}
	}

	return hyps
}

// acceptBlob applies the single-dot filters.
func acceptBlob(b Blob, p Params) bool {
	if b.Area < p.MinBlobArea || b.Area > p.MaxBlobArea {
		return false
	}
	ratio := b.AxisRatio()
	if ratio < p.EllipseRatioMin || ratio > p.EllipseRatioMax {
		return false
	}
	return b.FillDistortion() <= p.MaxCircularDistortion
}

// acceptPair applies the pair filters and returns the blobs ordered left
// to right.
func acceptPair(a, b Blob, p Params) (left, right Blob, ok bool) {
	left, right = a, b
	if b.Center.X < a.Center.X || (b.Center.X == a.Center.X && b.Center.Y < a.Center.Y) {
		left, right = b, a
	}

	if ratioDeviation(left.Radius, right.Radius) > p.RadiusRatioTolerance {
		return left, right, false
	}
	if ratioDeviation(left.MeanIntensity, right.MeanIntensity) > p.IntensityRatioTolerance {
		return left, right, false
	}

	dx := right.Center.X - left.Center.X
	dy := right.Center.Y - left.Center.Y
	if angleBetween(math.Atan2(dy, dx)*180/math.Pi, p.HorizontalLineAngle) > p.LineAngleTolerance {
		return left, right, false
	}

	if p.PositionRatio > 0 {
		meanRadius := (left.Radius + right.Radius) / 2
		if meanRadius == 0 {
			return left, right, false
		}
		ratio := math.Hypot(dx, dy) / meanRadius
		if math.Abs(ratio-p.PositionRatio) > p.PositionRatioTolerance*p.PositionRatio {
			return left, right, false
		}
	}

	return left, right, true
}

// ratioDeviation returns 1 - min/max for two positive quantities.
func ratioDeviation(a, b float64) float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return 1 - lo/hi
}

// angleBetween returns the unsigned angle in degrees between two line
// directions, folded into [0, 90].
func angleBetween(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 180)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
