package calibration

import (
	"gonum.org/v1/gonum/mat"
)

const (
	maxDistortionCoeffs = 8
	undistortIterations = 5
)

// Point is a pixel coordinate with sub-pixel precision.
type Point struct {
	X float64
	Y float64
}

// UndistortPoints maps distorted pixel coordinates to undistorted ones.
//
// Each point is normalized with the inverse of K, corrected for lens
// distortion by fixed-point iteration of the Brown-Conrady model (radial
// k1..k6 in the rational form, tangential p1, p2) and re-projected with the
// left 3x3 block of P. When P is all zero the camera is treated as
// unrectified and K is used for re-projection instead.
//
// The input slice is not modified. Output order matches input order.
func (c *Camera) UndistortPoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	if len(pts) == 0 {
		return out
	}

	reproject := c.reprojection()
	var k [maxDistortionCoeffs]float64
	copy(k[:], c.d)
	distorted := false
	for _, v := range k {
		if v != 0 {
			distorted = true
			break
		}
	}

	src := mat.NewVecDense(3, nil)
	norm := mat.NewVecDense(3, nil)
	proj := mat.NewVecDense(3, nil)

	for i, p := range pts {
		src.SetVec(0, p.X)
		src.SetVec(1, p.Y)
		src.SetVec(2, 1)
		norm.MulVec(c.kInv, src)

		x := norm.AtVec(0) / norm.AtVec(2)
		y := norm.AtVec(1) / norm.AtVec(2)
		if distorted {
			x, y = removeDistortion(x, y, k)
		}

		src.SetVec(0, x)
		src.SetVec(1, y)
		src.SetVec(2, 1)
		proj.MulVec(reproject, src)

		w := proj.AtVec(2)
		if w == 0 {
			out[i] = Point{X: proj.AtVec(0), Y: proj.AtVec(1)}
			continue
		}
		out[i] = Point{X: proj.AtVec(0) / w, Y: proj.AtVec(1) / w}
	}
	return out
}

// reprojection returns the 3x3 matrix used to map normalized coordinates
// back to pixels.
func (c *Camera) reprojection() mat.Matrix {
	left := c.p.Slice(0, 3, 0, 3)
	if mat.Norm(left, 1) == 0 {
		return c.k
	}
	return left
}

// removeDistortion inverts the distortion model for one normalized point.
//
// k holds k1, k2, p1, p2, k3, k4, k5, k6. If the model becomes degenerate
// (negative inverse radial factor) the uncorrected point is returned.
func removeDistortion(x0, y0 float64, k [maxDistortionCoeffs]float64) (float64, float64) {
	k1, k2, p1, p2, k3, k4, k5, k6 := k[0], k[1], k[2], k[3], k[4], k[5], k[6], k[7]

	x, y := x0, y0
	for iter := 0; iter < undistortIterations; iter++ {
		r2 := x*x + y*y
		icdist := (1 + ((k6*r2+k5)*r2+k4)*r2) / (1 + ((k3*r2+k2)*r2+k1)*r2)
		if icdist < 0 {
			return x0, y0
		}
		deltaX := 2*p1*x*y + p2*(r2+2*x*x)
		deltaY := p1*(r2+2*y*y) + 2*p2*x*y
		x = (x0 - deltaX) * icdist
		y = (y0 - deltaY) * icdist
	}
	return x, y
}

// Distort applies the distortion model to pixel coordinates. It is the
// forward counterpart of UndistortPoints for an unrectified camera
// (re-projection by K) and exists mainly to build test fixtures.
func (c *Camera) Distort(pts []Point) []Point {
	var k [maxDistortionCoeffs]float64
	copy(k[:], c.d)
	k1, k2, p1, p2, k3, k4, k5, k6 := k[0], k[1], k[2], k[3], k[4], k[5], k[6], k[7]

	fx, fy := c.FocalX(), c.FocalY()
	cx, cy := c.PrincipalX(), c.PrincipalY()

	out := make([]Point, len(pts))
	for i, p := range pts {
		x := (p.X - cx) / fx
		y := (p.Y - cy) / fy
		r2 := x*x + y*y
		radial := (1 + ((k3*r2+k2)*r2+k1)*r2) / (1 + ((k6*r2+k5)*r2+k4)*r2)
		xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
		yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y
		out[i] = Point{X: xd*fx + cx, Y: yd*fy + cy}
	}
	return out
}
