package calibration

import (
	"fmt"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/dot-finder/internal/messages"
)

// Camera is an immutable pinhole camera model built from one CameraInfo.
//
// Accessors that return matrices return copies, so a Camera can be shared
// freely between goroutines once constructed.
type Camera struct {
	k          *mat.Dense // 3x3 intrinsic matrix
	kInv       *mat.Dense // inverse of k, used to normalize pixels
	d          []float64  // distortion coefficients k1,k2,p1,p2[,k3[,k4,k5,k6]]
	p          *mat.Dense // 3x4 projection matrix
	projection *mat.Dense // reduced 3x4 projection built from p
	model      string
	width      int
	height     int
}

// FromInfo builds a Camera from a camera info message.
//
// K must hold exactly 9 values and P exactly 12, both row-major. The
// distortion vector may be empty (no distortion) or hold up to 8 values;
// extra coefficients are rejected because the undistortion model would
// silently ignore them. K must be invertible.
func FromInfo(info messages.CameraInfo) (*Camera, error) {
	if len(info.K) != 9 {
		return nil, fmt.Errorf("%w: K has %d values, want 9", ErrInvalidCalibration, len(info.K))
	}
	if len(info.P) != 12 {
		return nil, fmt.Errorf("%w: P has %d values, want 12", ErrInvalidCalibration, len(info.P))
	}
	if len(info.D) > maxDistortionCoeffs {
		return nil, fmt.Errorf("%w: %d distortion coefficients, at most %d supported",
			ErrInvalidCalibration, len(info.D), maxDistortionCoeffs)
	}

	k := mat.NewDense(3, 3, append([]float64(nil), info.K...))
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, fmt.Errorf("%w: K is not invertible: %v", ErrInvalidCalibration, err)
	}

	p := mat.NewDense(3, 4, append([]float64(nil), info.P...))

	// The reduced projection keeps only focal lengths and principal point
	// of the rectified camera.
	projection := mat.NewDense(3, 4, nil)
	projection.Set(0, 0, info.P[0])
	projection.Set(0, 2, info.P[2])
	projection.Set(1, 1, info.P[5])
	projection.Set(1, 2, info.P[6])
	projection.Set(2, 2, 1)

	return &Camera{
		k:          k,
		kInv:       &kInv,
		d:          append([]float64(nil), info.D...),
		p:          p,
		projection: projection,
		model:      info.DistortionModel,
		width:      int(info.Width),
		height:     int(info.Height),
	}, nil
}

// K returns a copy of the 3x3 intrinsic matrix.
func (c *Camera) K() *mat.Dense { return mat.DenseCopyOf(c.k) }

// P returns a copy of the 3x4 projection matrix.
func (c *Camera) P() *mat.Dense { return mat.DenseCopyOf(c.p) }

// Projection returns a copy of the reduced 3x4 camera projection.
func (c *Camera) Projection() *mat.Dense { return mat.DenseCopyOf(c.projection) }

// Distortion returns a copy of the distortion coefficients.
func (c *Camera) Distortion() []float64 { return append([]float64(nil), c.d...) }

// DistortionModel returns the model name carried by the calibration message.
func (c *Camera) DistortionModel() string { return c.model }

// Size returns the calibrated image size. Zero if the message omitted it.
func (c *Camera) Size() (width, height int) { return c.width, c.height }

// FocalX returns K[0][0].
func (c *Camera) FocalX() float64 { return c.k.At(0, 0) }

// FocalY returns K[1][1].
func (c *Camera) FocalY() float64 { return c.k.At(1, 1) }

// PrincipalX returns K[0][2].
func (c *Camera) PrincipalX() float64 { return c.k.At(0, 2) }

// PrincipalY returns K[1][2].
func (c *Camera) PrincipalY() float64 { return c.k.At(1, 2) }

// Store holds the camera calibration for one stream.
//
// The first valid calibration wins and is never replaced. Readers and the
// single successful writer synchronize through an atomic pointer, so Get
// needs no lock and never observes a partially built Camera.
type Store struct {
	cam atomic.Pointer[Camera]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetIfAbsent captures info if no calibration has been captured yet.
//
// It reports whether this call installed the calibration. Once the store is
// ready every later call is a no-op returning (false, nil). A malformed
// message returns an error and leaves the store untouched.
func (s *Store) SetIfAbsent(info messages.CameraInfo) (bool, error) {
	if s.cam.Load() != nil {
		return false, nil
	}
	cam, err := FromInfo(info)
	if err != nil {
		return false, err
	}
	return s.cam.CompareAndSwap(nil, cam), nil
}

// IsReady reports whether a calibration has been captured.
func (s *Store) IsReady() bool {
	return s.cam.Load() != nil
}

// Get returns the captured calibration or ErrNotReady.
func (s *Store) Get() (*Camera, error) {
	cam := s.cam.Load()
	if cam == nil {
		return nil, ErrNotReady
	}
	return cam, nil
}
