package calibration

import "errors"

var (
	// ErrNotReady is returned when calibration is requested before any
	// camera info has been captured.
	ErrNotReady = errors.New("camera calibration not received yet")

	// ErrInvalidCalibration is returned when a camera info message cannot be
	// turned into a usable camera model.
	ErrInvalidCalibration = errors.New("invalid camera calibration")
)
