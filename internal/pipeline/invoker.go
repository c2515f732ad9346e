package pipeline

import (
	"image"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/detection"
	"github.com/ironsheep/dot-finder/internal/imaging"
)

// DetectFunc is the marker detector signature. detection.FindDotPairs is
// the production implementation; tests substitute stubs.
type DetectFunc func(gray *image.Gray, roi image.Rectangle, p detection.Params, u detection.Undistorter) []detection.Hypothesis

// Invoker runs the marker detector on color frames.
type Invoker struct {
	detect DetectFunc
}

// NewInvoker returns an Invoker calling fn, or detection.FindDotPairs when
// fn is nil.
func NewInvoker(fn DetectFunc) *Invoker {
	if fn == nil {
		fn = detection.FindDotPairs
	}
	return &Invoker{detect: fn}
}

// Detect converts frame to intensity and runs the detector over the whole
// frame with the tolerances of cfg and the lens model of cam.
//
// Hypotheses come back in detector order. A nil cam means calibration is
// not available yet; the detector is not called and nil is returned.
func (inv *Invoker) Detect(frame image.Image, cam *calibration.Camera, cfg config.ThresholdConfig) []detection.Hypothesis {
	if cam == nil {
		return nil
	}
	gray := imaging.Luma(frame)
	return inv.detect(gray, gray.Bounds(), DetectionParams(cfg), cam)
}

// DetectionParams extracts the detector tolerances from cfg.
func DetectionParams(cfg config.ThresholdConfig) detection.Params {
	return detection.Params{
		Threshold:               cfg.Threshold,
		BlurSigma:               cfg.BlurSigma,
		MinBlobArea:             cfg.MinBlobArea,
		MaxBlobArea:             cfg.MaxBlobArea,
		MaxCircularDistortion:   cfg.MaxCircularDistortion,
		EllipseRatioMin:         cfg.EllipseRatioMin,
		EllipseRatioMax:         cfg.EllipseRatioMax,
		RadiusRatioTolerance:    cfg.RadiusRatioTolerance,
		IntensityRatioTolerance: cfg.IntensityRatioTolerance,
		HorizontalLineAngle:     cfg.HorizontalLineAngle,
		LineAngleTolerance:      cfg.LineAngleTolerance,
		PositionRatio:           cfg.PositionRatio,
		PositionRatioTolerance:  cfg.PositionRatioTolerance,
	}
}
