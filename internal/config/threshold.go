package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/dot-finder/internal/imaging"
)

// MaxHue is the largest 8-bit hue value (hue is stored as degrees / 2).
const MaxHue = imaging.MaxHue

// maxFileSize bounds configuration files read from disk.
const maxFileSize = 1 * 1024 * 1024

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid threshold configuration")

// ThresholdConfig is the complete set of tunable detection and visualization
// parameters. It is always handled as a value: a frame works on one copy
// from start to finish.
type ThresholdConfig struct {
	// HSV band used for the visualization mask. LowHue may be negative, in
	// which case the band wraps around MaxHue.
	HighHue int `json:"high_hue"`
	LowHue  int `json:"low_hue"`
	HighSat int `json:"high_sat"`
	LowSat  int `json:"low_sat"`
	HighVal int `json:"high_val"`
	LowVal  int `json:"low_val"`

	// Threshold is the intensity level at or above which a pixel belongs to
	// a dot.
	Threshold int `json:"threshold"`
	// BlurSigma smooths the intensity frame before thresholding. 0 disables.
	BlurSigma float64 `json:"blur_sigma"`

	MinBlobArea             int     `json:"min_blob_area"`
	MaxBlobArea             int     `json:"max_blob_area"`
	MaxCircularDistortion   float64 `json:"max_circular_distortion"`
	EllipseRatioMin         float64 `json:"ellipse_ratio_min"`
	EllipseRatioMax         float64 `json:"ellipse_ratio_max"`
	PositionRatio           float64 `json:"position_ratio"` // 0 disables the check
	PositionRatioTolerance  float64 `json:"position_ratio_tolerance"`
	LineAngleTolerance      float64 `json:"line_angle_tolerance"`  // degrees
	HorizontalLineAngle     float64 `json:"horizontal_line_angle"` // degrees
	RadiusRatioTolerance    float64 `json:"radius_ratio_tolerance"`
	IntensityRatioTolerance float64 `json:"intensity_ratio_tolerance"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() ThresholdConfig {
	return ThresholdConfig{
		HighHue:                 20,
		LowHue:                  -10,
		HighSat:                 255,
		LowSat:                  0,
		HighVal:                 255,
		LowVal:                  200,
		Threshold:               200,
		BlurSigma:               0,
		MinBlobArea:             10,
		MaxBlobArea:             5000,
		MaxCircularDistortion:   0.35,
		EllipseRatioMin:         0.5,
		EllipseRatioMax:         1.0,
		PositionRatio:           0,
		PositionRatioTolerance:  0.5,
		LineAngleTolerance:      15,
		HorizontalLineAngle:     0,
		RadiusRatioTolerance:    0.5,
		IntensityRatioTolerance: 0.5,
	}
}

// Validate checks every field range. It returns the first problem found,
// wrapped in ErrInvalidConfig.
func (c ThresholdConfig) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.LowHue >= -MaxHue && c.LowHue <= MaxHue, fmt.Sprintf("low_hue %d outside [-%d,%d]", c.LowHue, MaxHue, MaxHue)},
		{c.HighHue >= 0 && c.HighHue <= MaxHue, fmt.Sprintf("high_hue %d outside [0,%d]", c.HighHue, MaxHue)},
		{c.LowHue < 0 || c.LowHue <= c.HighHue, fmt.Sprintf("low_hue %d greater than high_hue %d", c.LowHue, c.HighHue)},
		{inByteRange(c.LowSat) && inByteRange(c.HighSat), "saturation bounds outside [0,255]"},
		{inByteRange(c.LowVal) && inByteRange(c.HighVal), "value bounds outside [0,255]"},
		{c.LowSat <= c.HighSat, fmt.Sprintf("low_sat %d greater than high_sat %d", c.LowSat, c.HighSat)},
		{c.LowVal <= c.HighVal, fmt.Sprintf("low_val %d greater than high_val %d", c.LowVal, c.HighVal)},
		{inByteRange(c.Threshold), fmt.Sprintf("threshold %d outside [0,255]", c.Threshold)},
		{c.BlurSigma >= 0, "blur_sigma must be >= 0"},
		{c.MinBlobArea >= 1, "min_blob_area must be >= 1"},
		{c.MinBlobArea <= c.MaxBlobArea, fmt.Sprintf("min_blob_area %d greater than max_blob_area %d", c.MinBlobArea, c.MaxBlobArea)},
		{c.MaxCircularDistortion >= 0, "max_circular_distortion must be >= 0"},
		{c.EllipseRatioMin > 0 && c.EllipseRatioMin <= c.EllipseRatioMax && c.EllipseRatioMax <= 1,
			fmt.Sprintf("ellipse ratio bounds [%g,%g] must satisfy 0 < min <= max <= 1", c.EllipseRatioMin, c.EllipseRatioMax)},
		{c.PositionRatio >= 0, "position_ratio must be >= 0"},
		{c.PositionRatioTolerance >= 0, "position_ratio_tolerance must be >= 0"},
		{c.LineAngleTolerance >= 0 && c.LineAngleTolerance <= 90, "line_angle_tolerance must be within [0,90]"},
		{c.RadiusRatioTolerance >= 0, "radius_ratio_tolerance must be >= 0"},
		{c.IntensityRatioTolerance >= 0, "intensity_ratio_tolerance must be >= 0"},
	}

	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, ch.msg)
		}
	}
	return nil
}

func inByteRange(v int) bool { return v >= 0 && v <= 255 }

// LoadFile reads a ThresholdConfig from a JSON file.
//
// Fields omitted from the file keep their Default values, so partial files
// are safe. The file must have a .json extension and be at most 1 MiB.
func LoadFile(path string) (ThresholdConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return ThresholdConfig{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return ThresholdConfig{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return ThresholdConfig{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return ThresholdConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Merge(Default(), data)
	if err != nil {
		return ThresholdConfig{}, err
	}
	return cfg, nil
}

// Merge decodes a JSON object on top of base and validates the result.
// Base is not modified.
func Merge(base ThresholdConfig, data []byte) (ThresholdConfig, error) {
	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ThresholdConfig{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ThresholdConfig{}, err
	}
	return cfg, nil
}
