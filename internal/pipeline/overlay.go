package pipeline

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/detection"
	"github.com/ironsheep/dot-finder/internal/imaging"
)

const (
	// markerRadius is the radius of the circle drawn on each dot.
	markerRadius = 6

	// markerGray stays visible on both mask values.
	markerGray = 128
)

// HSVRange returns the visualization color band of cfg.
func HSVRange(cfg config.ThresholdConfig) imaging.HSVRange {
	return imaging.HSVRange{
		LowH: cfg.LowHue, HighH: cfg.HighHue,
		LowS: cfg.LowSat, HighS: cfg.HighSat,
		LowV: cfg.LowVal, HighV: cfg.HighVal,
	}
}

// RenderOverlay builds the debug mask for one frame.
//
// Parameters:
//   - frame: The decoded color frame.
//   - hyps: Detector output; only the distorted chains are drawn.
//   - roi: Markers are clipped to this rectangle.
//   - cfg: Supplies the HSV band.
//
// Returns a single-channel image: 255 where the pixel falls in the HSV band
// of cfg, 0 elsewhere, with gray markers on top.
//
// # Algorithm
//
//  1. Convert the frame to 8-bit HSV
//  2. Threshold it against the band; a negative low hue splits the band in
//     two around the wraparound point
//  3. For every hypothesis, circle the first and last distorted points,
//     join them with a line and label the pair with its index
func RenderOverlay(frame image.Image, hyps []detection.Hypothesis, roi image.Rectangle, cfg config.ThresholdConfig) *image.Gray {
	mask := imaging.ThresholdMask(imaging.ToHSV(frame), HSVRange(cfg))
	marker := color.Gray{Y: markerGray}

	for i, h := range hyps {
		if len(h.Distorted) == 0 {
			continue
		}
		first := toPixel(h.Distorted[0])
		last := toPixel(h.Distorted[len(h.Distorted)-1])

		imaging.DrawCircle(mask, first, markerRadius, marker, roi)
		imaging.DrawCircle(mask, last, markerRadius, marker, roi)
		imaging.DrawLine(mask, first, last, marker, roi)
		imaging.DrawLabel(mask, first.Add(image.Point{X: -markerRadius, Y: -markerRadius - 2}),
			strconv.Itoa(i), marker, roi)
	}
	return mask
}

// OverlayImage is RenderOverlay expanded to three equal channels for the
// visualization topic.
func OverlayImage(frame image.Image, hyps []detection.Hypothesis, roi image.Rectangle, cfg config.ThresholdConfig) *image.NRGBA {
	return imaging.GrayToRGB(RenderOverlay(frame, hyps, roi, cfg))
}

func toPixel(p detection.Point) image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}
