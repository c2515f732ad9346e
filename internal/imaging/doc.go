// Package imaging provides the pixel-level operations of the dot finder.
//
// This package converts transport image messages to Go images and back,
// derives intensity and HSV representations, builds color threshold masks
// and draws the annotation primitives used by the visualization overlay.
// All operations use a coordinate system where (0,0) is at the top-left
// corner, X increases rightward, and Y increases downward.
//
// # Frame Formats
//
// DecodeFrame accepts the raw encodings rgb8, bgr8, rgba8, bgra8, mono8,
// rgb16, bgr16 and mono16, plus png and jpeg payloads. Every frame is
// normalized to an opaque *image.NRGBA with origin (0,0); 16-bit channels
// keep their high byte. EncodeBGR8 produces the bgr8 messages published on
// the visualization topic.
//
// # HSV Representation
//
// HSV values use the 8-bit camera convention:
//   - H: 0-179 (degrees / 2)
//   - S: 0-255
//   - V: 0-255
//
// A hue band with a negative lower bound wraps around red: it covers
// [MaxHue+LowH, MaxHue] together with [0, HighH]. ThresholdMask thresholds
// the two linear sub-bands separately and ORs the results.
//
// # Drawing
//
// DrawCircle, DrawLine and DrawLabel write only inside a clip rectangle,
// which lets the overlay confine annotations to the region of interest.
//
// # Thread Safety
//
// All functions are stateless. Functions that draw mutate their destination
// image, which the caller must not share across goroutines while drawing.
package imaging
