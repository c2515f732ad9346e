// Package pipeline turns camera frames into dot pair reports.
//
// A Controller owns one camera stream. It captures calibration from the
// first valid camera info message, then for every frame:
//
//  1. Decodes the image message
//  2. Runs the marker detector on the intensity frame (Invoker)
//  3. Builds a FrameReport from the undistorted pairs and publishes it when
//     at least one pair was found (Encode)
//  4. Builds the HSV threshold mask with the detections drawn on it and
//     publishes it as a bgr8 image (RenderOverlay)
//
// Until calibration arrives every frame is dropped without calling the
// detector or publishing anything. Undecodable frames are dropped the same
// way. Neither case touches calibration or configuration state.
//
// # Configuration
//
// Each frame reads one configuration snapshot from config.Store and uses
// it for both detection and overlay rendering. Updates that land mid-frame
// apply from the next frame on.
//
// # Errors
//
// Dropped frames return errors wrapping ErrFrameDropped. Use errors.Is with
// calibration.ErrNotReady, or errors.As with *DecodeError, to tell the
// reasons apart. An empty detection is not an error.
package pipeline
