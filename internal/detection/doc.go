// Package detection finds pairs of bright circular markers ("dots") in an
// intensity frame.
//
// The dot finder pipeline treats this package as an opaque collaborator: it
// calls FindDotPairs with a frame, a region of interest, the current
// tolerances and the camera calibration, and receives back dot pair
// hypotheses with both distorted and undistorted coordinates.
//
// # Algorithm Overview
//
//  1. Optional Gaussian smoothing of the intensity frame
//  2. Intensity thresholding into a binary mask
//  3. Connected component extraction (8-connected flood fill)
//  4. Per-blob filtering on area, ellipse axis ratio and fill distortion
//  5. Pairing on radius ratio, intensity ratio, line angle and the ratio
//     of dot separation to dot radius
//  6. Lens distortion correction of the paired centers
//
// # Coordinate System
//
// Coordinates follow the image convention: origin (0,0) at the top-left
// pixel corner's center, X rightward, Y downward. Dot centers are
// intensity-weighted centroids and carry sub-pixel precision.
//
// # Determinism
//
// Blobs are visited in raster order of their first pixel and paired
// greedily, each blob belonging to at most one hypothesis. Identical frames
// produce identical hypotheses in identical order.
package detection
