// Package messages defines the wire types exchanged with the camera driver and
// with downstream consumers.
//
// The shapes follow the usual camera driver conventions: a raw Image with an
// encoding string and row stride, a CameraInfo carrying row-major K (3x3) and
// P (3x4) matrices, and the DuoDot report published per frame. All types
// round-trip through encoding/json; byte slices travel as base64.
package messages

import "time"

// Supported Image.Encoding values.
const (
	EncodingRGB8   = "rgb8"
	EncodingBGR8   = "bgr8"
	EncodingRGBA8  = "rgba8"
	EncodingBGRA8  = "bgra8"
	EncodingMono8  = "mono8"
	EncodingRGB16  = "rgb16"
	EncodingBGR16  = "bgr16"
	EncodingMono16 = "mono16"
	EncodingPNG    = "png"
	EncodingJPEG   = "jpeg"
)

// Header identifies a message in time and in its source coordinate frame.
type Header struct {
	Seq     uint32    `json:"seq"`
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// Image is a single camera frame.
//
// For raw encodings Data holds Height rows of Step bytes each. For "png" and
// "jpeg" Data holds the compressed file and Step is ignored.
type Image struct {
	Header      Header `json:"header"`
	Height      uint32 `json:"height"`
	Width       uint32 `json:"width"`
	Encoding    string `json:"encoding"`
	IsBigEndian bool   `json:"is_bigendian"`
	Step        uint32 `json:"step"`
	Data        []byte `json:"data"`
}

// CameraInfo carries the intrinsic calibration of a camera.
type CameraInfo struct {
	Header          Header    `json:"header"`
	Height          uint32    `json:"height"`
	Width           uint32    `json:"width"`
	DistortionModel string    `json:"distortion_model"`
	D               []float64 `json:"D"`
	K               []float64 `json:"K"` // 3x3 row-major
	R               []float64 `json:"R"` // 3x3 row-major rectification
	P               []float64 `json:"P"` // 3x4 row-major projection
}

// Pose2D is a planar position. Theta is unused for dot reports.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// DuoDot is the per-frame dot pair report. LeftDot and RightDot are index
// aligned: pair i is (LeftDot[i], RightDot[i]).
type DuoDot struct {
	TopicName string   `json:"topicName"`
	LeftDot   []Pose2D `json:"leftDot"`
	RightDot  []Pose2D `json:"rightDot"`
	Fx        float64  `json:"fx"`
	Fy        float64  `json:"fy"`
	Px        float64  `json:"px"`
	Py        float64  `json:"py"`
}
