package server

import (
	"fmt"
	"strings"
)

// Topic suffixes appended to the source stream identifier.

// TopicImageRaw carries incoming camera frames.
// Receives: messages.Image
const TopicImageRaw = "image_raw"

// TopicCameraInfo carries the camera calibration.
// Receives: messages.CameraInfo
const TopicCameraInfo = "camera_info"

// TopicParameters carries threshold configuration updates.
// Receives: JSON object with any subset of the config.ThresholdConfig fields
const TopicParameters = "parameters"

// TopicDots carries the per-frame dot pair report.
// Publishes: messages.DuoDot
const TopicDots = "dots"

// TopicImageWithDetections carries the debug overlay.
// Publishes: messages.Image (bgr8)
const TopicImageWithDetections = "image_with_detections"

// Topics builds fully-qualified topic names for one source stream.
type Topics struct {
	source string
}

// NewTopics creates a Topics helper for the stream named source. Leading
// and trailing slashes are trimmed.
func NewTopics(source string) *Topics {
	return &Topics{source: strings.Trim(source, "/")}
}

// Source returns the stream identifier.
func (t *Topics) Source() string { return t.source }

// ImageRaw returns the full input frame topic.
func (t *Topics) ImageRaw() string { return t.join(TopicImageRaw) }

// CameraInfo returns the full calibration topic.
func (t *Topics) CameraInfo() string { return t.join(TopicCameraInfo) }

// Parameters returns the full configuration update topic.
func (t *Topics) Parameters() string { return t.join(TopicParameters) }

// Dots returns the full report topic.
func (t *Topics) Dots() string { return t.join(TopicDots) }

// ImageWithDetections returns the full overlay topic.
func (t *Topics) ImageWithDetections() string { return t.join(TopicImageWithDetections) }

// Inputs lists the topics the server consumes.
func (t *Topics) Inputs() []string {
	return []string{t.ImageRaw(), t.CameraInfo(), t.Parameters()}
}

// Outputs lists the topics the server publishes.
func (t *Topics) Outputs() []string {
	return []string{t.Dots(), t.ImageWithDetections()}
}

func (t *Topics) join(suffix string) string {
	return fmt.Sprintf("%s/%s", t.source, suffix)
}
