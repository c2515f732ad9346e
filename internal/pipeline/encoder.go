package pipeline

import (
	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/detection"
	"github.com/ironsheep/dot-finder/internal/messages"
)

// Pair is one reported dot pair in undistorted pixel coordinates.
type Pair struct {
	Left  calibration.Point
	Right calibration.Point
}

// FrameReport is the per-frame detection result handed to the report sink.
// It is built fresh for every frame and not modified after Encode returns.
type FrameReport struct {
	Source     string
	Pairs      []Pair
	FocalX     float64
	FocalY     float64
	PrincipalX float64
	PrincipalY float64
}

// Encode builds the report for one frame.
//
// For every hypothesis the left dot is the first point of its undistorted
// chain and the right dot is the last; interior chain points are not
// reported. Hypotheses with an empty undistorted chain are skipped. The
// intrinsics are copied from cam.
//
// The boolean is false when there is nothing to report, in which case the
// caller must not emit anything.
func Encode(hyps []detection.Hypothesis, cam *calibration.Camera, source string) (FrameReport, bool) {
	if len(hyps) == 0 || cam == nil {
		return FrameReport{}, false
	}

	pairs := make([]Pair, 0, len(hyps))
	for _, h := range hyps {
		chain := h.Undistorted
		if len(chain) == 0 {
			continue
		}
		pairs = append(pairs, Pair{Left: chain[0], Right: chain[len(chain)-1]})
	}
	if len(pairs) == 0 {
		return FrameReport{}, false
	}

	return FrameReport{
		Source:     source,
		Pairs:      pairs,
		FocalX:     cam.FocalX(),
		FocalY:     cam.FocalY(),
		PrincipalX: cam.PrincipalX(),
		PrincipalY: cam.PrincipalY(),
	}, true
}

// Message converts the report to its wire form. LeftDot and RightDot are
// index-aligned.
func (r FrameReport) Message() messages.DuoDot {
	msg := messages.DuoDot{
		TopicName: r.Source,
		LeftDot:   make([]messages.Pose2D, len(r.Pairs)),
		RightDot:  make([]messages.Pose2D, len(r.Pairs)),
		Fx:        r.FocalX,
		Fy:        r.FocalY,
		Px:        r.PrincipalX,
		Py:        r.PrincipalY,
	}
	for i, p := range r.Pairs {
		msg.LeftDot[i] = messages.Pose2D{X: p.Left.X, Y: p.Left.Y}
		msg.RightDot[i] = messages.Pose2D{X: p.Right.X, Y: p.Right.Y}
	}
	return msg
}
