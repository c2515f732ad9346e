package pipeline

import "sync/atomic"

// Stats counts frame outcomes for one controller. All methods are safe for
// concurrent use.
type Stats struct {
	received       atomic.Uint64
	processed      atomic.Uint64
	droppedNoCalib atomic.Uint64
	droppedDecode  atomic.Uint64
	reports        atomic.Uint64
	emptyFrames    atomic.Uint64
	overlays       atomic.Uint64
	publishErrors  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
//
// Counters are read one by one, so a snapshot taken while frames are in
// flight may be off by one between fields. That is fine for monitoring.
type StatsSnapshot struct {
	Received             uint64 `json:"received"`
	Processed            uint64 `json:"processed"`
	DroppedNoCalibration uint64 `json:"dropped_no_calibration"`
	DroppedDecode        uint64 `json:"dropped_decode"`
	Reports              uint64 `json:"reports"`
	EmptyFrames          uint64 `json:"empty_frames"`
	Overlays             uint64 `json:"overlays"`
	PublishErrors        uint64 `json:"publish_errors"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:             s.received.Load(),
		Processed:            s.processed.Load(),
		DroppedNoCalibration: s.droppedNoCalib.Load(),
		DroppedDecode:        s.droppedDecode.Load(),
		Reports:              s.reports.Load(),
		EmptyFrames:          s.emptyFrames.Load(),
		Overlays:             s.overlays.Load(),
		PublishErrors:        s.publishErrors.Load(),
	}
}

// Dropped returns the total of all drop reasons.
func (s StatsSnapshot) Dropped() uint64 {
	return s.DroppedNoCalibration + s.DroppedDecode
}
