package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/imaging"
	"github.com/ironsheep/dot-finder/internal/log"
	"github.com/ironsheep/dot-finder/internal/messages"
)

// State is the controller readiness.
type State int

const (
	// AwaitingCalibration drops every frame until camera info arrives.
	AwaitingCalibration State = iota
	// Ready processes frames. Once entered it is never left.
	Ready
)

func (s State) String() string {
	switch s {
	case AwaitingCalibration:
		return "awaiting_calibration"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Publisher delivers controller output to the outside world.
type Publisher interface {
	PublishDots(ctx context.Context, msg messages.DuoDot) error
	PublishImage(ctx context.Context, msg messages.Image) error
}

// Controller runs the per-frame pipeline for one camera stream.
//
// HandleCameraInfo, HandleConfig and HandleImage may be called from
// different goroutines. Frames of one stream must be passed to HandleImage
// in arrival order from a single goroutine; the controller never reorders
// or parallelizes them.
type Controller struct {
	source  string
	calib   *calibration.Store
	cfg     *config.Store
	invoker *Invoker
	pub     Publisher
	stats   *Stats
	log     *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithDetector replaces the marker detector.
func WithDetector(fn DetectFunc) Option {
	return func(c *Controller) { c.invoker = NewInvoker(fn) }
}

// WithLogger sets the logger. The controller adds a source attribute.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithStats shares a Stats instance with the caller.
func WithStats(s *Stats) Option {
	return func(c *Controller) { c.stats = s }
}

// NewController wires a controller for the stream named source. calib and
// cfg are owned by the caller and may be shared with other readers.
func NewController(source string, calib *calibration.Store, cfg *config.Store, pub Publisher, opts ...Option) *Controller {
	c := &Controller{
		source:  source,
		calib:   calib,
		cfg:     cfg,
		invoker: NewInvoker(nil),
		pub:     pub,
		stats:   &Stats{},
		log:     log.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("source", source)
	return c
}

// Source returns the stream identifier.
func (c *Controller) Source() string { return c.source }

// Stats returns the frame counters.
func (c *Controller) Stats() *Stats { return c.stats }

// State reports whether calibration has been captured.
func (c *Controller) State() State {
	if c.calib.IsReady() {
		return Ready
	}
	return AwaitingCalibration
}

// HandleCameraInfo captures calibration from the first valid message.
// Later messages are ignored. Invalid messages are rejected and leave the
// controller awaiting calibration.
func (c *Controller) HandleCameraInfo(info messages.CameraInfo) error {
	applied, err := c.calib.SetIfAbsent(info)
	if err != nil {
		c.log.Warn("rejected camera info", "error", err)
		return err
	}
	if !applied {
		c.log.Debug("camera info ignored, calibration already captured", "seq", info.Header.Seq)
		return nil
	}

	cam, err := c.calib.Get()
	if err != nil {
		return err
	}
	width, height := cam.Size()
	c.log.Info("calibration captured",
		"fx", cam.FocalX(), "fy", cam.FocalY(),
		"px", cam.PrincipalX(), "py", cam.PrincipalY(),
		"distortion_model", cam.DistortionModel(),
		"width", width, "height", height)
	return nil
}

// HandleConfig applies a JSON parameter update on top of the current
// configuration. Frames already in progress keep the snapshot they started
// with.
func (c *Controller) HandleConfig(data []byte) error {
	cfg, err := c.cfg.Apply(data)
	if err != nil {
		c.log.Warn("rejected parameter update", "error", err)
		return err
	}
	c.log.Info("parameters changed",
		"low_hue", cfg.LowHue, "high_hue", cfg.HighHue,
		"threshold", cfg.Threshold,
		"min_blob_area", cfg.MinBlobArea, "max_blob_area", cfg.MaxBlobArea)
	return nil
}

// HandleImage processes one frame.
//
// While awaiting calibration the frame is dropped before decoding and the
// detector is not called. Otherwise the frame is decoded, the detector runs
// on a single configuration snapshot, a report is published if any pair
// was found, and the overlay is always published.
//
// Returns:
//   - nil on success, including frames with no dots.
//   - An error wrapping ErrFrameDropped and either calibration.ErrNotReady
//     or a *DecodeError when the frame produced no output.
//   - The context error if ctx is done before publishing starts.
//   - Publisher errors, joined, when delivery failed.
func (c *Controller) HandleImage(ctx context.Context, msg messages.Image) error {
	c.stats.received.Add(1)

	cam, err := c.calib.Get()
	if err != nil {
		c.stats.droppedNoCalib.Add(1)
		c.log.Warn("no camera info yet, dropping frame", "seq", msg.Header.Seq)
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}

	frame, err := imaging.DecodeFrame(msg)
	if err != nil {
		c.stats.droppedDecode.Add(1)
		decErr := &DecodeError{Seq: msg.Header.Seq, Encoding: msg.Encoding, Err: err}
		c.log.Error("failed to decode frame", "seq", msg.Header.Seq, "encoding", msg.Encoding, "error", err)
		return fmt.Errorf("%w: %w", ErrFrameDropped, decErr)
	}

	cfg := c.cfg.Load()
	hyps := c.invoker.Detect(frame, cam, cfg)

	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error
	if report, ok := Encode(hyps, cam, c.source); ok {
		if err := c.pub.PublishDots(ctx, report.Message()); err != nil {
			c.stats.publishErrors.Add(1)
			errs = append(errs, fmt.Errorf("publish dots: %w", err))
		} else {
			c.stats.reports.Add(1)
		}
	} else {
		c.stats.emptyFrames.Add(1)
		c.log.Debug("no dots detected", "seq", msg.Header.Seq)
	}

	overlay := OverlayImage(frame, hyps, frame.Bounds(), cfg)
	if err := c.pub.PublishImage(ctx, imaging.EncodeBGR8(overlay, msg.Header)); err != nil {
		c.stats.publishErrors.Add(1)
		errs = append(errs, fmt.Errorf("publish overlay: %w", err))
	} else {
		c.stats.overlays.Add(1)
	}

	c.stats.processed.Add(1)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.log.Error("failed to publish frame output", "seq", msg.Header.Seq, "error", err)
		return err
	}
	return nil
}
