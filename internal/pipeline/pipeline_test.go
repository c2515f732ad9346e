package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/detection"
	"github.com/ironsheep/dot-finder/internal/log"
	"github.com/ironsheep/dot-finder/internal/messages"
)

// recorder is a Publisher that keeps everything it is given.
type recorder struct {
	mu       sync.Mutex
	dots     []messages.DuoDot
	images   []messages.Image
	dotsErr  error
	imageErr error
}

func (r *recorder) PublishDots(_ context.Context, msg messages.DuoDot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dotsErr != nil {
		return r.dotsErr
	}
	r.dots = append(r.dots, msg)
	return nil
}

func (r *recorder) PublishImage(_ context.Context, msg messages.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.imageErr != nil {
		return r.imageErr
	}
	r.images = append(r.images, msg)
	return nil
}

// stubDetector returns canned hypotheses and records its inputs.
type stubDetector struct {
	hyps   []detection.Hypothesis
	calls  int
	params detection.Params
	roi    image.Rectangle
	during func()
}

func (s *stubDetector) detect(gray *image.Gray, roi image.Rectangle, p detection.Params, _ detection.Undistorter) []detection.Hypothesis {
	s.calls++
	s.params = p
	s.roi = roi
	if s.during != nil {
		s.during()
	}
	return s.hyps
}

// cameraInfo describes an ideal pinhole camera.
func cameraInfo(f, cx, cy float64) messages.CameraInfo {
	return messages.CameraInfo{
		Width:           uint32(2 * cx),
		Height:          uint32(2 * cy),
		DistortionModel: "plumb_bob",
		D:               []float64{0, 0, 0, 0, 0},
		K:               []float64{f, 0, cx, 0, f, cy, 0, 0, 1},
		R:               []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		P:               []float64{f, 0, cx, 0, 0, f, cy, 0, 0, 0, 1, 0},
	}
}

// rgbFrame builds an rgb8 image message by evaluating fill per pixel.
func rgbFrame(width, height int, seq uint32, fill func(x, y int) color.RGBA) messages.Image {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := fill(x, y)
			i := (y*width + x) * 3
			data[i], data[i+1], data[i+2] = c.R, c.G, c.B
		}
	}
	return messages.Image{
		Header:   messages.Header{Seq: seq, FrameID: "camera_optical"},
		Width:    uint32(width),
		Height:   uint32(height),
		Encoding: messages.EncodingRGB8,
		Step:     uint32(width * 3),
		Data:     data,
	}
}

func blackFrame(seq uint32) messages.Image {
	return rgbFrame(64, 48, seq, func(x, y int) color.RGBA { return color.RGBA{0, 0, 0, 255} })
}

func newTestController(t *testing.T, det *stubDetector) (*Controller, *recorder, *config.Store) {
	t.Helper()
	pub := &recorder{}
	cfg := config.NewStore(config.Default())
	opts := []Option{WithLogger(log.Discard())}
	if det != nil {
		opts = append(opts, WithDetector(det.detect))
	}
	return NewController("camera", calibration.NewStore(), cfg, pub, opts...), pub, cfg
}

func allBytes(data []byte, v byte) bool {
	for _, b := range data {
		if b != v {
			return false
		}
	}
	return true
}

func TestController_DropsFramesUntilCalibrated(t *testing.T) {
	det := &stubDetector{}
	c, pub, _ := newTestController(t, det)
	assert.Equal(t, AwaitingCalibration, c.State())

	for seq := uint32(0); seq < 3; seq++ {
		err := c.HandleImage(context.Background(), blackFrame(seq))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFrameDropped)
		assert.ErrorIs(t, err, calibration.ErrNotReady)
	}

	assert.Zero(t, det.calls, "detector must not run before calibration")
	assert.Empty(t, pub.dots)
	assert.Empty(t, pub.images)

	snap := c.Stats().Snapshot()
	assert.Equal(t, uint64(3), snap.Received)
	assert.Equal(t, uint64(3), snap.DroppedNoCalibration)
	assert.Equal(t, uint64(0), snap.Processed)
}

func TestController_KnownPairReport(t *testing.T) {
	det := &stubDetector{hyps: []detection.Hypothesis{{
		Distorted:   []detection.Point{{X: 101, Y: 99}, {X: 151, Y: 99}},
		Undistorted: []detection.Point{{X: 100, Y: 100}, {X: 150, Y: 100}},
	}}}
	c, pub, _ := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))
	assert.Equal(t, Ready, c.State())

	frame := blackFrame(7)
	require.NoError(t, c.HandleImage(context.Background(), frame))

	want := messages.DuoDot{
		TopicName: "camera",
		LeftDot:   []messages.Pose2D{{X: 100, Y: 100}},
		RightDot:  []messages.Pose2D{{X: 150, Y: 100}},
		Fx:        500,
		Fy:        500,
		Px:        320,
		Py:        240,
	}
	require.Len(t, pub.dots, 1)
	if diff := cmp.Diff(want, pub.dots[0]); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, pub.images, 1)
	overlay := pub.images[0]
	assert.Equal(t, frame.Header, overlay.Header)
	assert.Equal(t, messages.EncodingBGR8, overlay.Encoding)
	assert.Equal(t, frame.Width, overlay.Width)
	assert.Equal(t, frame.Height, overlay.Height)
	assert.Equal(t, image.Rect(0, 0, 64, 48), det.roi, "detector must see the full frame")
}

func TestController_ZeroPairs(t *testing.T) {
	det := &stubDetector{}
	c, pub, _ := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))

	require.NoError(t, c.HandleImage(context.Background(), blackFrame(1)))

	assert.Equal(t, 1, det.calls)
	assert.Empty(t, pub.dots, "no report for an empty detection")
	require.Len(t, pub.images, 1, "overlay is emitted even with no detections")
	assert.True(t, allBytes(pub.images[0].Data, 0), "black frame outside the HSV band gives an all-background mask")

	snap := c.Stats().Snapshot()
	assert.Equal(t, uint64(1), snap.EmptyFrames)
	assert.Equal(t, uint64(1), snap.Overlays)
	assert.Equal(t, uint64(0), snap.Reports)
}

func TestController_MalformedFrame(t *testing.T) {
	det := &stubDetector{}
	c, pub, cfgStore := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))

	camBefore, err := calibrationOf(c)
	require.NoError(t, err)
	cfgBefore := cfgStore.Load()

	bad := blackFrame(2)
	bad.Data = bad.Data[:10]
	err = c.HandleImage(context.Background(), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrameDropped)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, uint32(2), decErr.Seq)

	assert.Zero(t, det.calls)
	assert.Empty(t, pub.images)
	assert.Equal(t, Ready, c.State())
	assert.Equal(t, cfgBefore, cfgStore.Load())
	camAfter, err := calibrationOf(c)
	require.NoError(t, err)
	assert.Same(t, camBefore, camAfter)

	require.NoError(t, c.HandleImage(context.Background(), blackFrame(3)))
	assert.Equal(t, 1, det.calls)
	assert.Len(t, pub.images, 1)
	assert.Equal(t, uint64(1), c.Stats().Snapshot().DroppedDecode)
}

func calibrationOf(c *Controller) (*calibration.Camera, error) {
	return c.calib.Get()
}

func TestController_CalibrationCapturedOnce(t *testing.T) {
	det := &stubDetector{hyps: []detection.Hypothesis{{
		Distorted:   []detection.Point{{X: 1, Y: 1}, {X: 2, Y: 1}},
		Undistorted: []detection.Point{{X: 1, Y: 1}, {X: 2, Y: 1}},
	}}}
	c, pub, _ := newTestController(t, det)

	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))
	require.NoError(t, c.HandleCameraInfo(cameraInfo(900, 100, 100)))
	require.NoError(t, c.HandleImage(context.Background(), blackFrame(1)))

	require.Len(t, pub.dots, 1)
	assert.Equal(t, 500.0, pub.dots[0].Fx)
	assert.Equal(t, 320.0, pub.dots[0].Px)
}

func TestController_InvalidCameraInfo(t *testing.T) {
	c, _, _ := newTestController(t, &stubDetector{})

	info := cameraInfo(500, 320, 240)
	info.K = info.K[:6]
	err := c.HandleCameraInfo(info)
	require.Error(t, err)
	assert.ErrorIs(t, err, calibration.ErrInvalidCalibration)
	assert.Equal(t, AwaitingCalibration, c.State())

	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))
	assert.Equal(t, Ready, c.State())
}

func TestController_ConfigSnapshotPerFrame(t *testing.T) {
	det := &stubDetector{}
	c, pub, cfgStore := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))

	// The update lands while the first frame is inside the detector.
	det.during = func() {
		det.during = nil
		require.NoError(t, c.HandleConfig([]byte(`{"low_val": 0, "min_blob_area": 42}`)))
	}

	require.NoError(t, c.HandleImage(context.Background(), blackFrame(1)))
	assert.Equal(t, config.Default().MinBlobArea, det.params.MinBlobArea)
	require.Len(t, pub.images, 1)
	assert.True(t, allBytes(pub.images[0].Data, 0), "overlay must use the snapshot the frame started with")

	assert.Equal(t, 0, cfgStore.Load().LowVal)
	require.NoError(t, c.HandleImage(context.Background(), blackFrame(2)))
	assert.Equal(t, 42, det.params.MinBlobArea)
	require.Len(t, pub.images, 2)
	assert.True(t, allBytes(pub.images[1].Data, 255), "black is inside the band once low_val is 0")
}

func TestController_RejectsInvalidConfig(t *testing.T) {
	c, _, cfgStore := newTestController(t, &stubDetector{})
	before := cfgStore.Load()

	err := c.HandleConfig([]byte(`{"min_blob_area": 0}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Equal(t, before, cfgStore.Load())

	require.Error(t, c.HandleConfig([]byte(`{not json`)))
	assert.Equal(t, before, cfgStore.Load())
}

func TestController_PublishErrors(t *testing.T) {
	det := &stubDetector{hyps: []detection.Hypothesis{{
		Distorted:   []detection.Point{{X: 1, Y: 1}, {X: 2, Y: 1}},
		Undistorted: []detection.Point{{X: 1, Y: 1}, {X: 2, Y: 1}},
	}}}
	c, pub, _ := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))

	sinkDown := errors.New("sink down")
	pub.dotsErr = sinkDown

	err := c.HandleImage(context.Background(), blackFrame(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkDown)
	assert.NotErrorIs(t, err, ErrFrameDropped)
	assert.Len(t, pub.images, 1, "overlay is still published when the report fails")
	assert.Equal(t, uint64(1), c.Stats().Snapshot().PublishErrors)
}

func TestController_CanceledContext(t *testing.T) {
	det := &stubDetector{}
	c, pub, _ := newTestController(t, det)
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 320, 240)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.HandleImage(ctx, blackFrame(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.images)
	assert.Empty(t, pub.dots)
}

func TestController_RoundTripWithDetector(t *testing.T) {
	pub := &recorder{}
	c := NewController("cam0", calibration.NewStore(), config.NewStore(config.Default()), pub,
		WithLogger(log.Discard()))
	require.NoError(t, c.HandleCameraInfo(cameraInfo(500, 160, 120)))

	p1 := detection.Point{X: 100, Y: 120}
	p2 := detection.Point{X: 180, Y: 120}
	frame := rgbFrame(320, 240, 5, func(x, y int) color.RGBA {
		for _, p := range []detection.Point{p1, p2} {
			if math.Hypot(float64(x)-p.X, float64(y)-p.Y) <= 6 {
				return color.RGBA{255, 255, 255, 255}
			}
		}
		return color.RGBA{10, 10, 10, 255}
	})

	require.NoError(t, c.HandleImage(context.Background(), frame))
	require.Len(t, pub.dots, 1)
	report := pub.dots[0]
	require.Len(t, report.LeftDot, 1)
	require.Len(t, report.RightDot, 1)
	assert.Equal(t, "cam0", report.TopicName)
	assert.InDelta(t, p1.X, report.LeftDot[0].X, 0.5)
	assert.InDelta(t, p1.Y, report.LeftDot[0].Y, 0.5)
	assert.InDelta(t, p2.X, report.RightDot[0].X, 0.5)
	assert.InDelta(t, p2.Y, report.RightDot[0].Y, 0.5)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting_calibration", AwaitingCalibration.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "State(9)", State(9).String())
}
