package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/dot-finder/internal/calibration"
	"github.com/ironsheep/dot-finder/internal/config"
	"github.com/ironsheep/dot-finder/internal/log"
	"github.com/ironsheep/dot-finder/internal/messages"
	"github.com/ironsheep/dot-finder/internal/pipeline"
)

type capture struct {
	mu     sync.Mutex
	dots   []messages.DuoDot
	images []messages.Image
}

func (c *capture) PublishDots(_ context.Context, msg messages.DuoDot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dots = append(c.dots, msg)
	return nil
}

func (c *capture) PublishImage(_ context.Context, msg messages.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, msg)
	return nil
}

func testCameraInfo() messages.CameraInfo {
	return messages.CameraInfo{
		Width: 64, Height: 48, DistortionModel: "plumb_bob",
		D: []float64{0, 0, 0, 0, 0},
		K: []float64{500, 0, 32, 0, 500, 24, 0, 0, 1},
		R: []float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		P: []float64{500, 0, 32, 0, 0, 500, 24, 0, 0, 0, 1, 0},
	}
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// writeFrame saves a 64x48 grayscale PNG with a bright disc at each x of
// centers, all on row 24.
func writeFrame(t *testing.T, path string, centers ...float64) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			for _, cx := range centers {
				if math.Hypot(float64(x)-cx, float64(y)-24) <= 4 {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newTestController(pub pipeline.Publisher) *pipeline.Controller {
	return pipeline.NewController("camera", calibration.NewStore(), config.NewStore(config.Default()), pub,
		pipeline.WithLogger(log.Discard()))
}

func TestLoadCameraInfo(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "info.json")
		writeJSON(t, path, testCameraInfo())

		info, err := loadCameraInfo(path)
		require.NoError(t, err)
		assert.Equal(t, testCameraInfo(), info)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadCameraInfo(filepath.Join(dir, "nope.json"))
		assert.ErrorContains(t, err, "failed to read camera info")
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
		_, err := loadCameraInfo(path)
		assert.ErrorContains(t, err, "failed to parse camera info")
	})
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o755))

	writeFrame(t, filepath.Join(frames, "000.png"), 16, 46)
	writeFrame(t, filepath.Join(frames, "001.png"))
	require.NoError(t, os.WriteFile(filepath.Join(frames, "002.png"), []byte("not a png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(frames, "notes.txt"), []byte("ignored"), 0o644))

	infoPath := filepath.Join(dir, "info.json")
	writeJSON(t, infoPath, testCameraInfo())

	pub := &capture{}
	ctrl := newTestController(pub)
	err := replay(context.Background(), ctrl, replayOptions{
		dir: frames, cameraInfo: infoPath, frameID: "camera",
	}, log.Discard())
	require.NoError(t, err)

	require.Len(t, pub.dots, 1)
	require.Len(t, pub.dots[0].LeftDot, 1)
	assert.InDelta(t, 16, pub.dots[0].LeftDot[0].X, 0.5)
	assert.InDelta(t, 46, pub.dots[0].RightDot[0].X, 0.5)
	assert.Equal(t, 500.0, pub.dots[0].Fx)

	// One overlay per decodable frame, in replay order.
	require.Len(t, pub.images, 2)
	assert.Equal(t, uint32(0), pub.images[0].Header.Seq)
	assert.Equal(t, uint32(1), pub.images[1].Header.Seq)
	assert.Equal(t, "camera", pub.images[0].Header.FrameID)

	snap := ctrl.Stats().Snapshot()
	assert.Equal(t, uint64(2), snap.Processed)
	assert.Equal(t, uint64(1), snap.EmptyFrames)
}

func TestReplay_Errors(t *testing.T) {
	dir := t.TempDir()
	infoPath := filepath.Join(dir, "info.json")
	writeJSON(t, infoPath, testCameraInfo())

	t.Run("camera info required", func(t *testing.T) {
		err := replay(context.Background(), newTestController(&capture{}), replayOptions{dir: dir}, log.Discard())
		assert.ErrorContains(t, err, "-camera-info")
	})

	t.Run("invalid camera info", func(t *testing.T) {
		bad := testCameraInfo()
		bad.K = []float64{1, 2}
		path := filepath.Join(dir, "bad_info.json")
		writeJSON(t, path, bad)

		err := replay(context.Background(), newTestController(&capture{}), replayOptions{
			dir: dir, cameraInfo: path,
		}, log.Discard())
		assert.ErrorContains(t, err, "camera info rejected")
	})

	t.Run("no frames", func(t *testing.T) {
		empty := t.TempDir()
		err := replay(context.Background(), newTestController(&capture{}), replayOptions{
			dir: empty, cameraInfo: infoPath,
		}, log.Discard())
		assert.ErrorContains(t, err, "no frames found")
	})

	t.Run("missing directory", func(t *testing.T) {
		err := replay(context.Background(), newTestController(&capture{}), replayOptions{
			dir: filepath.Join(dir, "missing"), cameraInfo: infoPath,
		}, log.Discard())
		assert.Error(t, err)
	})
}

func TestReplay_CanceledWhilePaced(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "000.png"), 16, 46)
	infoPath := filepath.Join(dir, "info.json")
	writeJSON(t, infoPath, testCameraInfo())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &capture{}
	err := replay(ctx, newTestController(pub), replayOptions{
		dir: dir, cameraInfo: infoPath, fps: 0.01,
	}, log.Discard())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.images)
}

func TestStatsMonitor_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		statsMonitor(ctx, newTestController(&capture{}), time.Millisecond, log.Discard())
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("statsMonitor did not return after cancel")
	}
}
