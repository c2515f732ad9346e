package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/dot-finder/internal/messages"
)

// writeTestPNG creates a solid color PNG file inside dir and returns its path.
func writeTestPNG(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	b := writeTestPNG(t, dir, "frame_002.png", 4, 4, color.White)
	a := writeTestPNG(t, dir, "frame_001.png", 4, 4, color.White)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	jpgPath := filepath.Join(dir, "frame_003.JPG")
	f, err := os.Create(jpgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	paths, err := ListFrames(dir)
	if err != nil {
		t.Fatalf("ListFrames failed: %v", err)
	}
	want := []string{a, b, jpgPath}
	if len(paths) != len(want) {
		t.Fatalf("paths: got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d]: got %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestListFrames_MissingDir(t *testing.T) {
	if _, err := ListFrames(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadFrame(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "frame.png", 8, 6, color.RGBA{255, 0, 0, 255})

	msg, err := LoadFrame(path, messages.Header{Seq: 3, FrameID: "replay"})
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}

	if msg.Encoding != messages.EncodingPNG {
		t.Errorf("encoding: got %s, want png", msg.Encoding)
	}
	if msg.Width != 8 || msg.Height != 6 {
		t.Errorf("size: got %dx%d, want 8x6", msg.Width, msg.Height)
	}
	if msg.Header.Seq != 3 || msg.Header.FrameID != "replay" {
		t.Errorf("header: got %+v", msg.Header)
	}
	if msg.Header.Stamp.IsZero() {
		t.Error("expected stamp from file modification time")
	}

	img, err := DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if got := img.NRGBAAt(7, 5); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("pixel: got %v", got)
	}
}

func TestLoadFrame_KeepsStamp(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "frame.png", 2, 2, color.White)
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	msg, err := LoadFrame(path, messages.Header{Stamp: stamp})
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if !msg.Header.Stamp.Equal(stamp) {
		t.Errorf("stamp: got %v, want %v", msg.Header.Stamp, stamp)
	}
}

func TestLoadFrame_Errors(t *testing.T) {
	dir := t.TempDir()

	gifPath := filepath.Join(dir, "frame.gif")
	if err := os.WriteFile(gifPath, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrame(gifPath, messages.Header{}); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("gif: got %v, want ErrUnsupportedEncoding", err)
	}

	if _, err := LoadFrame(filepath.Join(dir, "missing.png"), messages.Header{}); err == nil {
		t.Error("expected error for missing file")
	}

	badPath := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(badPath, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrame(badPath, messages.Header{}); err == nil {
		t.Error("expected error for corrupt file")
	}
}
