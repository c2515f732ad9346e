package imaging

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ironsheep/dot-finder/internal/messages"
)

// frameEncodings maps file extensions to the compressed image encodings
// DecodeFrame accepts.
var frameEncodings = map[string]string{
	".png":  messages.EncodingPNG,
	".jpg":  messages.EncodingJPEG,
	".jpeg": messages.EncodingJPEG,
}

// ListFrames returns the image files of dir that LoadFrame can read, sorted
// by name.
//
// Subdirectories and files with other extensions are skipped. An empty
// directory yields an empty slice and no error.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := frameEncodings[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadFrame reads an image file into a compressed image message.
//
// Parameters:
//   - path: PNG or JPEG file. The encoding is chosen by extension.
//   - header: Header to stamp on the message. A zero Stamp is replaced by
//     the file modification time.
//
// Returns:
//   - messages.Image: Data holds the file bytes unchanged; Width and Height
//     come from the file header.
//   - error: Non-nil if the file cannot be read, has an unsupported
//     extension, or is not a valid image.
func LoadFrame(path string, header messages.Header) (messages.Image, error) {
	encoding, ok := frameEncodings[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return messages.Image{}, fmt.Errorf("%w: file %s", ErrUnsupportedEncoding, filepath.Base(path))
	}

	stat, err := os.Stat(path)
	if err != nil {
		return messages.Image{}, fmt.Errorf("failed to stat frame: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return messages.Image{}, fmt.Errorf("failed to read frame: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return messages.Image{}, fmt.Errorf("failed to decode frame header: %w", err)
	}

	if header.Stamp.IsZero() {
		header.Stamp = stat.ModTime().UTC().Truncate(time.Microsecond)
	}

	return messages.Image{
		Header:   header,
		Height:   uint32(cfg.Height),
		Width:    uint32(cfg.Width),
		Encoding: encoding,
		Data:     data,
	}, nil
}
