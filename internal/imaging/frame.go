package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"

	"github.com/ironsheep/dot-finder/internal/messages"
)

var (
	// ErrUnsupportedEncoding is returned for image encodings the decoder
	// does not understand.
	ErrUnsupportedEncoding = errors.New("unsupported image encoding")

	// ErrTruncatedFrame is returned when the payload is shorter than the
	// declared geometry requires.
	ErrTruncatedFrame = errors.New("image payload shorter than declared size")

	// ErrEmptyFrame is returned for frames with zero width or height.
	ErrEmptyFrame = errors.New("image has zero size")
)

// rawLayout describes how a raw encoding stores one pixel.
type rawLayout struct {
	channels int
	depth    int    // bytes per channel
	order    [3]int // source channel index for R, G, B
}

var rawLayouts = map[string]rawLayout{
	messages.EncodingRGB8:   {3, 1, [3]int{0, 1, 2}},
	messages.EncodingBGR8:   {3, 1, [3]int{2, 1, 0}},
	messages.EncodingRGBA8:  {4, 1, [3]int{0, 1, 2}},
	messages.EncodingBGRA8:  {4, 1, [3]int{2, 1, 0}},
	messages.EncodingMono8:  {1, 1, [3]int{0, 0, 0}},
	messages.EncodingRGB16:  {3, 2, [3]int{0, 1, 2}},
	messages.EncodingBGR16:  {3, 2, [3]int{2, 1, 0}},
	messages.EncodingMono16: {1, 2, [3]int{0, 0, 0}},
}

// DecodeFrame converts an image message into an 8-bit color image.
//
// Parameters:
//   - msg: The incoming frame. Raw encodings (rgb8, bgr8, rgba8, bgra8, mono8,
//     rgb16, bgr16, mono16) are read using Width, Height and Step; "png" and
//     "jpeg" payloads are decoded as files.
//
// Returns:
//   - *image.NRGBA: The frame with origin (0,0) and opaque alpha. 16-bit
//     channels keep their high byte.
//   - error: ErrUnsupportedEncoding, ErrEmptyFrame or ErrTruncatedFrame
//     (wrapped with details), or the underlying codec error.
//
// Alpha channels of rgba8/bgra8 input are ignored; the detector works on
// opaque frames.
func DecodeFrame(msg messages.Image) (*image.NRGBA, error) {
	switch msg.Encoding {
	case messages.EncodingPNG, messages.EncodingJPEG:
		img, _, err := image.Decode(bytes.NewReader(msg.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s frame: %w", msg.Encoding, err)
		}
		if img.Bounds().Empty() {
			return nil, ErrEmptyFrame
		}
		return imaging.Clone(img), nil
	}

	layout, ok := rawLayouts[msg.Encoding]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, msg.Encoding)
	}

	width, height := int(msg.Width), int(msg.Height)
	if width == 0 || height == 0 {
		return nil, ErrEmptyFrame
	}

	pixelSize := layout.channels * layout.depth
	step := int(msg.Step)
	if step == 0 {
		step = width * pixelSize
	}
	if step < width*pixelSize {
		return nil, fmt.Errorf("%w: step %d too small for %d pixels of %d bytes",
			ErrTruncatedFrame, step, width, pixelSize)
	}
	if len(msg.Data) < step*(height-1)+width*pixelSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d",
			ErrTruncatedFrame, len(msg.Data), step*(height-1)+width*pixelSize)
	}

	// High byte of a 16-bit sample: first byte on big-endian payloads.
	hi := 0
	if layout.depth == 2 && !msg.IsBigEndian {
		hi = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := msg.Data[y*step:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*pixelSize:]
			o := out[x*4 : x*4+4 : x*4+4]
			for c := 0; c < 3; c++ {
				o[c] = px[layout.order[c]*layout.depth+hi*(layout.depth-1)]
			}
			o[3] = 0xFF
		}
	}
	return dst, nil
}

// EncodeBGR8 packs img into a bgr8 image message carrying header.
func EncodeBGR8(img image.Image, header messages.Header) messages.Image {
	src := imaging.Clone(img)
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		in := src.Pix[y*src.Stride:]
		out := data[y*width*3:]
		for x := 0; x < width; x++ {
			out[x*3+0] = in[x*4+2]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4+0]
		}
	}

	return messages.Image{
		Header:   header,
		Height:   uint32(height),
		Width:    uint32(width),
		Encoding: messages.EncodingBGR8,
		Step:     uint32(width * 3),
		Data:     data,
	}
}
