package pipeline

import (
	"errors"
	"fmt"
)

// ErrFrameDropped marks a frame that was discarded without output. The
// wrapped error gives the reason (calibration.ErrNotReady or a
// *DecodeError).
var ErrFrameDropped = errors.New("frame dropped")

// DecodeError reports a frame whose payload could not be interpreted.
type DecodeError struct {
	Seq      uint32
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame %d (%s): %v", e.Seq, e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
