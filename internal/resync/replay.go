package resync

import (
	"fmt"

	"github.com/linuxmatters/hushcut/internal/failure"
)

// FrameSource is a sequential source of video frames. Grab moves to the next
// frame without materialising it; Decode returns the frame last grabbed.
type FrameSource interface {
	Grab() error
	Decode() ([]byte, error)
}

// FrameSink receives the frames to write, in output order.
type FrameSink interface {
	WriteFrame(frame []byte) error
}

// Replay executes plan against src, writing each planned frame to dst.
// The source is only ever read forward; a frame that appears several times
// in a row is decoded again without moving. progress, if not nil, is called
// after each written frame.
func Replay(plan *FramePlan, src FrameSource, dst FrameSink, progress func(done, total int)) error {
	held := -1
	total := len(plan.Frames)

	for i, want := range plan.Frames {
		if want < held {
			return fmt.Errorf("plan rewinds from frame %d to %d: %w", held, want, failure.ErrInvalidParameter)
		}
		for held < want {
			if err := src.Grab(); err != nil {
				return fmt.Errorf("grab frame %d: %w", held+1, err)
			}
			held++
		}

		frame, err := src.Decode()
		if err != nil {
			return fmt.Errorf("decode frame %d: %w", held, err)
		}
		if err := dst.WriteFrame(frame); err != nil {
			return fmt.Errorf("write output frame %d: %w", i, err)
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	return nil
}
