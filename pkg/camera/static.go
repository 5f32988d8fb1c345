package camera

import (
	"context"
	"sync"

	"github.com/qrforge/scan-readiness/pkg/decode"
)

// StaticCamera replays a fixed list of frames in order, looping at the end
type StaticCamera struct {
	// Denied makes Acquire fail with ErrPermissionDenied
	Denied bool

	frames []*decode.Frame
}

// NewStaticCamera creates a camera over frames
func NewStaticCamera(frames ...*decode.Frame) *StaticCamera {
	return &StaticCamera{frames: frames}
}

// Acquire implements Camera
func (c *StaticCamera) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Device: "static", Err: err}
	}
	if c.Denied {
		return nil, &AcquisitionError{Device: "static", Err: ErrPermissionDenied}
	}
	if err := checkConstraints(constraints); err != nil {
		return nil, &AcquisitionError{Device: "static", Err: err}
	}

	return &staticStream{
		frames: c.frames,
		track:  newVideoTrack(),
	}, nil
}

type staticStream struct {
	mu      sync.Mutex
	frames  []*decode.Frame
	next    int
	track   *videoTrack
	stopped bool
}

func (s *staticStream) ReadFrame() (*decode.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStreamStopped
	}
	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}

	frame := s.frames[s.next%len(s.frames)]
	s.next++
	return frame, nil
}

func (s *staticStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *staticStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopped {
		s.stopped = true
		s.track.Stop()
	}
	return nil
}
