// Package camera provides the video sources the verification loop reads
// frames from. Acquiring a source returns an explicit stream handle that
// owns its tracks until stopped.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/qrforge/scan-readiness/pkg/decode"
)

var (
	// ErrPermissionDenied is returned when access to the camera is refused
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrNoFrame is returned when the stream has nothing to read yet
	ErrNoFrame = errors.New("no frame available")

	// ErrStreamStopped is returned when reading from a stopped stream
	ErrStreamStopped = errors.New("stream stopped")

	// ErrAudioUnsupported is returned when constraints request audio
	ErrAudioUnsupported = errors.New("audio capture is not supported")
)

// FacingMode selects which camera to open on devices with several
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Constraints describe the requested media
type Constraints struct {
	FacingMode FacingMode
	Audio      bool
}

// DefaultConstraints requests the environment-facing camera, video only
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: FacingEnvironment}
}

// Camera acquires video streams
type Camera interface {
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}

// Stream is an acquired video stream
type Stream interface {
	// ReadFrame returns the current frame
	ReadFrame() (*decode.Frame, error)

	// Tracks returns every track the stream holds
	Tracks() []Track

	// Stop stops all tracks; calling it again is a no-op
	Stop() error
}

// Track is a single media track of a stream
type Track interface {
	ID() string
	Kind() string
	Live() bool
	Stop()
}

// AcquisitionError wraps a failure to open a camera
type AcquisitionError struct {
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire camera %s: %v", e.Device, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports whether err is a permission refusal
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// LiveTracks counts tracks still live
func LiveTracks(s Stream) int {
	if s == nil {
		return 0
	}

	live := 0
	for _, t := range s.Tracks() {
		if t.Live() {
			live++
		}
	}
	return live
}

// videoTrack is the Track implementation shared by the cameras in this package
type videoTrack struct {
	id   string
	mu   sync.Mutex
	live bool
}

func newVideoTrack() *videoTrack {
	return &videoTrack{id: uuid.NewString(), live: true}
}

func (t *videoTrack) ID() string   { return t.id }
func (t *videoTrack) Kind() string { return "video" }

func (t *videoTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

func (t *videoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = false
}

func checkConstraints(c Constraints) error {
	if c.Audio {
		return ErrAudioUnsupported
	}
	return nil
}
