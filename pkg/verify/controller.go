// Package verify runs live scan verification: it reads camera frames,
// decodes them, and tracks whether the code on screen carries the
// expected payload.
package verify

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/camera"
	"github.com/qrforge/scan-readiness/pkg/decode"
	"github.com/qrforge/scan-readiness/pkg/metrics"
)

// Detector decodes a single frame, returning nil when no code is present
type Detector interface {
	DecodeFrame(frame *decode.Frame) *decode.Result
}

// Update is delivered to listeners after every status change and processed frame.
// Canvas is only valid for the duration of the listener call.
type Update struct {
	SessionID string
	Previous  ScanStatus
	Status    ScanStatus
	Result    *decode.Result
	Overlay   Overlay
	Canvas    *image.RGBA
	Frames    int
}

// Listener receives session updates
type Listener func(Update)

// SessionInfo is a snapshot of the active session
type SessionInfo struct {
	ID         string     `json:"id"`
	Expected   string     `json:"expected"`
	Status     ScanStatus `json:"status"`
	Running    bool       `json:"running"`
	Frames     int        `json:"frames"`
	Detections int        `json:"detections"`
	StartedAt  time.Time  `json:"started_at"`
}

// session is the state owned by one open verification view
type session struct {
	id         string
	expected   string
	stream     camera.Stream
	status     ScanStatus
	running    bool
	handle     FrameHandle
	frames     int
	detections int
	startedAt  time.Time
	canvas     *image.RGBA
}

// Controller owns the camera stream and the frame loop for at most one session
type Controller struct {
	camera    camera.Camera
	scheduler FrameScheduler
	detector  Detector
	painter   *Painter
	logger    *logrus.Logger

	mu        sync.Mutex
	session   *session
	listeners []Listener
}

// NewController creates a verification controller
func NewController(cam camera.Camera, scheduler FrameScheduler, detector Detector, logger *logrus.Logger) *Controller {
	return &Controller{
		camera:    cam,
		scheduler: scheduler,
		detector:  detector,
		painter:   &Painter{},
		logger:    logger,
	}
}

// Subscribe registers a listener for session updates
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Open starts a session verifying against expected. Any active session is
// closed first. A camera that cannot be acquired leaves the session in
// no_permission and the frame loop is never started.
func (c *Controller) Open(ctx context.Context, expected string) error {
	c.mu.Lock()
	if c.session != nil {
		c.closeLocked("reopen")
	}
	s := &session{
		id:        uuid.NewString(),
		expected:  strings.TrimSpace(expected),
		status:    StatusIdle,
		startedAt: time.Now(),
	}
	c.session = s
	c.mu.Unlock()

	sessionLogger := c.logger.WithField("session_id", s.id)
	sessionLogger.Info("Requesting camera access")

	stream, err := c.camera.Acquire(ctx, camera.DefaultConstraints())

	c.mu.Lock()
	if err != nil {
		if camera.IsPermissionDenied(err) {
			sessionLogger.WithError(err).Warn("Camera permission denied")
		} else {
			sessionLogger.WithError(err).Error("Camera acquisition failed")
		}

		var update *Update
		if c.session == s {
			update = c.setStatusLocked(s, Step{Next: StatusNoPermission}, nil, nil)
		}
		listeners := c.listeners
		c.mu.Unlock()

		notify(listeners, update)
		return fmt.Errorf("camera unavailable: %w", err)
	}

	// Closed or reopened while waiting for the camera
	if c.session != s {
		c.mu.Unlock()
		if stopErr := stream.Stop(); stopErr != nil {
			sessionLogger.WithError(stopErr).Warn("Failed to stop stream of abandoned session")
		}
		return fmt.Errorf("session %s closed before camera was acquired", s.id)
	}

	s.stream = stream
	s.running = true
	s.handle = c.scheduler.RequestFrame(c.frameCallback(s))
	metrics.SessionOpened()
	c.mu.Unlock()

	sessionLogger.WithFields(logrus.Fields{
		"tracks":   len(stream.Tracks()),
		"expected": s.expected,
	}).Info("Verification session started")

	return nil
}

// Close ends the active session: the pending frame is cancelled and every
// camera track is stopped before Close returns. A frame already being
// processed finishes first. Closing with no session is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked("close")
}

// Status returns the active session's status, or idle when none is open
func (c *Controller) Status() ScanStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return StatusIdle
	}
	return c.session.status
}

// Session returns a snapshot of the active session
func (c *Controller) Session() (SessionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return SessionInfo{}, false
	}

	return SessionInfo{
		ID:         s.id,
		Expected:   s.expected,
		Status:     s.status,
		Running:    s.running,
		Frames:     s.frames,
		Detections: s.detections,
		StartedAt:  s.startedAt,
	}, true
}

func (c *Controller) frameCallback(s *session) func() {
	return func() {
		c.processFrame(s)
	}
}

// processFrame runs one iteration of the loop and schedules the next
func (c *Controller) processFrame(s *session) {
	c.mu.Lock()
	if c.session != s || !s.running {
		c.mu.Unlock()
		return
	}

	var result *decode.Result
	frame, err := s.stream.ReadFrame()
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"session_id": s.id,
			"error":      err.Error(),
		}).Debug("No frame available")
	} else {
		s.frames++
		result = c.detector.DecodeFrame(frame)
		if result != nil {
			s.detections++
		}
	}

	step := Transition(s.status, result, s.expected)
	update := c.setStatusLocked(s, step, frame, result)
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, update)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s && s.running {
		s.handle = c.scheduler.RequestFrame(c.frameCallback(s))
	}
}

// setStatusLocked applies a step, paints its overlay and builds the listener update
func (c *Controller) setStatusLocked(s *session, step Step, frame *decode.Frame, result *decode.Result) *Update {
	prev, next := s.status, step.Next
	s.status = next

	if prev != next {
		metrics.RecordStatusTransition(string(prev), string(next))
		c.logger.WithFields(logrus.Fields{
			"session_id": s.id,
			"from":       prev,
			"to":         next,
			"frames":     s.frames,
		}).Info("Verification status changed")
	}

	var canvas *image.RGBA
	if frame != nil && step.Overlay.Kind != OverlayNone {
		if s.canvas == nil || s.canvas.Bounds().Dx() != frame.Width || s.canvas.Bounds().Dy() != frame.Height {
			s.canvas = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		}
		c.painter.Paint(s.canvas, step.Overlay)
		canvas = s.canvas
	}

	return &Update{
		SessionID: s.id,
		Previous:  prev,
		Status:    next,
		Overlay:   step.Overlay,
		Result:    result,
		Canvas:    canvas,
		Frames:    s.frames,
	}
}

// closeLocked tears down the active session; callers hold c.mu
func (c *Controller) closeLocked(reason string) {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil

	wasRunning := s.running
	s.running = false
	c.scheduler.CancelFrame(s.handle)

	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			teardownErr := &TeardownError{SessionID: s.id, Err: err}
			c.logger.WithError(teardownErr).Warn("Stream teardown failed, stopping tracks individually")
		}
		// Tracks are stopped directly as well so no capture indicator outlives the view
		for _, t := range s.stream.Tracks() {
			t.Stop()
		}
	}
	if wasRunning {
		metrics.SessionClosed()
	}

	c.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"reason":     reason,
		"status":     s.status,
		"frames":     s.frames,
		"detections": s.detections,
	}).Info("Verification session closed")
}

func notify(listeners []Listener, update *Update) {
	if update == nil {
		return
	}
	for _, l := range listeners {
		l(*update)
	}
}
