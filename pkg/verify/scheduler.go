package verify

import (
	"sync"
	"time"
)

// DefaultRefreshRate is the display refresh rate assumed when none is configured
const DefaultRefreshRate = 60

// FrameHandle identifies a scheduled frame callback
type FrameHandle uint64

// FrameScheduler runs one callback per display refresh. Each request
// schedules exactly one callback; the loop reschedules itself.
type FrameScheduler interface {
	RequestFrame(cb func()) FrameHandle
	CancelFrame(h FrameHandle)
}

type pendingFrame struct {
	cb    func()
	timer *time.Timer
}

// RefreshScheduler fires callbacks on the next tick of a fixed-rate
// refresh clock. While hidden, requested callbacks are held and only run
// once the view becomes visible again.
type RefreshScheduler struct {
	interval time.Duration
	epoch    time.Time

	mu      sync.Mutex
	next    FrameHandle
	pending map[FrameHandle]*pendingFrame
	visible bool
}

// NewRefreshScheduler creates a scheduler ticking hz times per second
func NewRefreshScheduler(hz int) *RefreshScheduler {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}

	return &RefreshScheduler{
		interval: time.Second / time.Duration(hz),
		epoch:    time.Now(),
		pending:  make(map[FrameHandle]*pendingFrame),
		visible:  true,
	}
}

// RequestFrame implements FrameScheduler
func (s *RefreshScheduler) RequestFrame(cb func()) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	p := &pendingFrame{cb: cb}
	s.pending[h] = p

	if s.visible {
		s.arm(h, p)
	}
	return h
}

// CancelFrame implements FrameScheduler. Unknown handles are ignored.
func (s *RefreshScheduler) CancelFrame(h FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[h]; ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(s.pending, h)
	}
}

// SetVisible pauses or resumes callback delivery
func (s *RefreshScheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visible == visible {
		return
	}
	s.visible = visible

	for h, p := range s.pending {
		if visible {
			s.arm(h, p)
		} else if p.timer != nil {
			p.timer.Stop()
			p.timer = nil
		}
	}
}

// Pending returns the number of callbacks waiting to run
func (s *RefreshScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// arm starts the timer for the next refresh tick; callers hold s.mu
func (s *RefreshScheduler) arm(h FrameHandle, p *pendingFrame) {
	delay := s.interval - time.Since(s.epoch)%s.interval

	p.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.pending[h]
		if !ok || current != p || !s.visible {
			s.mu.Unlock()
			return
		}
		delete(s.pending, h)
		s.mu.Unlock()

		p.cb()
	})
}
