package verify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	goqrcode "github.com/skip2/go-qrcode"

	"github.com/qrforge/scan-readiness/pkg/camera"
	"github.com/qrforge/scan-readiness/pkg/decode"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func blankFrame() *decode.Frame {
	return &decode.Frame{Pix: make([]byte, 64*64*4), Width: 64, Height: 64}
}

// manualScheduler runs callbacks only when the test steps it
type manualScheduler struct {
	mu      sync.Mutex
	next    FrameHandle
	pending map[FrameHandle]func()
	history []func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{pending: make(map[FrameHandle]func())}
}

func (m *manualScheduler) RequestFrame(cb func()) FrameHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending[m.next] = cb
	m.history = append(m.history, cb)
	return m.next
}

func (m *manualScheduler) CancelFrame(h FrameHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, h)
}

func (m *manualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Step runs the pending callback, if any
func (m *manualScheduler) Step() bool {
	m.mu.Lock()
	var cb func()
	for h, pending := range m.pending {
		cb = pending
		delete(m.pending, h)
		break
	}
	m.mu.Unlock()

	if cb == nil {
		return false
	}
	cb()
	return true
}

func (m *manualScheduler) lastCallback() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[len(m.history)-1]
}

// scriptedDetector returns results in order, then nil
type scriptedDetector struct {
	mu      sync.Mutex
	results []*decode.Result
	calls   int
}

func (d *scriptedDetector) DecodeFrame(frame *decode.Frame) *decode.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.results) == 0 {
		return nil
	}
	r := d.results[0]
	d.results = d.results[1:]
	return r
}

func (d *scriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// recordingCamera remembers every stream it hands out
type recordingCamera struct {
	inner   camera.Camera
	streams []camera.Stream
}

func (r *recordingCamera) Acquire(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	s, err := r.inner.Acquire(ctx, c)
	if err == nil {
		r.streams = append(r.streams, s)
	}
	return s, err
}

// failingStopStream stops its tracks but reports a teardown failure
type failingStopStream struct {
	camera.Stream
}

func (f failingStopStream) Stop() error {
	return errors.New("device busy")
}

type failingStopCamera struct {
	inner  camera.Camera
	stream camera.Stream
}

func (f *failingStopCamera) Acquire(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	s, err := f.inner.Acquire(ctx, c)
	if err != nil {
		return nil, err
	}
	f.stream = failingStopStream{Stream: s}
	return f.stream, nil
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []Update
}

func (u *updateRecorder) listen(update Update) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, update)
}

func (u *updateRecorder) statuses() []ScanStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]ScanStatus, 0, len(u.updates))
	for _, up := range u.updates {
		out = append(out, up.Status)
	}
	return out
}

func TestController_PermissionDenied(t *testing.T) {
	cam := camera.NewStaticCamera(blankFrame())
	cam.Denied = true
	sched := newManualScheduler()
	det := &scriptedDetector{}
	rec := &updateRecorder{}

	c := NewController(cam, sched, det, discardLogger())
	c.Subscribe(rec.listen)

	err := c.Open(context.Background(), "data")
	if !camera.IsPermissionDenied(err) {
		t.Fatalf("Open() error = %v, want permission denied", err)
	}
	if c.Status() != StatusNoPermission {
		t.Errorf("Status() = %s, want no_permission", c.Status())
	}
	if sched.Pending() != 0 {
		t.Errorf("frame loop started after permission denial")
	}
	if got := rec.statuses(); len(got) != 1 || got[0] != StatusNoPermission {
		t.Errorf("updates = %v, want [no_permission]", got)
	}

	c.Close()
	if det.Calls() != 0 {
		t.Errorf("decode attempts = %d, want 0", det.Calls())
	}
}

func TestController_RevertsToScanningWhenCodeLeavesFrame(t *testing.T) {
	sched := newManualScheduler()
	det := &scriptedDetector{results: []*decode.Result{nil, detection("hello"), nil}}
	rec := &updateRecorder{}

	c := NewController(camera.NewStaticCamera(blankFrame()), sched, det, discardLogger())
	c.Subscribe(rec.listen)

	if err := c.Open(context.Background(), "  hello\n"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	if c.Status() != StatusIdle {
		t.Errorf("Status() before first frame = %s, want idle", c.Status())
	}

	want := []ScanStatus{StatusScanning, StatusSuccess, StatusScanning}
	for i, status := range want {
		if !sched.Step() {
			t.Fatalf("frame %d was not scheduled", i)
		}
		if c.Status() != status {
			t.Errorf("after frame %d Status() = %s, want %s", i, c.Status(), status)
		}
	}

	if sched.Pending() != 1 {
		t.Errorf("Pending() = %d, want the next frame scheduled", sched.Pending())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(rec.updates))
	}
	success := rec.updates[1]
	if success.Previous != StatusScanning || success.Result == nil || success.Result.Payload != "hello" {
		t.Errorf("success update = %+v", success)
	}
	if success.Canvas == nil || success.Overlay.Kind != OverlayQuad {
		t.Errorf("success update should carry a painted quad overlay")
	}
	if rec.updates[2].Overlay.Kind != OverlayGuide {
		t.Errorf("no-detection update should carry the guide overlay")
	}
}

func TestController_MismatchThenMatch(t *testing.T) {
	sched := newManualScheduler()
	det := &scriptedDetector{results: []*decode.Result{detection("old-print"), detection("old-print"), detection("new-print")}}

	c := NewController(camera.NewStaticCamera(blankFrame()), sched, det, discardLogger())
	if err := c.Open(context.Background(), "new-print"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	for i, want := range []ScanStatus{StatusError, StatusError, StatusSuccess} {
		sched.Step()
		if c.Status() != want {
			t.Errorf("frame %d: Status() = %s, want %s", i, c.Status(), want)
		}
	}

	info, ok := c.Session()
	if !ok {
		t.Fatal("Session() returned no session")
	}
	if info.Frames != 3 || info.Detections != 3 || !info.Running {
		t.Errorf("Session() = %+v", info)
	}
}

func TestController_CloseWhileScanning(t *testing.T) {
	sched := newManualScheduler()
	det := &scriptedDetector{}
	cam := &recordingCamera{inner: camera.NewStaticCamera(blankFrame())}

	c := NewController(cam, sched, det, discardLogger())
	if err := c.Open(context.Background(), "data"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	sched.Step()
	sched.Step()
	if c.Status() != StatusScanning {
		t.Fatalf("Status() = %s, want scanning", c.Status())
	}
	stale := sched.lastCallback()
	callsBefore := det.Calls()

	c.Close()

	if live := camera.LiveTracks(cam.streams[0]); live != 0 {
		t.Errorf("LiveTracks() = %d after close, want 0", live)
	}
	if sched.Pending() != 0 {
		t.Errorf("Pending() = %d after close, want 0", sched.Pending())
	}

	// A callback that fires late must not process a frame
	stale()
	sched.Step()

	if det.Calls() != callsBefore {
		t.Errorf("decode attempts after close = %d, want %d", det.Calls(), callsBefore)
	}
	if _, ok := c.Session(); ok {
		t.Error("Session() still reports a session after close")
	}
	if c.Status() != StatusIdle {
		t.Errorf("Status() = %s after close, want idle", c.Status())
	}
}

func TestController_CloseWithoutOpen(t *testing.T) {
	c := NewController(camera.NewStaticCamera(), newManualScheduler(), &scriptedDetector{}, discardLogger())

	c.Close()
	c.Close()

	if c.Status() != StatusIdle {
		t.Errorf("Status() = %s, want idle", c.Status())
	}
}

func TestController_ReopenStopsPreviousStream(t *testing.T) {
	sched := newManualScheduler()
	cam := &recordingCamera{inner: camera.NewStaticCamera(blankFrame())}

	c := NewController(cam, sched, &scriptedDetector{}, discardLogger())
	if err := c.Open(context.Background(), "first"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	first, _ := c.Session()

	if err := c.Open(context.Background(), "second"); err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer c.Close()

	second, _ := c.Session()
	if first.ID == second.ID {
		t.Error("reopen should create a new session")
	}
	if second.Expected != "second" {
		t.Errorf("Expected = %s, want second", second.Expected)
	}
	if camera.LiveTracks(cam.streams[0]) != 0 {
		t.Error("first stream still live after reopen")
	}
	if camera.LiveTracks(cam.streams[1]) != 1 {
		t.Error("second stream should be live")
	}
	if sched.Pending() != 1 {
		t.Errorf("Pending() = %d, want exactly one scheduled frame", sched.Pending())
	}
}

func TestController_CloseFromListener(t *testing.T) {
	sched := newManualScheduler()
	det := &scriptedDetector{results: []*decode.Result{detection("done")}}

	c := NewController(camera.NewStaticCamera(blankFrame()), sched, det, discardLogger())
	c.Subscribe(func(u Update) {
		if u.Status == StatusSuccess {
			c.Close()
		}
	})

	if err := c.Open(context.Background(), "done"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sched.Step()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("closing from a listener deadlocked")
	}

	if sched.Pending() != 0 {
		t.Errorf("Pending() = %d after close in listener, want 0", sched.Pending())
	}
}

func TestController_TeardownFailureIsNotFatal(t *testing.T) {
	cam := &failingStopCamera{inner: camera.NewStaticCamera(blankFrame())}

	c := NewController(cam, newManualScheduler(), &scriptedDetector{}, discardLogger())
	if err := c.Open(context.Background(), "data"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	c.Close()

	if camera.LiveTracks(cam.stream) != 0 {
		t.Error("tracks should be stopped even when stream teardown fails")
	}
	if _, ok := c.Session(); ok {
		t.Error("session should be closed despite teardown failure")
	}
}

func TestController_FrameReadErrorCountsAsNoCode(t *testing.T) {
	sched := newManualScheduler()
	det := &scriptedDetector{}

	// A camera with no frames yields ErrNoFrame on every read
	c := NewController(camera.NewStaticCamera(), sched, det, discardLogger())
	if err := c.Open(context.Background(), "data"); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	sched.Step()

	if c.Status() != StatusScanning {
		t.Errorf("Status() = %s, want scanning", c.Status())
	}
	if det.Calls() != 0 {
		t.Errorf("decode attempts = %d, want 0 without a frame", det.Calls())
	}
	if sched.Pending() != 1 {
		t.Error("loop should keep running after a missing frame")
	}
}

func TestController_LiveLoopWithRenderedSymbol(t *testing.T) {
	const payload = "https://example.com/verify"

	q, err := goqrcode.New(payload, goqrcode.Medium)
	if err != nil {
		t.Fatalf("failed to encode symbol: %v", err)
	}
	frame := decode.FrameFromImage(q.Image(256))

	sched := NewRefreshScheduler(120)
	adapter := decode.NewAdapter(decode.NewZXingDecoder(false), discardLogger())
	c := NewController(camera.NewStaticCamera(blankFrame(), frame), sched, adapter, discardLogger())

	success := make(chan Update, 1)
	c.Subscribe(func(u Update) {
		if u.Status == StatusSuccess {
			select {
			case success <- u:
			default:
			}
		}
	})

	if err := c.Open(context.Background(), payload); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	select {
	case u := <-success:
		if u.Result == nil || u.Result.Payload != payload {
			t.Errorf("success update result = %+v", u.Result)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no success within deadline, status %s", c.Status())
	}

	c.Close()
	if sched.Pending() != 0 {
		t.Errorf("Pending() = %d after close, want 0", sched.Pending())
	}
}
