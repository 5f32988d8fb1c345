package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/decode"
)

// DirectoryCamera serves the most recently written image in a directory as
// the live frame. A capture tool (or a phone sync folder) drops frames into
// the directory and the stream picks each one up as it lands.
type DirectoryCamera struct {
	dir    string
	logger *logrus.Logger
}

// NewDirectoryCamera creates a camera reading frames from dir
func NewDirectoryCamera(dir string, logger *logrus.Logger) *DirectoryCamera {
	return &DirectoryCamera{
		dir:    dir,
		logger: logger,
	}
}

// Acquire implements Camera. An unreadable directory maps to ErrPermissionDenied.
func (c *DirectoryCamera) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AcquisitionError{Device: c.dir, Err: err}
	}
	if err := checkConstraints(constraints); err != nil {
		return nil, &AcquisitionError{Device: c.dir, Err: err}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, &AcquisitionError{Device: c.dir, Err: fmt.Errorf("%w: %v", ErrPermissionDenied, err)}
		}
		return nil, &AcquisitionError{Device: c.dir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &AcquisitionError{Device: c.dir, Err: fmt.Errorf("failed to create watcher: %w", err)}
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		if errors.Is(err, fs.ErrPermission) {
			return nil, &AcquisitionError{Device: c.dir, Err: fmt.Errorf("%w: %v", ErrPermissionDenied, err)}
		}
		return nil, &AcquisitionError{Device: c.dir, Err: fmt.Errorf("failed to watch directory: %w", err)}
	}

	s := &directoryStream{
		watcher: watcher,
		track:   newVideoTrack(),
		latest:  newestImage(c.dir, entries),
		logger:  c.logger.WithField("device", c.dir),
	}
	go s.watch()

	c.logger.WithFields(logrus.Fields{
		"device":      c.dir,
		"facing_mode": constraints.FacingMode,
		"track_id":    s.track.ID(),
	}).Info("Camera stream acquired")

	return s, nil
}

type directoryStream struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	track   *videoTrack
	logger  *logrus.Entry

	latest  string
	dirty   bool
	cached  *decode.Frame
	stopped bool
}

// watch follows new and rewritten frame files until the watcher closes
func (s *directoryStream) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !isImageFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				s.mu.Lock()
				s.latest = event.Name
				s.dirty = true
				s.mu.Unlock()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Warn("Frame watcher error")
		}
	}
}

func (s *directoryStream) ReadFrame() (*decode.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStreamStopped
	}
	if s.latest == "" {
		return nil, ErrNoFrame
	}
	if s.cached != nil && !s.dirty {
		return s.cached, nil
	}

	frame, err := LoadFrame(s.latest)
	if err != nil {
		return nil, err
	}

	s.cached = frame
	s.dirty = false
	return frame, nil
}

func (s *directoryStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *directoryStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	s.track.Stop()
	s.cached = nil

	if err := s.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close frame watcher: %w", err)
	}
	return nil
}

// LoadFrame decodes a PNG or JPEG file into a frame
func LoadFrame(path string) (*decode.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}

	return decode.FrameFromImage(img), nil
}

// newestImage returns the most recently modified image file among entries
func newestImage(dir string, entries []os.DirEntry) string {
	var newest string
	var newestInfo fs.FileInfo

	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) {
			newest = filepath.Join(dir, entry.Name())
			newestInfo = info
		}
	}

	return newest
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
