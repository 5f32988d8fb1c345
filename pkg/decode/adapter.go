package decode

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/metrics"
)

// Adapter normalizes a FrameDecoder for the verification loop: inverted
// search is disabled and every decoder fault is reported as no detection.
type Adapter struct {
	decoder FrameDecoder
	logger  *logrus.Logger
}

// NewAdapter wraps decoder
func NewAdapter(decoder FrameDecoder, logger *logrus.Logger) *Adapter {
	return &Adapter{
		decoder: decoder,
		logger:  logger,
	}
}

// DecodeFrame returns the detection in frame, or nil when there is none
func (a *Adapter) DecodeFrame(frame *Frame) *Result {
	if err := frame.Validate(); err != nil {
		a.absorb(err)
		return nil
	}

	start := time.Now()
	result, err := a.safeDecode(frame)
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordFrameDecode("failure", duration)
		a.absorb(err)
		return nil
	}

	if result == nil {
		metrics.RecordFrameDecode("not_found", duration)
		return nil
	}

	metrics.RecordFrameDecode("found", duration)
	return result
}

func (a *Adapter) safeDecode(frame *Frame) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()

	return a.decoder.Decode(frame.Pix, frame.Width, frame.Height, Options{Invert: DontInvert})
}

func (a *Adapter) absorb(err error) {
	metrics.RecordDecodeFailure()
	a.logger.WithError(err).Debug("Frame decode failed, treating as no code")
}
