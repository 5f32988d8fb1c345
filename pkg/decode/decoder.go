// Package decode locates and reads QR codes in captured video frames.
package decode

// InversionMode selects whether the decoder also searches for light-on-dark codes
type InversionMode string

const (
	// DontInvert reads dark-on-light codes only
	DontInvert InversionMode = "dontInvert"

	// AttemptBoth retries with inverted pixels when the first pass finds nothing
	AttemptBoth InversionMode = "attemptBoth"
)

// Options configures a single decode call
type Options struct {
	Invert InversionMode
}

// FrameDecoder is the low-level pixel decoding primitive.
// It returns (nil, nil) when no code is found in the buffer.
type FrameDecoder interface {
	Decode(pix []byte, width, height int, opts Options) (*Result, error)
}
