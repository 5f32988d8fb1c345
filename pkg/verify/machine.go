package verify

import (
	"image/color"
	"strings"

	"github.com/qrforge/scan-readiness/pkg/decode"
)

// OverlayKind selects what the overlay draws for a frame
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayQuad
	OverlayGuide
)

// GuideInset is the fraction of each frame edge the alignment guide is inset by
const GuideInset = 0.15

var (
	successStroke  = color.NRGBA{R: 34, G: 197, B: 94, A: 255}
	successFill    = color.NRGBA{R: 34, G: 197, B: 94, A: 51}
	mismatchStroke = color.NRGBA{R: 234, G: 179, B: 8, A: 255}
	mismatchFill   = color.NRGBA{R: 234, G: 179, B: 8, A: 51}
	guideStroke    = color.NRGBA{R: 255, G: 255, B: 255, A: 178}
)

// Overlay describes what to draw over the current frame
type Overlay struct {
	Kind    OverlayKind
	Corners [4]decode.Point
	Center  decode.Point
	Fill    color.NRGBA
	Stroke  color.NRGBA
}

// Step is the outcome of processing one frame
type Step struct {
	Next    ScanStatus
	Overlay Overlay
}

// Transition computes the next status from the previous one and the
// frame's decode result. A frame without a code returns the session to
// scanning, so success and error only describe the frame on screen.
func Transition(prev ScanStatus, result *decode.Result, expected string) Step {
	if prev.IsTerminal() {
		return Step{Next: prev}
	}

	if result == nil {
		return Step{
			Next:    StatusScanning,
			Overlay: Overlay{Kind: OverlayGuide, Stroke: guideStroke},
		}
	}

	overlay := Overlay{
		Kind:    OverlayQuad,
		Corners: result.Corners,
		Center:  result.Centroid(),
	}

	if Matches(result.Payload, expected) {
		overlay.Fill, overlay.Stroke = successFill, successStroke
		return Step{Next: StatusSuccess, Overlay: overlay}
	}

	overlay.Fill, overlay.Stroke = mismatchFill, mismatchStroke
	return Step{Next: StatusError, Overlay: overlay}
}

// Matches compares a decoded payload with the expected data. Only the
// expected value is trimmed; comparison is exact and case-sensitive.
func Matches(payload, expected string) bool {
	return payload == strings.TrimSpace(expected)
}

// GuideRect returns the alignment guide for a w×h frame as x, y, width, height
func GuideRect(w, h int) (float64, float64, float64, float64) {
	insetX := float64(w) * GuideInset
	insetY := float64(h) * GuideInset
	return insetX, insetY, float64(w) - 2*insetX, float64(h) - 2*insetY
}
