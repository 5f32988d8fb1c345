package decode

import (
	"fmt"
	"image"
	"image/draw"
)

// Frame is a captured RGBA pixel buffer with stride 4*Width
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// Validate checks the buffer matches the declared dimensions
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("frame is nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 4; len(f.Pix) != want {
		return fmt.Errorf("frame buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height)
	}
	return nil
}

// Image wraps the buffer as an *image.RGBA without copying
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameFromImage draws img onto an off-screen RGBA canvas and returns its pixels
func FrameFromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	return &Frame{
		Pix:    canvas.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
}
