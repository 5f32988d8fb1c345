package verify

import (
	"image"
	"image/draw"

	"github.com/fogleman/gg"
)

const (
	quadLineWidth   = 4
	centerDotRadius = 6
	guideLineWidth  = 2
)

// Painter draws overlays onto a transparent canvas laid over the video
type Painter struct{}

// Clear resets the canvas to fully transparent
func (p *Painter) Clear(canvas *image.RGBA) {
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Paint clears canvas and draws o onto it
func (p *Painter) Paint(canvas *image.RGBA, o Overlay) {
	p.Clear(canvas)

	dc := gg.NewContextForRGBA(canvas)

	switch o.Kind {
	case OverlayQuad:
		dc.MoveTo(o.Corners[0].X, o.Corners[0].Y)
		for _, c := range o.Corners[1:] {
			dc.LineTo(c.X, c.Y)
		}
		dc.ClosePath()
		dc.SetColor(o.Fill)
		dc.FillPreserve()
		dc.SetColor(o.Stroke)
		dc.SetLineWidth(quadLineWidth)
		dc.Stroke()

		dc.DrawCircle(o.Center.X, o.Center.Y, centerDotRadius)
		dc.SetColor(o.Stroke)
		dc.Fill()

	case OverlayGuide:
		b := canvas.Bounds()
		x, y, w, h := GuideRect(b.Dx(), b.Dy())
		dc.SetDash(12, 8)
		dc.DrawRectangle(x, y, w, h)
		dc.SetColor(o.Stroke)
		dc.SetLineWidth(guideLineWidth)
		dc.Stroke()
	}
}
