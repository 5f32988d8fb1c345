package decode

import (
	"fmt"
	"math"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// finderHalfWidth is the distance, in modules, from a finder pattern's
// center to the symbol's outer edge
const finderHalfWidth = 3.5

// moduleSizer is implemented by gozxing finder patterns
type moduleSizer interface {
	GetEstimatedModuleSize() float64
}

// ZXingDecoder is the FrameDecoder backed by gozxing's QR reader
type ZXingDecoder struct {
	tryHarder bool
}

// NewZXingDecoder creates a decoder; tryHarder trades speed for accuracy
func NewZXingDecoder(tryHarder bool) *ZXingDecoder {
	return &ZXingDecoder{tryHarder: tryHarder}
}

// Decode implements FrameDecoder
func (d *ZXingDecoder) Decode(pix []byte, width, height int, opts Options) (*Result, error) {
	frame := &Frame{Pix: pix, Width: width, Height: height}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	result, err := d.decodeImage(frame)
	if result != nil || opts.Invert != AttemptBoth {
		return result, err
	}

	if inverted, _ := d.decodeImage(invertFrame(frame)); inverted != nil {
		return inverted, nil
	}
	return nil, err
}

func (d *ZXingDecoder) decodeImage(frame *Frame) (*Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame.Image())
	if err != nil {
		return nil, fmt.Errorf("failed to binarize frame: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("qr decode failed: %w", err)
	}

	return &Result{
		Payload: res.GetText(),
		Corners: cornersFromPoints(res.GetResultPoints()),
	}, nil
}

// cornersFromPoints converts the QR reader's finder-pattern centers
// (bottom-left, top-left, top-right) into the symbol's outer corners
func cornersFromPoints(points []gozxing.ResultPoint) [4]Point {
	if len(points) < 3 {
		return boundingCorners(points)
	}

	bl := Point{points[0].GetX(), points[0].GetY()}
	tl := Point{points[1].GetX(), points[1].GetY()}
	tr := Point{points[2].GetX(), points[2].GetY()}

	var moduleSize float64
	var sized int
	for _, p := range points[:3] {
		if s, ok := p.(moduleSizer); ok && s.GetEstimatedModuleSize() > 0 {
			moduleSize += s.GetEstimatedModuleSize()
			sized++
		}
	}
	if sized > 0 {
		moduleSize /= float64(sized)
	}

	return outerCorners(tl, tr, bl, moduleSize*finderHalfWidth)
}

// outerCorners completes the parallelogram spanned by three finder
// centers and pushes each corner outward by margin pixels
func outerCorners(tl, tr, bl Point, margin float64) [4]Point {
	br := Point{X: tr.X + bl.X - tl.X, Y: tr.Y + bl.Y - tl.Y}

	ux, uy := unit(tl, tr)
	vx, vy := unit(tl, bl)

	offset := func(p Point, su, sv float64) Point {
		return Point{
			X: p.X + margin*(su*ux+sv*vx),
			Y: p.Y + margin*(su*uy+sv*vy),
		}
	}

	return [4]Point{
		offset(tl, -1, -1),
		offset(tr, 1, -1),
		offset(br, 1, 1),
		offset(bl, -1, 1),
	}
}

func unit(from, to Point) (float64, float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return dx / length, dy / length
}

func boundingCorners(points []gozxing.ResultPoint) [4]Point {
	if len(points) == 0 {
		return [4]Point{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}

	return [4]Point{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

func invertFrame(f *Frame) *Frame {
	inverted := make([]byte, len(f.Pix))
	for i := 0; i < len(f.Pix); i += 4 {
		inverted[i] = 255 - f.Pix[i]
		inverted[i+1] = 255 - f.Pix[i+1]
		inverted[i+2] = 255 - f.Pix[i+2]
		inverted[i+3] = f.Pix[i+3]
	}
	return &Frame{Pix: inverted, Width: f.Width, Height: f.Height}
}
