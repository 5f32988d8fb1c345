// Package render produces QR symbols from a StyleConfig and exports them
// as SVG, PNG or JPEG.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/qrforge/scan-readiness/pkg/contrast"
	"github.com/qrforge/scan-readiness/pkg/readiness"
)

// Format is an export format
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

const (
	// DefaultSize is the export edge length used when none is given
	DefaultSize = 512

	// logoScale is the logo's width as a fraction of the symbol
	logoScale = 0.2

	defaultFileName = "qr-code"
)

var (
	// ErrEmptyPayload is returned when the style carries no data to encode
	ErrEmptyPayload = errors.New("no data to encode")

	// ErrUnsupportedFormat is returned for unknown export formats
	ErrUnsupportedFormat = errors.New("unsupported export format")

	unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// ParseFormat parses an export format name; "jpg" is accepted for JPEG
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// SymbolRenderer renders and exports styled QR symbols
type SymbolRenderer interface {
	Render(style readiness.StyleConfig, size int) (image.Image, error)
	Export(w io.Writer, style readiness.StyleConfig, format Format, size int) error
}

// QRRenderer is the SymbolRenderer backed by go-qrcode
type QRRenderer struct {
	substrate color.Color
	logger    *logrus.Logger
}

// NewQRRenderer creates a renderer. substrate is the color transparent
// areas are flattened onto for formats without alpha.
func NewQRRenderer(substrate string, logger *logrus.Logger) (*QRRenderer, error) {
	c, err := contrast.ParseHex(substrate)
	if err != nil {
		return nil, fmt.Errorf("invalid substrate color: %w", err)
	}

	return &QRRenderer{
		substrate: color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255},
		logger:    logger,
	}, nil
}

// Render implements SymbolRenderer
func (r *QRRenderer) Render(style readiness.StyleConfig, size int) (image.Image, error) {
	q, err := r.symbol(style)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}

	img := toRGBA(q.Image(size))

	if style.Logo != "" {
		if err := r.drawLogo(img, style.Logo); err != nil {
			return nil, err
		}
	}

	return img, nil
}

// symbol builds the go-qrcode symbol with the style's colors and level
func (r *QRRenderer) symbol(style readiness.StyleConfig) (*qrcode.QRCode, error) {
	if style.Data == "" {
		return nil, ErrEmptyPayload
	}

	q, err := qrcode.New(style.Data, recoveryLevel(style.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbol: %w", err)
	}

	fg, err := contrast.ParseHex(style.Foreground)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	q.ForegroundColor = color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: 255}

	if style.IsTransparent() {
		q.BackgroundColor = color.Transparent
	} else {
		bg, err := contrast.ParseHex(style.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		q.BackgroundColor = color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}
	}

	return q, nil
}

// drawLogo scales the logo to a fifth of the symbol width and centers it
func (r *QRRenderer) drawLogo(dst *image.RGBA, path string) error {
	logo, err := loadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load logo: %w", err)
	}

	b := dst.Bounds()
	lb := logo.Bounds()
	w := int(float64(b.Dx()) * logoScale)
	h := w * lb.Dy() / max(lb.Dx(), 1)
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2

	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), logo, lb, xdraw.Over, nil)

	r.logger.WithFields(logrus.Fields{
		"logo":   filepath.Base(path),
		"width":  w,
		"height": h,
	}).Debug("Logo composited")

	return nil
}

// FileName builds a download file name from a hint and format
func FileName(hint string, format Format) string {
	name := strings.TrimSuffix(strings.TrimSpace(hint), filepath.Ext(hint))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = defaultFileName
	}
	return name + "." + string(format)
}

func recoveryLevel(level readiness.ErrorCorrection) qrcode.RecoveryLevel {
	switch level {
	case readiness.ErrorCorrectionLow:
		return qrcode.Low
	case readiness.ErrorCorrectionQuartile:
		return qrcode.High
	case readiness.ErrorCorrectionHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
