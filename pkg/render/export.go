package render

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/metrics"
	"github.com/qrforge/scan-readiness/pkg/readiness"
)

const jpegQuality = 92

// Export implements SymbolRenderer
func (r *QRRenderer) Export(w io.Writer, style readiness.StyleConfig, format Format, size int) error {
	err := r.export(w, style, format, size)

	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.RecordExport(string(format), status)

	r.logger.WithFields(logrus.Fields{
		"format": format,
		"size":   size,
		"status": status,
	}).Debug("Symbol exported")

	return err
}

func (r *QRRenderer) export(w io.Writer, style readiness.StyleConfig, format Format, size int) error {
	switch format {
	case FormatSVG:
		return r.writeSVG(w, style, size)
	case FormatPNG:
		img, err := r.Render(style, size)
		if err != nil {
			return err
		}
		return png.Encode(w, img)
	case FormatJPEG:
		img, err := r.Render(style, size)
		if err != nil {
			return err
		}
		// JPEG has no alpha channel
		return jpeg.Encode(w, flatten(img, r.substrate), &jpeg.Options{Quality: jpegQuality})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// writeSVG emits one rect per horizontal run of dark modules
func (r *QRRenderer) writeSVG(w io.Writer, style readiness.StyleConfig, size int) error {
	q, err := r.symbol(style)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = DefaultSize
	}

	bitmap := q.Bitmap()
	modules := len(bitmap)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, modules, modules)
	bw.WriteString("\n")

	if !style.IsTransparent() {
		fmt.Fprintf(bw, `<rect width="%d" height="%d" fill="%s"/>`+"\n", modules, modules, hexOf(q.BackgroundColor))
	}

	fmt.Fprintf(bw, `<g fill="%s">`+"\n", hexOf(q.ForegroundColor))
	for y, row := range bitmap {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="1"/>`+"\n", start, y, x-start)
		}
	}
	bw.WriteString("</g>\n")

	if style.Logo != "" {
		if err := writeSVGLogo(bw, style.Logo, modules); err != nil {
			return err
		}
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// writeSVGLogo embeds the logo as a base64 PNG centered on the symbol
func writeSVGLogo(w io.Writer, path string, modules int) error {
	logo, err := loadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load logo: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, logo); err != nil {
		return fmt.Errorf("failed to encode logo: %w", err)
	}

	lb := logo.Bounds()
	width := float64(modules) * logoScale
	height := width * float64(lb.Dy()) / float64(max(lb.Dx(), 1))

	_, err = fmt.Fprintf(w, `<image x="%.2f" y="%.2f" width="%.2f" height="%.2f" href="data:image/png;base64,%s"/>`+"\n",
		(float64(modules)-width)/2, (float64(modules)-height)/2, width, height,
		base64.StdEncoding.EncodeToString(buf.Bytes()))
	return err
}

func flatten(img image.Image, background color.Color) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

func hexOf(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
}
