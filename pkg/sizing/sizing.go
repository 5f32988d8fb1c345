// Package sizing applies the 10:1 distance-to-width rule used to size
// printed QR codes.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DistanceToWidthRatio is the 10:1 rule: a code scans from ten times its width
	DistanceToWidthRatio = 10.0

	// PrintDPI is the export resolution assumed for print output
	PrintDPI = 300

	// MinExportPixels is the smallest export recommended for screen use
	MinExportPixels = 256

	inchesPerFoot = 12.0
)

// ErrNegativeInput is returned when a distance or width is below zero
var ErrNegativeInput = errors.New("size inputs must be non-negative")

// Result holds the sizing recommendation for a distance/width pair
type Result struct {
	DistanceFt          float64 `json:"distance_ft"`
	PrintWidthIn        float64 `json:"print_width_in"`
	RecommendedWidthIn  float64 `json:"recommended_width_in"`
	MaxDistanceFt       float64 `json:"max_distance_ft"`
	RecommendedExportPx int     `json:"recommended_export_px"`
	SizeOK              bool    `json:"size_ok"`
}

// Evaluate applies the 10:1 heuristic. A print width of 0 means no
// physical size has been declared and is always considered OK.
func Evaluate(distanceFt, printWidthIn float64) (Result, error) {
	if distanceFt < 0 || printWidthIn < 0 || math.IsNaN(distanceFt) || math.IsNaN(printWidthIn) {
		return Result{}, fmt.Errorf("%w: distance=%v width=%v", ErrNegativeInput, distanceFt, printWidthIn)
	}

	recommended := RecommendedWidth(distanceFt)

	return Result{
		DistanceFt:          distanceFt,
		PrintWidthIn:        printWidthIn,
		RecommendedWidthIn:  recommended,
		MaxDistanceFt:       MaxDistance(printWidthIn),
		RecommendedExportPx: ExportPixels(printWidthIn),
		SizeOK:              printWidthIn == 0 || printWidthIn >= recommended,
	}, nil
}

// RecommendedWidth returns the minimum print width in inches for a viewing distance in feet
func RecommendedWidth(distanceFt float64) float64 {
	return round2(distanceFt * inchesPerFoot / DistanceToWidthRatio)
}

// MaxDistance returns the farthest comfortable viewing distance in feet for a print width in inches
func MaxDistance(widthIn float64) float64 {
	return round2(widthIn / inchesPerFoot * DistanceToWidthRatio)
}

// ExportPixels returns the recommended export edge length in pixels
func ExportPixels(widthIn float64) int {
	px := int(math.Round(widthIn * PrintDPI))
	if px < MinExportPixels {
		return MinExportPixels
	}
	return px
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
