// Package contrast computes WCAG relative luminance and contrast figures
// for a foreground/background color pair.
package contrast

import "math"

// epsilon keeps the relative difference defined when both luminances are 0
const epsilon = 1e-9

// Result describes the contrast between a foreground and background color
type Result struct {
	FgLuminance         float64 `json:"fg_luminance"`
	BgLuminance         float64 `json:"bg_luminance"`
	ContrastRatio       float64 `json:"contrast_ratio"`
	RelativeDiffPercent float64 `json:"relative_diff_percent"`
	IsInverted          bool    `json:"is_inverted"`
}

// Evaluate parses both colors and computes their contrast.
// The background must already be resolved from any sentinel value.
func Evaluate(fg, bg string) (Result, error) {
	fgColor, err := ParseHex(fg)
	if err != nil {
		return Result{}, err
	}
	bgColor, err := ParseHex(bg)
	if err != nil {
		return Result{}, err
	}

	return EvaluateRGB(fgColor, bgColor), nil
}

// EvaluateRGB computes contrast for already parsed colors
func EvaluateRGB(fg, bg RGB) Result {
	fgLum := Luminance(fg)
	bgLum := Luminance(bg)

	return Result{
		FgLuminance:         fgLum,
		BgLuminance:         bgLum,
		ContrastRatio:       Ratio(fgLum, bgLum),
		RelativeDiffPercent: RelativeDiff(fgLum, bgLum) * 100,
		IsInverted:          fgLum > bgLum,
	}
}

// Ratio returns the WCAG contrast ratio of two luminances, in [1, 21]
func Ratio(l1, l2 float64) float64 {
	lighter := math.Max(l1, l2)
	darker := math.Min(l1, l2)
	return (lighter + 0.05) / (darker + 0.05)
}

// RelativeDiff returns |l1-l2| / max(l1, l2) as a fraction in [0, 1]
func RelativeDiff(l1, l2 float64) float64 {
	return math.Abs(l1-l2) / math.Max(math.Max(l1, l2), epsilon)
}
