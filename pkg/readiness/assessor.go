// Package readiness decides whether a styled QR code is likely to scan,
// combining contrast, sizing and background checks into typed warnings.
package readiness

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/contrast"
	"github.com/qrforge/scan-readiness/pkg/metrics"
	"github.com/qrforge/scan-readiness/pkg/sizing"
)

const (
	// DefaultContrastThreshold is the minimum relative luminance difference, in percent.
	// QR modules only need binary distinguishability, so this is not a WCAG text ratio.
	DefaultContrastThreshold = 40.0

	// DefaultSubstrate is the dark canvas a transparent symbol is assumed to sit on
	DefaultSubstrate = "#1a1a2e"
)

// Options tunes the assessor policy
type Options struct {
	ContrastThreshold float64
	Substrate         string
}

// DefaultOptions returns the standard policy
func DefaultOptions() Options {
	return Options{
		ContrastThreshold: DefaultContrastThreshold,
		Substrate:         DefaultSubstrate,
	}
}

// Assessor evaluates StyleConfig values for scan readiness
type Assessor struct {
	opts   Options
	logger *logrus.Logger
}

// NewAssessor creates an Assessor; zero-valued options fall back to defaults
func NewAssessor(opts Options, logger *logrus.Logger) *Assessor {
	if opts.ContrastThreshold <= 0 {
		opts.ContrastThreshold = DefaultContrastThreshold
	}
	if opts.Substrate == "" {
		opts.Substrate = DefaultSubstrate
	}

	return &Assessor{
		opts:   opts,
		logger: logger,
	}
}

// ResolveBackground maps the transparent sentinel to the substrate color
func (a *Assessor) ResolveBackground(style StyleConfig) string {
	if style.IsTransparent() {
		return a.opts.Substrate
	}
	return style.Background
}

// Assess runs every readiness check. It never fails: a malformed color
// yields metrics with ContrastAvailable=false and a contrast warning, so
// the style is never reported ready.
func (a *Assessor) Assess(style StyleConfig, dims Dimensions) Assessment {
	resolvedBG := a.ResolveBackground(style)
	m := Metrics{
		ResolvedBackground: resolvedBG,
		SizeOK:             true,
	}
	warnings := make([]Warning, 0, 4)

	// Contrast and inversion
	result, err := contrast.Evaluate(style.Foreground, resolvedBG)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"foreground": style.Foreground,
			"background": resolvedBG,
			"error":      err.Error(),
		}).Warn("Contrast unavailable, colors could not be parsed")

		// Unknown contrast cannot pass the threshold
		warnings = append(warnings, Warning{
			ID:      WarningContrast,
			Message: "Colors could not be parsed; contrast unavailable. Use hex colors such as #000000.",
		})
	} else {
		m.ContrastAvailable = true
		m.ContrastPercent = round2(result.RelativeDiffPercent)
		m.ContrastRatio = round2(result.ContrastRatio)
		m.MeetsContrast = m.ContrastPercent >= a.opts.ContrastThreshold
		m.IsInverted = result.IsInverted

		if !m.MeetsContrast {
			warnings = append(warnings, Warning{
				ID: WarningContrast,
				Message: fmt.Sprintf("Low contrast (%.2f%%). Use at least %g%% luminance difference between foreground and background.",
					m.ContrastPercent, a.opts.ContrastThreshold),
			})
		}
		if m.IsInverted {
			warnings = append(warnings, Warning{
				ID:      WarningInverted,
				Message: "Inverted colors (light on dark). Some scanners cannot read inverted codes.",
			})
		}
	}

	// Physical size
	size, err := sizing.Evaluate(dims.DistanceFt, dims.PrintWidthIn)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"distance_ft":    dims.DistanceFt,
			"print_width_in": dims.PrintWidthIn,
			"error":          err.Error(),
		}).Warn("Invalid size inputs, skipping size check")
	} else {
		m.RecommendedWidthIn = size.RecommendedWidthIn
		m.MaxDistanceFt = size.MaxDistanceFt
		m.RecommendedExportPx = size.RecommendedExportPx
		m.SizeOK = size.SizeOK

		if !size.SizeOK && dims.PrintWidthIn > 0 {
			warnings = append(warnings, Warning{
				ID: WarningSize,
				Message: fmt.Sprintf("Print width %.2f in is too small for %.2f ft. Print at least %.2f in wide (readable up to %.2f ft at current size).",
					dims.PrintWidthIn, dims.DistanceFt, size.RecommendedWidthIn, size.MaxDistanceFt),
			})
		}
	}

	// Transparency is informational and independent of contrast
	if style.IsTransparent() {
		warnings = append(warnings, Warning{
			ID: WarningTransparentBG,
			Message: fmt.Sprintf("Transparent background. Contrast was measured against %s; the final surface must provide enough contrast.",
				resolvedBG),
		})
	}

	assessment := Assessment{
		Metrics:  m,
		Warnings: warnings,
		Ready:    len(warnings) == 0,
	}

	metrics.RecordReadiness(assessment.Ready, assessment.WarningIDs())
	a.logger.WithFields(logrus.Fields{
		"ready":          assessment.Ready,
		"warnings":       assessment.WarningIDs(),
		"contrast_pct":   m.ContrastPercent,
		"contrast_ratio": m.ContrastRatio,
	}).Debug("Readiness assessed")

	return assessment
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
