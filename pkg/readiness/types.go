package readiness

import "strings"

// TransparentBackground is the sentinel background value for a see-through symbol
const TransparentBackground = "transparent"

// ErrorCorrection is a QR error-correction level
type ErrorCorrection string

const (
	ErrorCorrectionLow      ErrorCorrection = "L"
	ErrorCorrectionMedium   ErrorCorrection = "M"
	ErrorCorrectionQuartile ErrorCorrection = "Q"
	ErrorCorrectionHigh     ErrorCorrection = "H"
)

// Valid reports whether the level is one of L, M, Q or H
func (e ErrorCorrection) Valid() bool {
	switch e {
	case ErrorCorrectionLow, ErrorCorrectionMedium, ErrorCorrectionQuartile, ErrorCorrectionHigh:
		return true
	}
	return false
}

// StyleConfig is the styling of a QR symbol as configured by the user
type StyleConfig struct {
	Data            string          `json:"data" yaml:"data"`
	Foreground      string          `json:"foreground" yaml:"foreground"`
	Background      string          `json:"background" yaml:"background"`
	ErrorCorrection ErrorCorrection `json:"error_correction,omitempty" yaml:"error_correction,omitempty"`
	Logo            string          `json:"logo,omitempty" yaml:"logo,omitempty"` // path to an optional logo image
}

// IsTransparent reports whether the background is the transparent sentinel
func (s StyleConfig) IsTransparent() bool {
	return strings.EqualFold(strings.TrimSpace(s.Background), TransparentBackground)
}

// Dimensions is the physical context the code will be scanned in
type Dimensions struct {
	DistanceFt   float64 `json:"distance_ft" yaml:"distance_ft"`
	PrintWidthIn float64 `json:"print_width_in" yaml:"print_width_in"`
}

// WarningID identifies a readiness warning
type WarningID string

const (
	WarningContrast      WarningID = "contrast"
	WarningInverted      WarningID = "inverted"
	WarningSize          WarningID = "size"
	WarningTransparentBG WarningID = "transparent-bg"
)

// Warning is a single readiness concern
type Warning struct {
	ID      WarningID `json:"id"`
	Message string    `json:"message"`
}

// Metrics is the derived snapshot for one evaluation
type Metrics struct {
	ResolvedBackground  string  `json:"resolved_background"`
	ContrastAvailable   bool    `json:"contrast_available"`
	ContrastPercent     float64 `json:"contrast_percent"`
	ContrastRatio       float64 `json:"contrast_ratio"`
	MeetsContrast       bool    `json:"meets_contrast"`
	IsInverted          bool    `json:"is_inverted"`
	RecommendedWidthIn  float64 `json:"recommended_width_in"`
	MaxDistanceFt       float64 `json:"max_distance_ft"`
	RecommendedExportPx int     `json:"recommended_export_px"`
	SizeOK              bool    `json:"size_ok"`
}

// Assessment is the full result of a readiness check
type Assessment struct {
	Metrics  Metrics   `json:"metrics"`
	Warnings []Warning `json:"warnings"`
	Ready    bool      `json:"ready"`
}

// Has reports whether a warning with the given id is present
func (a Assessment) Has(id WarningID) bool {
	for _, w := range a.Warnings {
		if w.ID == id {
			return true
		}
	}
	return false
}

// WarningIDs returns the ids of all warnings in order
func (a Assessment) WarningIDs() []string {
	ids := make([]string, 0, len(a.Warnings))
	for _, w := range a.Warnings {
		ids = append(ids, string(w.ID))
	}
	return ids
}
