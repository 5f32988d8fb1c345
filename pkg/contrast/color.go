package contrast

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColorFormat is returned when a color string is not a 3- or 6-digit hex code
var ErrInvalidColorFormat = errors.New("invalid color format")

// ColorFormatError carries the offending input alongside ErrInvalidColorFormat
type ColorFormatError struct {
	Input string
}

func (e *ColorFormatError) Error() string {
	return fmt.Sprintf("%v: %q is not a 3- or 6-digit hex code", ErrInvalidColorFormat, e.Input)
}

func (e *ColorFormatError) Unwrap() error {
	return ErrInvalidColorFormat
}

// RGB holds 8-bit sRGB channel values
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as an uppercase #RRGGBB string
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex parses #abc, abc, #aabbcc or aabbcc
func ParseHex(s string) (RGB, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(digits) {
	case 3:
		// Expand shorthand by doubling each digit: "f0a" -> "ff00aa"
		var b strings.Builder
		for _, r := range digits {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		digits = b.String()
	case 6:
	default:
		return RGB{}, &ColorFormatError{Input: s}
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return RGB{}, &ColorFormatError{Input: s}
	}

	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// Relative luminance weights (ITU-R BT.709)
const (
	weightR = 0.2126
	weightG = 0.7152
	weightB = 0.0722
)

// Luminance returns the relative luminance of c in [0,1]
func Luminance(c RGB) float64 {
	return weightR*linearize(c.R) + weightG*linearize(c.G) + weightB*linearize(c.B)
}

// linearize applies the piecewise sRGB-to-linear transfer to one channel
func linearize(channel uint8) float64 {
	c := float64(channel) / 255
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}
