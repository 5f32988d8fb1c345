package contrast

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RGB
		wantErr bool
	}{
		{name: "six digits with hash", input: "#1A2B3C", want: RGB{0x1A, 0x2B, 0x3C}},
		{name: "six digits without hash", input: "ffffff", want: RGB{255, 255, 255}},
		{name: "three digit shorthand", input: "#f0a", want: RGB{0xFF, 0x00, 0xAA}},
		{name: "surrounding whitespace", input: "  #000000 ", want: RGB{}},
		{name: "empty", input: "", wantErr: true},
		{name: "four digits", input: "#abcd", wantErr: true},
		{name: "non hex", input: "#gggggg", wantErr: true},
		{name: "sentinel is not a color", input: "transparent", wantErr: true},
		{name: "signed value", input: "+12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseHex(%q) expected error, got %v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidColorFormat) {
					t.Errorf("error %v does not wrap ErrInvalidColorFormat", err)
				}
				var formatErr *ColorFormatError
				if !errors.As(err, &formatErr) || formatErr.Input != tt.input {
					t.Errorf("error %v is not a ColorFormatError for %q", err, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHex(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRGB_Hex(t *testing.T) {
	if got := (RGB{0x1a, 0x1a, 0x2e}).Hex(); got != "#1A1A2E" {
		t.Errorf("Hex() = %s, want #1A1A2E", got)
	}
}

func TestLuminance(t *testing.T) {
	tests := []struct {
		name  string
		color RGB
		want  float64
	}{
		{name: "black", color: RGB{0, 0, 0}, want: 0},
		{name: "white", color: RGB{255, 255, 255}, want: 1},
		{name: "pure red", color: RGB{255, 0, 0}, want: 0.2126},
		{name: "pure green", color: RGB{0, 255, 0}, want: 0.7152},
		{name: "pure blue", color: RGB{0, 0, 255}, want: 0.0722},
		// 0x0A/255 = 0.0392 falls on the linear segment
		{name: "linear segment", color: RGB{10, 10, 10}, want: (10.0 / 255) / 12.92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Luminance(tt.color)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("Luminance(%+v) = %v, want %v", tt.color, got, tt.want)
			}
		})
	}
}

func TestEvaluate_BlackOnWhite(t *testing.T) {
	result, err := Evaluate("#000000", "#FFFFFF")
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if math.Abs(result.ContrastRatio-21.0) > tolerance {
		t.Errorf("ContrastRatio = %v, want 21.0", result.ContrastRatio)
	}
	if math.Abs(result.RelativeDiffPercent-100) > tolerance {
		t.Errorf("RelativeDiffPercent = %v, want 100", result.RelativeDiffPercent)
	}
	if result.IsInverted {
		t.Error("dark on light should not be inverted")
	}
}

func TestEvaluate_WhiteOnBlack(t *testing.T) {
	result, err := Evaluate("#FFFFFF", "#000000")
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if math.Abs(result.ContrastRatio-21.0) > tolerance {
		t.Errorf("ContrastRatio = %v, want 21.0", result.ContrastRatio)
	}
	if !result.IsInverted {
		t.Error("light on dark should be inverted")
	}
}

func TestEvaluate_InvalidColor(t *testing.T) {
	if _, err := Evaluate("#12", "#FFFFFF"); !errors.Is(err, ErrInvalidColorFormat) {
		t.Errorf("invalid foreground: err = %v, want ErrInvalidColorFormat", err)
	}
	if _, err := Evaluate("#000000", "nope"); !errors.Is(err, ErrInvalidColorFormat) {
		t.Errorf("invalid background: err = %v, want ErrInvalidColorFormat", err)
	}
}

var samplePalette = []string{
	"#000000", "#FFFFFF", "#1A1A2E", "#FF0000", "#00FF00", "#0000FF",
	"#777777", "#FFD700", "#0A0A0A", "#123456", "#FEDCBA", "#808080",
}

func TestEvaluate_Properties(t *testing.T) {
	for _, a := range samplePalette {
		for _, b := range samplePalette {
			ab, err := Evaluate(a, b)
			if err != nil {
				t.Fatalf("Evaluate(%s, %s) failed: %v", a, b, err)
			}
			ba, err := Evaluate(b, a)
			if err != nil {
				t.Fatalf("Evaluate(%s, %s) failed: %v", b, a, err)
			}

			if math.Abs(ab.ContrastRatio-ba.ContrastRatio) > tolerance {
				t.Errorf("ratio not symmetric for %s/%s: %v vs %v", a, b, ab.ContrastRatio, ba.ContrastRatio)
			}
			if ab.ContrastRatio < 1 || ab.ContrastRatio > 21+tolerance {
				t.Errorf("ratio out of range for %s/%s: %v", a, b, ab.ContrastRatio)
			}
			if ab.IsInverted != (ab.FgLuminance > ab.BgLuminance) {
				t.Errorf("IsInverted mismatch for %s/%s", a, b)
			}
		}

		same, _ := Evaluate(a, a)
		if same.ContrastRatio != 1.0 {
			t.Errorf("Evaluate(%s, %s).ContrastRatio = %v, want 1.0", a, a, same.ContrastRatio)
		}
		if same.RelativeDiffPercent != 0 {
			t.Errorf("Evaluate(%s, %s).RelativeDiffPercent = %v, want 0", a, a, same.RelativeDiffPercent)
		}
	}
}

func TestRelativeDiff_BothZero(t *testing.T) {
	if got := RelativeDiff(0, 0); got != 0 || math.IsNaN(got) {
		t.Errorf("RelativeDiff(0, 0) = %v, want 0", got)
	}
}
