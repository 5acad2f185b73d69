package model

import (
	"errors"
	"testing"
)

func TestParseIcon(t *testing.T) {
	tests := []struct {
		in   string
		want Icon
	}{
		{"calendar", IconCalendar},
		{" Globe ", IconGlobe},
		{"ARCHITECTURE", IconArchitecture},
		{"volcano", DefaultIcon},
		{"", DefaultIcon},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseIcon(tt.in); got != tt.want {
				t.Errorf("ParseIcon(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIconAsset_UnknownFallsBack(t *testing.T) {
	if got := Icon("dragon").Asset(); got != "icon-sparkles.svg" {
		t.Errorf("Asset() = %q", got)
	}
	if got := IconGeology.Asset(); got != "icon-geology.svg" {
		t.Errorf("Asset() = %q", got)
	}
}

func TestParseLocationType(t *testing.T) {
	if lt, ok := ParseLocationType("Area"); !ok || lt != LocationArea {
		t.Errorf("got %q %v", lt, ok)
	}
	if _, ok := ParseLocationType("region"); ok {
		t.Error("expected region to be rejected")
	}
}

func TestParseSlideType(t *testing.T) {
	if st, ok := ParseSlideType("then_vs_now"); !ok || st != SlideThenVsNow {
		t.Errorf("got %q %v", st, ok)
	}
	if _, ok := ParseSlideType("epilogue"); ok {
		t.Error("expected epilogue to be rejected")
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct{ in, want int }{
		{3, MinZoom},
		{17, 17},
		{30, MaxZoom},
	}
	for _, tt := range tests {
		if got := ClampZoom(tt.in); got != tt.want {
			t.Errorf("ClampZoom(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	if !ValidCoordinates(27.1751, 78.0421) {
		t.Error("Taj Mahal should be valid")
	}
	if ValidCoordinates(91, 0) || ValidCoordinates(0, -181) {
		t.Error("out of range coordinates accepted")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	gen := &GenerationError{Op: "discover", Err: ErrMissingField}
	if !errors.Is(gen, ErrMissingField) {
		t.Error("GenerationError should unwrap to cause")
	}
	rend := &RenderError{Prompt: "p", Err: ErrNoImage}
	if !errors.Is(rend, ErrNoImage) {
		t.Error("RenderError should unwrap to cause")
	}
	var cfgErr *ConfigurationError
	if !errors.As(error(&ConfigurationError{Setting: "llm.key"}), &cfgErr) {
		t.Error("errors.As failed")
	}
	if cfgErr.Error() != "configuration error: llm.key is required" {
		t.Errorf("unexpected message %q", cfgErr.Error())
	}
}
