package colors

import (
	"strings"
	"testing"
)

func TestBlend_Endpoints(t *testing.T) {
	a, b := "#8ba4e8", "#e8a4c8"
	if got := Blend(a, b, 0); got != a {
		t.Errorf("Expected %s at t=0, got %s", a, got)
	}
	if got := Blend(a, b, 1); got != b {
		t.Errorf("Expected %s at t=1, got %s", b, got)
	}
	if got := Blend(a, b, 5); got != b {
		t.Errorf("Expected t to clamp, got %s", got)
	}
}

func TestGradient(t *testing.T) {
	g := Gradient("#000000", "#ffffff", 5)
	if len(g) != 5 {
		t.Fatalf("Expected 5 steps, got %d", len(g))
	}
	if g[0] != "#000000" || g[4] != "#ffffff" {
		t.Errorf("Unexpected endpoints %v", g)
	}
	for i := 1; i < len(g); i++ {
		if Lightness(g[i]) < Lightness(g[i-1]) {
			t.Errorf("Lightness dropped between step %d and %d: %v", i-1, i, g)
		}
	}
	if n := len(Gradient("#000000", "#ffffff", 0)); n != 2 {
		t.Errorf("Expected at least 2 steps, got %d", n)
	}
}

func TestAdjustBrightness(t *testing.T) {
	if got := AdjustBrightness("#804020", 0.5); got != "#402010" {
		t.Errorf("Expected #402010, got %s", got)
	}
	if got := AdjustBrightness("#ffffff", 2); got != "#ffffff" {
		t.Errorf("Expected clamped white, got %s", got)
	}
}

func TestDesaturate(t *testing.T) {
	r, g, b := hexToRGB(Desaturate("#ff0000", 1))
	if r != g || g != b {
		t.Errorf("Expected gray, got %d %d %d", r, g, b)
	}
}

func TestHexRoundTrip(t *testing.T) {
	r, g, b := hexToRGB("#12AB7F")
	if got := rgbToHex(r, g, b); got != "#12AB7F" {
		t.Errorf("Expected #12AB7F, got %s", got)
	}
	if r, g, b := hexToRGB("nonsense"); r != 255 || g != 255 || b != 255 {
		t.Errorf("Expected white for invalid input, got %d %d %d", r, g, b)
	}
	if got := rgbToHex(300, -4, 16); got != "#FF0010" {
		t.Errorf("Expected clamped #FF0010, got %s", got)
	}
}

func TestFormatTime(t *testing.T) {
	tests := map[float64]string{
		0:     "0:00",
		59.9:  "0:59",
		61:    "1:01",
		3600:  "60:00",
		-10:   "0:00",
		125.5: "2:05",
	}
	for in, want := range tests {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderGradientText(t *testing.T) {
	if RenderGradientText("", []string{"#ffffff"}, false) != "" {
		t.Error("Expected empty output for empty text")
	}
	if got := RenderGradientText("abc", nil, false); got != "abc" {
		t.Errorf("Expected plain text without a gradient, got %q", got)
	}
	if got := RenderGradientText("abc", []string{"#ff0000", "#0000ff"}, true); !strings.Contains(got, "c") {
		t.Errorf("Expected rendered text to contain its runes, got %q", got)
	}
}
