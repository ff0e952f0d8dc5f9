// Package colors holds the palette math used by the renderer and header.
package colors

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var white = colorful.Color{R: 1, G: 1, B: 1}

// parse is forgiving: anything unparseable is white, like the terminal
// default foreground most people run.
func parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return white
	}
	return c
}

func blend(a, b colorful.Color, t float64) string {
	switch {
	case t <= 0:
		return a.Hex()
	case t >= 1:
		return b.Hex()
	}
	return a.BlendLuvLCh(b, t).Clamped().Hex()
}

// Blend interpolates hex1 to hex2 in LCh along the short hue path.
func Blend(hex1 string, hex2 string, t float64) string {
	return blend(parse(hex1), parse(hex2), t)
}

// Gradient returns steps colors from start to end. Very different endpoints
// are eased with a double smoothstep so the middle doesn't go muddy.
func Gradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}
	start, end := parse(startHex), parse(endHex)

	smooth := start.DistanceLuv(end) > 0.6

	out := make([]string, steps)
	for i := range out {
		t := float64(i) / float64(steps-1)
		if smooth {
			t = smoothStep(smoothStep(t))
		}
		out[i] = blend(start, end, t)
	}
	return out
}

// Lightness is perceived lightness on a 0-100 scale.
func Lightness(hex string) float64 {
	l, _, _ := parse(hex).LuvLCh()
	return l * 100
}

func AdjustBrightness(hex string, factor float64) string {
	c := parse(hex)
	return colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor}.Clamped().Hex()
}

func Desaturate(hex string, amount float64) string {
	h, s, l := parse(hex).Hsl()
	s *= 1 - math.Min(1, math.Max(0, amount))
	return colorful.Hsl(h, s, l).Clamped().Hex()
}

func smoothStep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func hexToRGB(hex string) (int, int, int) {
	r, g, b := parse(hex).RGB255()
	return int(r), int(g), int(b)
}

func rgbToHex(r int, g int, b int) string {
	clamp := func(v int) uint8 { return uint8(min(255, max(0, v))) }
	return fmt.Sprintf("#%02X%02X%02X", clamp(r), clamp(g), clamp(b))
}

func RenderGradientText(text string, gradient []string, bold bool) string {
	if len(text) == 0 {
		return ""
	}
	if len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var result strings.Builder

	for i, r := range runes {
		colorIdx := 0
		if len(runes) > 1 {
			colorIdx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		colorIdx = min(colorIdx, len(gradient)-1)

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[colorIdx])).Bold(bold)
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
