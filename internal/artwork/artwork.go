package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"

	"karolbroda.com/karaline/internal/colors"
)

// Palette colors the lyric classes. Primary is the active word, Accent the
// highlight sweep, Secondary the next word, Dim everything already sung.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       "#6272A4",
		Gradient:  colors.Gradient("#8BA4E8", "#E8A4C8", 20),
	}
}

// Fetch loads artwork from an http(s) or file:// url.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	if strings.HasPrefix(artworkURL, "file://") {
		path := strings.TrimPrefix(artworkURL, "file://")
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type candidate struct {
	color      colorful.Color
	sat        float64
	brightness float64
	score      float64
}

// ExtractPalette picks three lively colors from img with k-means. Images
// without enough color fall back to the default palette.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	cands := make([]candidate, len(items))
	for i, item := range items {
		c := colorful.Color{
			R: float64(item.Color.R) / 255,
			G: float64(item.Color.G) / 255,
			B: float64(item.Color.B) / 255,
		}
		_, sat, val := c.Hsv()
		cands[i] = candidate{
			color:      c,
			sat:        sat,
			brightness: val,
			// saturated colors a bit above mid brightness read best on dark terminals
			score: sat * (1 - abs(val-0.6)),
		}
	}

	var picked []candidate
	pick := func(minSat, minBright float64, best bool) {
		idx := -1
		for i, c := range cands {
			if c.sat <= minSat || c.brightness <= minBright || slices.ContainsFunc(picked, func(p candidate) bool { return p.color == c.color }) {
				continue
			}
			if idx < 0 || (best && c.score > cands[idx].score) {
				idx = i
			}
			if !best {
				break
			}
		}
		if idx >= 0 {
			picked = append(picked, cands[idx])
		}
	}
	pick(0.2, 0.3, true)
	pick(0.15, 0.3, false)
	pick(0.1, 0.25, false)

	if len(picked) < 3 {
		return DefaultPalette()
	}

	slices.SortFunc(picked, func(a, b candidate) int {
		switch {
		case a.brightness > b.brightness:
			return -1
		case a.brightness < b.brightness:
			return 1
		}
		return 0
	})

	primary := boost(picked[0])
	accent := boost(picked[1])
	secondary := boost(picked[2])

	return &Palette{
		Primary:   primary,
		Secondary: secondary,
		Accent:    accent,
		Dim:       colors.Desaturate(colors.AdjustBrightness(secondary, 0.6), 0.5),
		Gradient:  colors.Gradient(primary, accent, 20),
	}
}

// boost lifts dark colors and tames near-white ones.
func boost(c candidate) string {
	col := c.color
	if c.brightness > 0 && c.brightness < 0.4 {
		factor := min(0.4/c.brightness, 2.5)
		col = colorful.Color{R: col.R * factor, G: col.G * factor, B: col.B * factor}.Clamped()
	}
	if c.brightness > 0.85 {
		avg := (col.R + col.G + col.B) / 3
		col = colorful.Color{
			R: avg + (col.R-avg)*0.7,
			G: avg + (col.G-avg)*0.7,
			B: avg + (col.B-avg)*0.7,
		}
	}
	return col.Hex()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// RenderHalfBlockArt draws img as targetWidth x targetHeight cells, two
// pixels per cell using the upper half block.
func RenderHalfBlockArt(img image.Image, targetWidth int, targetHeight int) []string {
	if img == nil || targetWidth < 4 || targetHeight < 2 {
		return nil
	}

	resized := resize.Resize(uint(targetWidth), uint(targetHeight*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, targetHeight)
	for y := 0; y < targetHeight; y++ {
		var line strings.Builder
		topY := y * 2
		bottomY := topY + 1

		for x := 0; x < bounds.Dx(); x++ {
			top, topOK := colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+topY))
			bottom, bottomOK := top, topOK
			if bottomY < bounds.Dy() {
				bottom, bottomOK = colorful.MakeColor(resized.At(bounds.Min.X+x, bounds.Min.Y+bottomY))
			}

			// MakeColor reports false for fully transparent pixels
			if !topOK && !bottomOK {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex()))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}
