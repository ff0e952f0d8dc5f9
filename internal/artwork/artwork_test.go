package artwork

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func stripes(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	palette := []color.RGBA{
		{R: 220, G: 40, B: 60, A: 255},
		{R: 40, G: 200, B: 90, A: 255},
		{R: 50, G: 80, B: 230, A: 255},
		{R: 240, G: 200, B: 40, A: 255},
		{R: 20, G: 20, B: 20, A: 255},
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, palette[(x*len(palette))/w])
		}
	}
	return img
}

func TestExtractPalette_Nil(t *testing.T) {
	p := ExtractPalette(nil)
	if p.Primary != DefaultPalette().Primary || p.Dim != DefaultPalette().Dim {
		t.Errorf("Expected default palette, got %+v", p)
	}
}

func TestExtractPalette_Colorful(t *testing.T) {
	p := ExtractPalette(stripes(100, 100))
	for name, c := range map[string]string{"primary": p.Primary, "secondary": p.Secondary, "accent": p.Accent, "dim": p.Dim} {
		if len(c) != 7 || c[0] != '#' {
			t.Errorf("Expected hex %s color, got %q", name, c)
		}
	}
	if len(p.Gradient) != 20 {
		t.Errorf("Expected 20 gradient steps, got %d", len(p.Gradient))
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	lines := RenderHalfBlockArt(stripes(40, 40), 8, 4)
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if l == "" {
			t.Errorf("Line %d is empty", i)
		}
	}
	if RenderHalfBlockArt(nil, 8, 4) != nil {
		t.Error("Expected nil for a nil image")
	}
	if RenderHalfBlockArt(stripes(4, 4), 2, 4) != nil {
		t.Error("Expected nil for a tiny target")
	}
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, stripes(10, 10)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("Expected a 10px wide image, got %d", img.Bounds().Dx())
	}

	if _, err := Fetch(context.Background(), ""); err == nil {
		t.Error("Expected an error for an empty url")
	}
}
