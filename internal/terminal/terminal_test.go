package terminal

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectCapabilities_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	env := map[string]string{"KARALINE_KITTY_GRAPHICS": "yes", "TERM_PROGRAM": "ghostty"}
	caps := DetectCapabilities(f, func(k string) string { return env[k] })

	if caps.Interactive {
		t.Error("Expected a regular file not to be interactive")
	}
	if caps.SupportsKittyGraphics {
		t.Error("Expected kitty graphics off without a terminal")
	}
	if caps.TermProgram != "ghostty" {
		t.Errorf("Expected ghostty, got %q", caps.TermProgram)
	}

	if w, h := Size(f); w != 80 || h != 24 {
		t.Errorf("Expected fallback 80x24, got %dx%d", w, h)
	}
}

func TestReset(t *testing.T) {
	var buf bytes.Buffer
	Reset(&buf)
	if !strings.Contains(buf.String(), "\033[?25h") || !strings.Contains(buf.String(), "\033[?1049l") {
		t.Errorf("Expected cursor and alt screen resets, got %q", buf.String())
	}
}

func TestEncodeImageForKitty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.RGBA{A: 255})

	out := EncodeImageForKitty(img, 4, 2)
	if !strings.HasPrefix(out, "\x1b_Ga=T,f=100,c=4,r=2,") {
		t.Errorf("Unexpected kitty header %q", out[:min(len(out), 32)])
	}
	if EncodeImageForKitty(nil, 4, 2) != "" {
		t.Error("Expected no output for a nil image")
	}
}
