package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/nfnt/resize"
	"golang.org/x/term"
)

type Capabilities struct {
	// Interactive is false when stdout is piped; the CLI falls back to the
	// plain line printer then.
	Interactive           bool
	Profile               termenv.Profile
	SupportsKittyGraphics bool
	TermProgram           string
}

func (c *Capabilities) SupportsRGB() bool {
	return c.Profile == termenv.TrueColor
}

// DetectCapabilities inspects stdout and the environment. getenv is
// os.Getenv outside tests.
func DetectCapabilities(out *os.File, getenv func(string) string) *Capabilities {
	caps := &Capabilities{
		Interactive: term.IsTerminal(int(out.Fd())),
		TermProgram: getenv("TERM_PROGRAM"),
	}
	caps.Profile = termenv.NewOutput(out).EnvColorProfile()

	// kitty graphics stay opt in, too many terminals claim support and garble it
	switch strings.ToLower(getenv("KARALINE_KITTY_GRAPHICS")) {
	case "1", "true", "yes", "on":
		caps.SupportsKittyGraphics = caps.Interactive
		if caps.TermProgram == "" {
			caps.TermProgram = "kitty"
		}
	}

	return caps
}

// Size reports the terminal size of out, or 80x24 when it isn't one.
func Size(out *os.File) (width, height int) {
	w, h, err := term.GetSize(int(out.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 80, 24
	}
	return w, h
}

// Reset restores cursor, colors, screen and mouse modes after a crash left
// the terminal in alt screen.
func Reset(w io.Writer) {
	for _, seq := range []string{
		"\033[?25h",
		"\033[0m",
		"\033[?1049l",
		"\033[?1000l",
		"\033[?1002l",
		"\033[?1003l",
		"\033[?1006l",
	} {
		io.WriteString(w, seq)
	}
	if f, ok := w.(*os.File); ok {
		_ = f.Sync()
	}
}

// EncodeImageForKitty returns the escape sequence that places img over a
// cols x rows cell area.
func EncodeImageForKitty(img image.Image, cols int, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return ""
	}

	newWidth := uint(cols * 10)
	newHeight := uint(rows * 20)

	aspectRatio := float64(width) / float64(height)
	if aspectRatio > float64(newWidth)/float64(newHeight) {
		newHeight = uint(float64(newWidth) / aspectRatio)
	} else {
		newWidth = uint(float64(newHeight) * aspectRatio)
	}
	newWidth = max(newWidth, 10)
	newHeight = max(newHeight, 10)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resize.Resize(newWidth, newHeight, img, resize.Lanczos3)); err != nil {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	var result strings.Builder
	const chunkSize = 4096
	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		more := 1
		if end >= len(encoded) {
			more = 0
		}

		if i == 0 {
			fmt.Fprintf(&result, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, encoded[i:end])
		} else {
			fmt.Fprintf(&result, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
		}
	}

	return result.String()
}
