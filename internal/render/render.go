// Package render defines the drawing surface the tick driver talks to and
// ships two implementations: a styled cell grid for the TUI and a plain line
// printer for pipes.
package render

import (
	"errors"
	"fmt"
)

// Class is the color class of a drawn row.
type Class int

const (
	ClassPast Class = iota
	ClassActive
	ClassNext
	ClassFuture
	// ClassIdle is the pre-roll, instrumental and outro marker.
	ClassIdle
)

func (c Class) String() string {
	switch c {
	case ClassPast:
		return "past"
	case ClassActive:
		return "active"
	case ClassNext:
		return "next"
	case ClassFuture:
		return "future"
	case ClassIdle:
		return "idle"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Font selects the glyph set. The zero value is the terminal's own font.
type Font struct {
	// Block draws 5x5 pixel glyphs out of half blocks, three cells tall.
	Block bool
}

// Renderer is the capability the driver needs from a drawing surface. All
// coordinates are in surface units; y is the vertical center of the row.
type Renderer interface {
	MeasureWidth(text string, font Font) float64
	DrawText(x, y float64, text string, class Class) error
	DrawHighlightBar(x, y, width float64, class Class) error
	Clear() error
	Present() error
}

// Sizer is implemented by renderers that know their own extent.
type Sizer interface {
	Size() (width, height float64)
}

// RowTracker is implemented by renderers that care which row a draw call
// belongs to. The driver calls SetRow before drawing each instruction.
type RowTracker interface {
	SetRow(index int)
}

// ErrClosed is returned by every call on a closed surface.
var ErrClosed = errors.New("render surface closed")

// SurfaceError wraps a renderer failure with the call that failed. The
// driver aborts the tick and carries on with the next one.
type SurfaceError struct {
	Op  string
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// Surface wraps err for op, passing nil through.
func Surface(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SurfaceError
	if errors.As(err, &se) {
		return err
	}
	return &SurfaceError{Op: op, Err: err}
}

// Instruction is one drawn row of a frame.
type Instruction struct {
	// Index is the token or line index, -1 for the idle marker.
	Index int
	Text  string
	X, Y  float64
	Width float64
	Class Class
	// Highlight is the sweep fraction, only set on the active row.
	Highlight float64
}

// WidthCache measures each distinct text at most once per tick.
type WidthCache struct {
	r      Renderer
	font   Font
	widths map[string]float64
}

func NewWidthCache(r Renderer, font Font) *WidthCache {
	return &WidthCache{r: r, font: font, widths: make(map[string]float64)}
}

// Reset drops every measurement, call it at the start of a tick.
func (c *WidthCache) Reset() {
	clear(c.widths)
}

func (c *WidthCache) Width(text string) float64 {
	if w, ok := c.widths[text]; ok {
		return w
	}
	w := c.r.MeasureWidth(text, c.font)
	c.widths[text] = w
	return w
}
