package render

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
)

// Plain prints the active row once each time it changes, one per line.
// It ignores positions and styling, so output can be piped or grepped.
// Rows are told apart by index when the caller reports it through SetRow,
// so a line sung twice in a row prints twice.
type Plain struct {
	w          io.Writer
	row        int
	pending    string
	pendingRow int
	printed    string
	printedRow int
}

func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w, row: -1, pendingRow: -1, printedRow: -1}
}

func (p *Plain) SetRow(index int) { p.row = index }

func (p *Plain) MeasureWidth(text string, _ Font) float64 {
	return float64(runewidth.StringWidth(text) * CellWidth)
}

func (p *Plain) DrawText(_, _ float64, text string, class Class) error {
	if class == ClassActive {
		p.pending = text
		p.pendingRow = p.row
	}
	return nil
}

func (p *Plain) DrawHighlightBar(_, _, _ float64, _ Class) error { return nil }

func (p *Plain) Clear() error {
	p.pending = ""
	p.pendingRow = -1
	return nil
}

func (p *Plain) Present() error {
	if p.pending == "" || (p.pending == p.printed && p.pendingRow == p.printedRow) {
		return nil
	}
	if _, err := fmt.Fprintln(p.w, p.pending); err != nil {
		return err
	}
	p.printed = p.pending
	p.printedRow = p.pendingRow
	return nil
}
