// Package viewport maps the sync cursor to a scroll position and eases the
// scroll toward it.
package viewport

import (
	"fmt"
	"math"

	"karolbroda.com/karaline/internal/engine"
)

// Rows selects what one row of the viewport holds.
type Rows int

const (
	RowsTokens Rows = iota
	RowsLines
)

func (r Rows) String() string {
	if r == RowsLines {
		return "lines"
	}
	return "tokens"
}

// ParseRows accepts "tokens" or "lines".
func ParseRows(s string) (Rows, error) {
	switch s {
	case "", "tokens", "words":
		return RowsTokens, nil
	case "lines":
		return RowsLines, nil
	}
	return RowsTokens, fmt.Errorf("unknown row mode %q", s)
}

// Range is a half open row interval.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) Contains(i int) bool { return i >= r.Start && i < r.End }

type Plan struct {
	Visible Range
	// ActiveRow is engine.NoToken during pre-roll.
	ActiveRow    int
	TargetOffset float64
}

type Options struct {
	RowHeight       float64
	ViewportHeight  float64
	SmoothingFactor float64
	SnapThreshold   float64
	Rows            Rows
}

func DefaultOptions() Options {
	return Options{
		RowHeight:       32,
		ViewportHeight:  288,
		SmoothingFactor: 0.15,
		SnapThreshold:   2,
		Rows:            RowsTokens,
	}
}

// Planner owns the scroll state. Like the engine, it belongs to the render
// loop.
type Planner struct {
	opts     Options
	rowCount int
	current  float64
	target   float64
}

// New builds a planner over rowCount rows. Zero or out of range options
// fall back to the defaults.
func New(rowCount int, opts Options) *Planner {
	def := DefaultOptions()
	if opts.RowHeight <= 0 {
		opts.RowHeight = def.RowHeight
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = def.ViewportHeight
	}
	if opts.SmoothingFactor <= 0 || opts.SmoothingFactor >= 1 {
		opts.SmoothingFactor = def.SmoothingFactor
	}
	if opts.SnapThreshold <= 0 {
		opts.SnapThreshold = def.SnapThreshold
	}
	p := &Planner{opts: opts, rowCount: rowCount}
	// start centred on the row before the first so pre-roll is still
	p.target = p.offsetFor(-1)
	p.current = p.target
	return p
}

func (p *Planner) Options() Options { return p.opts }

// ActiveRow maps a cursor to a row index for the configured row mode.
func (p *Planner) ActiveRow(c engine.Cursor) int {
	if p.opts.Rows == RowsLines {
		return c.LineIndex
	}
	return c.TokenIndex
}

func (p *Planner) offsetFor(row int) float64 {
	return float64(row)*p.opts.RowHeight + p.opts.RowHeight/2 - p.opts.ViewportHeight/2
}

// Plan updates the scroll target for cursor and reports the visible rows.
// It leaves the current offset alone.
func (p *Planner) Plan(c engine.Cursor, windowPast, windowFuture int) Plan {
	row := p.ActiveRow(c)
	p.target = p.offsetFor(row)

	// in pre-roll the window hangs below the center, anchored on row -1
	start := max(0, row-windowPast)
	end := min(p.rowCount, row+windowFuture+1)
	if end < start {
		end = start
	}

	return Plan{
		Visible:      Range{Start: start, End: end},
		ActiveRow:    row,
		TargetOffset: p.target,
	}
}

// Step eases the current offset toward the target and returns it.
func (p *Planner) Step() float64 {
	diff := p.target - p.current
	if math.Abs(diff) < p.opts.SnapThreshold {
		p.current = p.target
		return p.current
	}
	p.current += diff * p.opts.SmoothingFactor
	return p.current
}

// Snap jumps straight to the target, used after a seek.
func (p *Planner) Snap() {
	p.current = p.target
}

func (p *Planner) Offset() float64 { return p.current }

func (p *Planner) Target() float64 { return p.target }

// RowY is the top edge of row in viewport coordinates.
func (p *Planner) RowY(row int) float64 {
	return float64(row)*p.opts.RowHeight - p.current
}

// SetViewportHeight follows a resize. The target is recomputed on the next
// Plan; the current offset shifts by the same amount so nothing jumps.
func (p *Planner) SetViewportHeight(h float64) {
	if h <= 0 || h == p.opts.ViewportHeight {
		return
	}
	delta := (p.opts.ViewportHeight - h) / 2
	p.opts.ViewportHeight = h
	p.current += delta
	p.target += delta
}

// SetRowCount follows a store reload.
func (p *Planner) SetRowCount(n int) {
	p.rowCount = n
}
