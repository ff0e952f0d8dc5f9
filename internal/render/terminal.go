package render

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"karolbroda.com/karaline/internal/artwork"
	"karolbroda.com/karaline/internal/colors"
)

// One terminal cell is CellWidth x CellHeight surface units, so layout math
// keeps sub-cell precision while scrolling.
const (
	CellWidth  = 8
	CellHeight = 16
)

// Styles maps classes to lipgloss styles. Lit replaces the class style for
// cells under the highlight bar.
type Styles struct {
	Class map[Class]lipgloss.Style
	Lit   lipgloss.Style
}

func (s Styles) forCell(c cell) lipgloss.Style {
	if c.lit {
		return s.Lit
	}
	if style, ok := s.Class[c.class]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// PaletteStyles derives class styles from an album art palette.
func PaletteStyles(p *artwork.Palette) Styles {
	if p == nil {
		p = artwork.DefaultPalette()
	}
	return Styles{
		Class: map[Class]lipgloss.Style{
			ClassPast:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Dim)),
			ClassActive: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Primary)).Bold(true),
			ClassNext:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Secondary)),
			ClassFuture: lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Desaturate(colors.AdjustBrightness(p.Secondary, 0.7), 0.6))),
			ClassIdle:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Italic(true),
		},
		Lit: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#101014")).
			Background(lipgloss.Color(p.Accent)),
	}
}

type cell struct {
	r     rune
	class Class
	lit   bool
	// cont marks the second column of a double width rune
	cont bool
}

// Terminal rasterizes draw calls into a cell grid and renders it with
// lipgloss on Present. It is safe to resize from another goroutine.
type Terminal struct {
	mu     sync.Mutex
	cols   int
	rows   int
	grid   [][]cell
	font   Font
	styles Styles
	sink   func(string)
	last   string
	closed bool
}

// NewTerminal builds a cols x rows surface. sink, when set, receives every
// presented frame.
func NewTerminal(cols, rows int, font Font, styles Styles, sink func(string)) *Terminal {
	t := &Terminal{font: font, styles: styles, sink: sink}
	t.resizeLocked(cols, rows)
	return t
}

func (t *Terminal) resizeLocked(cols, rows int) {
	t.cols = max(cols, 1)
	t.rows = max(rows, 1)
	t.grid = make([][]cell, t.rows)
	for i := range t.grid {
		t.grid[i] = make([]cell, t.cols)
	}
	t.clearLocked()
}

func (t *Terminal) Resize(cols, rows int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cols == t.cols && rows == t.rows {
		return
	}
	t.resizeLocked(cols, rows)
}

func (t *Terminal) SetStyles(styles Styles) {
	t.mu.Lock()
	t.styles = styles
	t.mu.Unlock()
}

func (t *Terminal) Size() (float64, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.cols * CellWidth), float64(t.rows * CellHeight)
}

func (t *Terminal) MeasureWidth(text string, font Font) float64 {
	if font.Block {
		return float64(blockCells(text) * CellWidth)
	}
	return float64(runewidth.StringWidth(text) * CellWidth)
}

func (t *Terminal) textRows() int {
	if t.font.Block {
		return blockRows
	}
	return 1
}

// topRow is the first cell row of text whose vertical center is y.
func (t *Terminal) topRow(y float64) int {
	return int(math.Floor(y/CellHeight)) - t.textRows()/2
}

func toCol(x float64) int {
	return int(math.Round(x / CellWidth))
}

func (t *Terminal) DrawText(x, y float64, text string, class Class) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	top := t.topRow(y)
	col := toCol(x)

	if t.font.Block {
		for i, line := range blockRasterize(text) {
			t.putRunes(top+i, col, line, class)
		}
		return nil
	}
	t.putRunes(top, col, []rune(text), class)
	return nil
}

// putRunes writes runes from col, clipping at the edges and keeping the
// lit flag a highlight bar left behind.
func (t *Terminal) putRunes(row, col int, runes []rune, class Class) {
	if row < 0 || row >= t.rows {
		return
	}
	line := t.grid[row]
	for _, r := range runes {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= t.cols {
			if line[col].cont && col > 0 {
				line[col-1].r = ' '
			}
			line[col].r = r
			line[col].class = class
			line[col].cont = false
			if w == 2 {
				line[col+1] = cell{class: class, lit: line[col+1].lit, cont: true}
			}
			// wide runes cut in half by this write leave an orphaned half
			if next := col + w; next < t.cols && line[next].cont {
				line[next].r = ' '
				line[next].cont = false
			}
		}
		col += w
	}
}

func (t *Terminal) DrawHighlightBar(x, y, width float64, class Class) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if width <= 0 {
		return nil
	}

	top := t.topRow(y)
	from := max(toCol(x), 0)
	to := min(toCol(x+width), t.cols)
	for row := top; row < top+t.textRows(); row++ {
		if row < 0 || row >= t.rows {
			continue
		}
		for col := from; col < to; col++ {
			t.grid[row][col].lit = true
			t.grid[row][col].class = class
		}
	}
	return nil
}

func (t *Terminal) clearLocked() {
	for _, line := range t.grid {
		for i := range line {
			line[i] = cell{r: ' ', class: ClassFuture}
		}
	}
}

func (t *Terminal) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.clearLocked()
	return nil
}

// Present renders the grid, runs of equal style share one escape sequence.
func (t *Terminal) Present() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}

	lines := make([]string, t.rows)
	for row, line := range t.grid {
		var b strings.Builder
		var run strings.Builder
		var runCell cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runCell.r == ' ' && !runCell.lit {
				b.WriteString(run.String())
			} else {
				b.WriteString(t.styles.forCell(runCell).Render(run.String()))
			}
			run.Reset()
		}
		for i, c := range line {
			if c.cont {
				continue
			}
			blank := c.r == ' ' && !c.lit
			prevBlank := runCell.r == ' ' && !runCell.lit
			if i > 0 && (blank != prevBlank || (!blank && (c.class != runCell.class || c.lit != runCell.lit))) {
				flush()
			}
			if run.Len() == 0 {
				runCell = c
			}
			run.WriteRune(c.r)
		}
		flush()
		lines[row] = b.String()
	}

	frame := strings.Join(lines, "\n")
	t.last = frame
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(frame)
	}
	return nil
}

// Last is the most recently presented frame.
func (t *Terminal) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Text returns the grid's runes without styling, for tests and copy.
func (t *Terminal) Text() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, t.rows)
	for row, line := range t.grid {
		var b strings.Builder
		for _, c := range line {
			if !c.cont {
				b.WriteRune(c.r)
			}
		}
		out[row] = b.String()
	}
	return out
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}
