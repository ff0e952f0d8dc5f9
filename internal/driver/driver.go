// Package driver runs the fixed rate render loop: sample the clock, advance
// the engine, plan the scroll and draw the visible rows.
package driver

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"karolbroda.com/karaline/internal/clock"
	"karolbroda.com/karaline/internal/engine"
	"karolbroda.com/karaline/internal/lyrics"
	"karolbroda.com/karaline/internal/render"
	"karolbroda.com/karaline/internal/viewport"
)

type Options struct {
	WindowPast   int
	WindowFuture int
	TickInterval time.Duration

	Engine engine.Options
	Scroll viewport.Options
	Font   render.Font

	// ViewportWidth is used when the renderer is not a render.Sizer.
	ViewportWidth float64

	// Markers are drawn for the idle phases. Missing entries draw nothing.
	Markers map[engine.Phase]string

	// OnError receives render failures. The loop keeps going either way.
	OnError func(error)
	// OnFrame receives every completed frame, paused ones included.
	OnFrame func(Frame)
}

func DefaultOptions() Options {
	return Options{
		WindowPast:    4,
		WindowFuture:  4,
		TickInterval:  30 * time.Millisecond,
		Engine:        engine.DefaultOptions(),
		Scroll:        viewport.DefaultOptions(),
		ViewportWidth: 640,
		Markers: map[engine.Phase]string{
			engine.PhasePreRoll:      "♪",
			engine.PhaseInstrumental: "♪",
			engine.PhaseOutro:        "·",
		},
	}
}

// Frame is the state of one tick.
type Frame struct {
	Tick     uint64
	Elapsed  float64
	Paused   bool
	Cursor   engine.Cursor
	Phase    engine.Phase
	Progress float64
	Plan     viewport.Plan
	Offset   float64
	// Line is the text of the active line, empty in pre-roll.
	Line         string
	Instructions []render.Instruction
}

type Driver struct {
	src  clock.Source
	r    render.Renderer
	opts Options

	engine  *engine.Engine
	planner *viewport.Planner
	widths  *render.WidthCache

	tick        uint64
	lastElapsed float64

	reload   chan *lyrics.Store
	stop     chan struct{}
	stopOnce sync.Once
}

func New(store *lyrics.Store, src clock.Source, r render.Renderer, opts Options) *Driver {
	def := DefaultOptions()
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.WindowPast < 0 {
		opts.WindowPast = def.WindowPast
	}
	if opts.WindowFuture < 0 {
		opts.WindowFuture = def.WindowFuture
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = def.ViewportWidth
	}

	d := &Driver{
		src:    src,
		r:      r,
		opts:   opts,
		widths: render.NewWidthCache(r, opts.Font),
		reload: make(chan *lyrics.Store, 1),
		stop:   make(chan struct{}),
	}
	d.engine = engine.New(store, opts.Engine)
	d.planner = viewport.New(d.rowCount(store), opts.Scroll)
	return d
}

func (d *Driver) rowCount(store *lyrics.Store) int {
	if d.opts.Scroll.Rows == viewport.RowsLines {
		return store.LineCount()
	}
	return store.Count()
}

// Reload swaps in a new store at the start of the next tick. Only the most
// recent pending store is kept.
func (d *Driver) Reload(store *lyrics.Store) {
	for {
		select {
		case d.reload <- store:
			return
		default:
			select {
			case <-d.reload:
			default:
			}
		}
	}
}

// Stop asks Run to return. It is safe to call more than once and from any
// goroutine.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

func (d *Driver) applyReload() {
	select {
	case store := <-d.reload:
		d.engine = engine.New(store, d.opts.Engine)
		d.planner.SetRowCount(d.rowCount(store))
		d.engine.Seek(d.lastElapsed)
		d.planner.Plan(d.engine.Cursor(), d.opts.WindowPast, d.opts.WindowFuture)
		d.planner.Snap()
	default:
	}
}

// Tick runs one iteration. Render failures abort the tick and come back as
// *render.SurfaceError; the engine and planner have already moved on.
func (d *Driver) Tick() (Frame, error) {
	d.tick++
	d.applyReload()

	frame := Frame{Tick: d.tick, Cursor: d.engine.Cursor()}
	if !d.src.IsPlaying() {
		frame.Paused = true
		frame.Elapsed = d.lastElapsed
		frame.Offset = d.planner.Offset()
		return frame, nil
	}

	width := d.opts.ViewportWidth
	if sizer, ok := d.r.(render.Sizer); ok {
		w, h := sizer.Size()
		width = w
		d.planner.SetViewportHeight(h)
	}

	elapsed := d.src.Elapsed()
	rewound := elapsed < d.lastElapsed
	var cursor engine.Cursor
	if rewound {
		cursor = d.engine.Seek(elapsed)
	} else {
		cursor = d.engine.Advance(elapsed)
	}
	d.lastElapsed = elapsed

	plan := d.planner.Plan(cursor, d.opts.WindowPast, d.opts.WindowFuture)
	if rewound {
		d.planner.Snap()
	}
	offset := d.planner.Step()

	frame.Elapsed = elapsed
	frame.Cursor = cursor
	frame.Phase = d.engine.Phase(elapsed)
	frame.Progress = d.engine.Progress(elapsed)
	frame.Plan = plan
	frame.Offset = offset
	if cursor.Active() {
		frame.Line = d.engine.Store().LineContaining(cursor.TokenIndex).Text()
	}

	d.widths.Reset()
	frame.Instructions = d.layout(frame, width)

	if err := d.draw(frame.Instructions); err != nil {
		return frame, err
	}
	return frame, nil
}

func classFor(row, active int) render.Class {
	switch {
	case active >= 0 && row < active:
		return render.ClassPast
	case row == active:
		return render.ClassActive
	case row == active+1:
		return render.ClassNext
	default:
		return render.ClassFuture
	}
}

func (d *Driver) rowText(row int) string {
	store := d.engine.Store()
	if d.opts.Scroll.Rows == viewport.RowsLines {
		return store.LineAt(row).Text()
	}
	return strings.TrimSpace(store.TokenAt(row).Text)
}

// lineHighlight is the lit fraction of the active line: every sung word
// plus the sweep through the current one.
func (d *Driver) lineHighlight(cursor engine.Cursor, progress, lineWidth float64) float64 {
	if lineWidth <= 0 {
		return 0
	}
	line := d.engine.Store().LineAt(cursor.LineIndex)
	space := d.widths.Width(" ")

	lit := 0.0
	for i := line.First; i < cursor.TokenIndex; i++ {
		lit += d.widths.Width(strings.TrimSpace(line.Tokens[i-line.First].Text)) + space
	}
	current := strings.TrimSpace(d.engine.Store().TokenAt(cursor.TokenIndex).Text)
	lit += progress * d.widths.Width(current)

	return min(1, lit/lineWidth)
}

func (d *Driver) layout(frame Frame, width float64) []render.Instruction {
	plan := frame.Plan
	rowHeight := d.planner.Options().RowHeight

	out := make([]render.Instruction, 0, plan.Visible.Len()+1)
	activeAt := -1
	for row := plan.Visible.Start; row < plan.Visible.End; row++ {
		text := d.rowText(row)
		w := d.widths.Width(text)
		ins := render.Instruction{
			Index: row,
			Text:  text,
			X:     (width - w) / 2,
			Y:     d.planner.RowY(row) + rowHeight/2,
			Width: w,
			Class: classFor(row, plan.ActiveRow),
		}
		if ins.Class == render.ClassActive {
			if d.opts.Scroll.Rows == viewport.RowsLines {
				ins.Highlight = d.lineHighlight(frame.Cursor, frame.Progress, w)
			} else {
				ins.Highlight = frame.Progress
			}
			activeAt = len(out)
		}
		out = append(out, ins)
	}

	marker, ok := d.opts.Markers[frame.Phase]
	if !ok || marker == "" || frame.Phase == engine.PhaseSinging {
		return out
	}

	mw := d.widths.Width(marker)
	idle := render.Instruction{Index: engine.NoToken, Text: marker, Width: mw, Class: render.ClassIdle}
	if activeAt < 0 {
		// pre-roll: the marker takes the empty centre slot
		idle.X = (width - mw) / 2
		idle.Y = d.planner.RowY(plan.ActiveRow) + rowHeight/2
	} else {
		active := out[activeAt]
		idle.X = active.X + active.Width + d.widths.Width(" ")
		idle.Y = active.Y
	}
	return append(out, idle)
}

func (d *Driver) draw(instructions []render.Instruction) error {
	if err := d.r.Clear(); err != nil {
		return render.Surface("clear", err)
	}
	tracker, _ := d.r.(render.RowTracker)
	for _, ins := range instructions {
		if tracker != nil {
			tracker.SetRow(ins.Index)
		}
		if ins.Highlight > 0 {
			if err := d.r.DrawHighlightBar(ins.X, ins.Y, ins.Width*ins.Highlight, ins.Class); err != nil {
				return render.Surface("highlight", err)
			}
		}
		if err := d.r.DrawText(ins.X, ins.Y, ins.Text, ins.Class); err != nil {
			return render.Surface("draw", err)
		}
	}
	if err := d.r.Present(); err != nil {
		return render.Surface("present", err)
	}
	return nil
}

// Run ticks until ctx is done, Stop is called or the source reports
// completion. The renderer is closed on the way out if it is an io.Closer.
func (d *Driver) Run(ctx context.Context) (err error) {
	defer func() {
		if c, ok := d.r.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	}()

	ticker := time.NewTicker(d.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		default:
		}
		if d.src.IsComplete() {
			return nil
		}

		frame, tickErr := d.Tick()
		if tickErr != nil && d.opts.OnError != nil {
			d.opts.OnError(tickErr)
		}
		if tickErr == nil && d.opts.OnFrame != nil {
			d.opts.OnFrame(frame)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		case <-ticker.C:
		}
	}
}
