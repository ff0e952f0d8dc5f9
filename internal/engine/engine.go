// Package engine tracks which lyric token is active for a playback
// position, advancing incrementally as the clock moves forward.
package engine

import (
	"math"
	"sort"

	"karolbroda.com/karaline/internal/lyrics"
)

// NoToken is the cursor index before the first token is reached.
const NoToken = -1

// epsilon keeps the highlight sweep finite for tokens that share a
// timestamp with their successor.
const epsilon = 1e-3

type Cursor struct {
	TokenIndex int
	LineIndex  int
}

func (c Cursor) Active() bool { return c.TokenIndex != NoToken }

type Phase int

const (
	PhasePreRoll Phase = iota
	PhaseSinging
	PhaseInstrumental
	PhaseOutro
)

func (p Phase) String() string {
	switch p {
	case PhasePreRoll:
		return "pre-roll"
	case PhaseSinging:
		return "singing"
	case PhaseInstrumental:
		return "instrumental"
	case PhaseOutro:
		return "outro"
	}
	return "unknown"
}

type Options struct {
	// DefaultWordDuration is the sweep length of the final token and the
	// hold time before a gap counts as instrumental, in seconds.
	DefaultWordDuration float64
	// InstrumentalGap is the minimum distance between two tokens, in
	// seconds, for the space between them to be an instrumental break.
	InstrumentalGap float64
}

func DefaultOptions() Options {
	return Options{DefaultWordDuration: 0.5, InstrumentalGap: 3}
}

// Engine owns the sync cursor for one store. It is not safe for concurrent
// use; the render loop is its only caller.
type Engine struct {
	store  *lyrics.Store
	opts   Options
	cursor Cursor
}

func New(store *lyrics.Store, opts Options) *Engine {
	if opts.DefaultWordDuration <= 0 {
		opts.DefaultWordDuration = DefaultOptions().DefaultWordDuration
	}
	if opts.InstrumentalGap <= 0 {
		opts.InstrumentalGap = DefaultOptions().InstrumentalGap
	}
	return &Engine{
		store:  store,
		opts:   opts,
		cursor: Cursor{TokenIndex: NoToken, LineIndex: NoToken},
	}
}

func (e *Engine) Store() *lyrics.Store { return e.store }

func (e *Engine) Cursor() Cursor { return e.cursor }

// Advance moves the cursor forward to the last token whose timestamp has
// been reached. It never moves backwards; use Seek after a rewind.
func (e *Engine) Advance(elapsed float64) Cursor {
	i := e.cursor.TokenIndex
	for i+1 < e.store.Count() && e.store.TokenAt(i+1).Timestamp <= elapsed {
		i++
	}
	e.moveTo(i)
	return e.cursor
}

// Seek repositions the cursor from scratch, in either direction.
func (e *Engine) Seek(elapsed float64) Cursor {
	n := e.store.Count()
	// first token strictly after elapsed, minus one
	i := sort.Search(n, func(k int) bool {
		return e.store.TokenAt(k).Timestamp > elapsed
	}) - 1
	e.moveTo(i)
	return e.cursor
}

func (e *Engine) Reset() {
	e.cursor = Cursor{TokenIndex: NoToken, LineIndex: NoToken}
}

func (e *Engine) moveTo(i int) {
	if i == e.cursor.TokenIndex {
		return
	}
	e.cursor.TokenIndex = i
	if i == NoToken {
		e.cursor.LineIndex = NoToken
		return
	}
	e.cursor.LineIndex = e.store.LineIndexOf(i)
}

// span returns the sweep window of token i.
func (e *Engine) span(i int) (start, end float64) {
	start = e.store.TokenAt(i).Timestamp
	if i+1 < e.store.Count() {
		return start, e.store.TokenAt(i + 1).Timestamp
	}
	return start, start + e.opts.DefaultWordDuration
}

// ProgressOf is the highlight fraction of token i at elapsed, in [0, 1].
func (e *Engine) ProgressOf(i int, elapsed float64) float64 {
	if i < 0 || i >= e.store.Count() {
		return 0
	}
	start, end := e.span(i)
	p := (elapsed - start) / math.Max(end-start, epsilon)
	return math.Min(1, math.Max(0, p))
}

// Progress is the highlight fraction of the active token, 0 in pre-roll.
func (e *Engine) Progress(elapsed float64) float64 {
	return e.ProgressOf(e.cursor.TokenIndex, elapsed)
}

// Phase classifies the current cursor position. It does not move the
// cursor.
func (e *Engine) Phase(elapsed float64) Phase {
	i := e.cursor.TokenIndex
	if i == NoToken {
		return PhasePreRoll
	}
	held := elapsed - e.store.TokenAt(i).Timestamp
	if held < e.opts.DefaultWordDuration {
		return PhaseSinging
	}
	if i == e.store.Count()-1 {
		return PhaseOutro
	}
	if e.store.TokenAt(i+1).Timestamp-e.store.TokenAt(i).Timestamp >= e.opts.InstrumentalGap {
		return PhaseInstrumental
	}
	return PhaseSinging
}
