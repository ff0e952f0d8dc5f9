package clock

import (
	"math"
	"sync/atomic"
)

// Offset shifts another source's position by a user adjustable amount.
// Positive offsets make lyrics show earlier.
type Offset struct {
	Source
	bits atomic.Uint64
}

func WithOffset(src Source, seconds float64) *Offset {
	o := &Offset{Source: src}
	o.Set(seconds)
	return o
}

func (o *Offset) Set(seconds float64) {
	o.bits.Store(math.Float64bits(seconds))
}

// Adjust adds delta to the offset and returns the new value, rounded to
// milliseconds so repeated nudges don't pile up float noise.
func (o *Offset) Adjust(delta float64) float64 {
	for {
		old := o.bits.Load()
		next := math.Round((math.Float64frombits(old)+delta)*1000) / 1000
		if o.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

func (o *Offset) Seconds() float64 {
	return math.Float64frombits(o.bits.Load())
}

func (o *Offset) Elapsed() float64 {
	return math.Max(0, o.Source.Elapsed()+o.Seconds())
}
