package engine

import (
	"math/rand"
	"sort"
	"testing"

	"karolbroda.com/karaline/internal/lyrics"
)

func mustStore(t *testing.T, pairs ...any) *lyrics.Store {
	t.Helper()
	var raw []lyrics.RawToken
	for i := 0; i+1 < len(pairs); i += 2 {
		raw = append(raw, lyrics.RawToken{Timestamp: pairs[i].(float64), Text: pairs[i+1].(string)})
	}
	s, err := lyrics.Build(raw)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return s
}

func scenario(t *testing.T) *lyrics.Store {
	return mustStore(t, 0.0, "Lately", 0.5, "I", 1.0, "been", 2.5, "thinking.")
}

func TestAdvance_Scenario(t *testing.T) {
	e := New(scenario(t), DefaultOptions())

	c := e.Advance(0.7)
	if c.TokenIndex != 1 || c.LineIndex != 0 {
		t.Errorf("Expected cursor {1 0}, got %+v", c)
	}

	c = e.Advance(5.0)
	if c.TokenIndex != 3 {
		t.Errorf("Expected pinned index 3, got %d", c.TokenIndex)
	}
	if e.Phase(5.0) != PhaseOutro {
		t.Errorf("Expected outro, got %v", e.Phase(5.0))
	}
}

func TestAdvance_PreRoll(t *testing.T) {
	e := New(mustStore(t, 2.0, "late", 3.0, "start"), DefaultOptions())

	c := e.Advance(1.0)
	if c.Active() || c.TokenIndex != NoToken || c.LineIndex != NoToken {
		t.Errorf("Expected pre-roll cursor, got %+v", c)
	}
	if e.Progress(1.0) != 0 {
		t.Errorf("Expected no progress in pre-roll, got %v", e.Progress(1.0))
	}
	if e.Phase(1.0) != PhasePreRoll {
		t.Errorf("Expected pre-roll phase, got %v", e.Phase(1.0))
	}
}

func TestAdvance_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		var pairs []any
		ts := 0.0
		for i := 0; i < 1+rng.Intn(40); i++ {
			ts += float64(rng.Intn(4)) * 0.25
			pairs = append(pairs, ts, "w")
		}
		store := mustStore(t, pairs...)
		e := New(store, DefaultOptions())

		times := make([]float64, 30)
		for i := range times {
			times[i] = rng.Float64() * (ts + 2)
		}
		sort.Float64s(times)

		prev := NoToken
		for _, at := range times {
			c := e.Advance(at)
			if c.TokenIndex < prev {
				t.Fatalf("Index went from %d to %d at %v", prev, c.TokenIndex, at)
			}
			prev = c.TokenIndex

			// incremental and from-scratch answers agree
			fresh := New(store, DefaultOptions())
			if want := fresh.Seek(at); want != c {
				t.Fatalf("Advance(%v) = %+v, Seek gives %+v", at, c, want)
			}
		}
	}
}

func TestAdvance_EqualTimestamps(t *testing.T) {
	e := New(mustStore(t, 1.0, "a", 1.0, "b", 1.0, "c", 2.0, "d"), DefaultOptions())

	c := e.Advance(1.0)
	if c.TokenIndex != 2 {
		t.Errorf("Expected the last of the equal tokens, got %d", c.TokenIndex)
	}
	for i := 0; i < 2; i++ {
		if p := e.ProgressOf(i, 1.0); p != 0 {
			t.Errorf("Token %d: expected progress 0 at its start, got %v", i, p)
		}
		if p := e.ProgressOf(i, 1.01); p != 1 {
			t.Errorf("Token %d: expected finished sweep just after, got %v", i, p)
		}
	}
}

func TestAdvance_NeverRewinds(t *testing.T) {
	e := New(scenario(t), DefaultOptions())
	e.Advance(2.0)
	if c := e.Advance(0.1); c.TokenIndex != 2 {
		t.Errorf("Expected Advance to hold at 2, got %d", c.TokenIndex)
	}
	if c := e.Seek(0.1); c.TokenIndex != 0 {
		t.Errorf("Expected Seek to rewind to 0, got %d", c.TokenIndex)
	}
	if c := e.Seek(-1); c.TokenIndex != NoToken {
		t.Errorf("Expected Seek before start to give pre-roll, got %d", c.TokenIndex)
	}
	e.Advance(1.0)
	e.Reset()
	if e.Cursor().Active() {
		t.Error("Expected Reset to return to pre-roll")
	}
}

func TestProgress_Bounds(t *testing.T) {
	e := New(mustStore(t, 0.0, "a", 0.0, "b", 0.4, "c", 3.0, "d."), DefaultOptions())

	for at := -1.0; at < 6.0; at += 0.01 {
		for i := 0; i < e.Store().Count(); i++ {
			p := e.ProgressOf(i, at)
			if p < 0 || p > 1 {
				t.Fatalf("ProgressOf(%d, %v) = %v out of range", i, at, p)
			}
		}
	}

	e.Advance(3.25)
	if p := e.Progress(3.25); p != 0.5 {
		t.Errorf("Expected final token half swept, got %v", p)
	}
	if p := e.Progress(100); p != 1 {
		t.Errorf("Expected final token fully swept, got %v", p)
	}
}

func TestPhase_Instrumental(t *testing.T) {
	e := New(mustStore(t, 0.0, "intro.", 10.0, "verse", 10.5, "two"), Options{DefaultWordDuration: 0.5, InstrumentalGap: 3})

	e.Advance(0.2)
	if got := e.Phase(0.2); got != PhaseSinging {
		t.Errorf("Expected singing while the word is held, got %v", got)
	}
	e.Advance(4.0)
	if got := e.Phase(4.0); got != PhaseInstrumental {
		t.Errorf("Expected instrumental in a long gap, got %v", got)
	}
	e.Advance(10.2)
	if got := e.Phase(10.2); got != PhaseSinging {
		t.Errorf("Expected singing again, got %v", got)
	}
	if e.Cursor().LineIndex != 1 {
		t.Errorf("Expected second line, got %d", e.Cursor().LineIndex)
	}
}
