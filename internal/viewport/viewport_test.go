package viewport

import (
	"math"
	"testing"

	"karolbroda.com/karaline/internal/engine"
)

func TestPlan_VisibleRange(t *testing.T) {
	p := New(20, DefaultOptions())

	tests := []struct {
		index int
		want  Range
	}{
		{engine.NoToken, Range{0, 4}},
		{0, Range{0, 5}},
		{2, Range{0, 7}},
		{10, Range{6, 15}},
		{18, Range{14, 20}},
		{19, Range{15, 20}},
	}

	for _, tt := range tests {
		plan := p.Plan(engine.Cursor{TokenIndex: tt.index}, 4, 4)
		if plan.Visible != tt.want {
			t.Errorf("index %d: expected %+v, got %+v", tt.index, tt.want, plan.Visible)
		}
	}
}

func TestPlan_CentersActiveRow(t *testing.T) {
	opts := DefaultOptions()
	p := New(20, opts)

	plan := p.Plan(engine.Cursor{TokenIndex: 7}, 4, 4)
	p.Snap()

	top := p.RowY(plan.ActiveRow)
	center := top + opts.RowHeight/2
	if math.Abs(center-opts.ViewportHeight/2) > 1e-9 {
		t.Errorf("Expected active row centered at %v, got %v", opts.ViewportHeight/2, center)
	}
}

func TestPlan_DoesNotMoveCurrent(t *testing.T) {
	p := New(20, DefaultOptions())
	before := p.Offset()
	p.Plan(engine.Cursor{TokenIndex: 12}, 4, 4)
	if p.Offset() != before {
		t.Errorf("Plan moved the current offset from %v to %v", before, p.Offset())
	}
	if p.Target() == before {
		t.Error("Plan did not move the target")
	}
}

func TestPlan_LineRows(t *testing.T) {
	opts := DefaultOptions()
	opts.Rows = RowsLines
	p := New(6, opts)

	plan := p.Plan(engine.Cursor{TokenIndex: 14, LineIndex: 3}, 1, 1)
	if plan.ActiveRow != 3 || plan.Visible != (Range{2, 5}) {
		t.Errorf("Expected line 3 in [2,5), got row %d in %+v", plan.ActiveRow, plan.Visible)
	}
}

func TestStep_Converges(t *testing.T) {
	opts := DefaultOptions()
	p := New(100, opts)
	p.Plan(engine.Cursor{TokenIndex: 60}, 4, 4)

	prev := math.Abs(p.Target() - p.Offset())
	steps := 0
	for p.Offset() != p.Target() {
		p.Step()
		gap := math.Abs(p.Target() - p.Offset())
		if gap >= prev {
			t.Fatalf("Step %d did not shrink the gap: %v -> %v", steps, prev, gap)
		}
		prev = gap
		steps++
		if steps > 200 {
			t.Fatalf("Did not converge after %d steps, gap %v", steps, gap)
		}
	}

	// (1-0.15)^n * 1920 < 2 for n around 43
	if steps > 50 {
		t.Errorf("Expected convergence within 50 steps, took %d", steps)
	}
}

func TestStep_MovesTowardTarget(t *testing.T) {
	p := New(10, DefaultOptions())
	p.Plan(engine.Cursor{TokenIndex: 3}, 4, 4)

	start := p.Offset()
	next := p.Step()
	if (p.Target() > start) != (next > start) {
		t.Errorf("Step moved away from the target: %v -> %v, target %v", start, next, p.Target())
	}
	if want := start + (p.Target()-start)*0.15; math.Abs(next-want) > 1e-9 {
		t.Errorf("Expected eased offset %v, got %v", want, next)
	}
}

func TestSetViewportHeight_KeepsRowsInPlace(t *testing.T) {
	p := New(10, DefaultOptions())
	p.Plan(engine.Cursor{TokenIndex: 5}, 4, 4)
	p.Snap()

	p.SetViewportHeight(400)
	p.Plan(engine.Cursor{TokenIndex: 5}, 4, 4)
	if p.Offset() != p.Target() {
		t.Errorf("Expected resize to keep a settled view settled, %v vs %v", p.Offset(), p.Target())
	}
}

func TestParseRows(t *testing.T) {
	if r, err := ParseRows("lines"); err != nil || r != RowsLines {
		t.Errorf("Expected lines, got %v (%v)", r, err)
	}
	if r, err := ParseRows(""); err != nil || r != RowsTokens {
		t.Errorf("Expected tokens by default, got %v (%v)", r, err)
	}
	if _, err := ParseRows("pixels"); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}
