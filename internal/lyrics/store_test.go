package lyrics

import (
	"errors"
	"math"
	"testing"
)

func raw(pairs ...any) []RawToken {
	var out []RawToken
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, RawToken{Timestamp: pairs[i].(float64), Text: pairs[i+1].(string)})
	}
	return out
}

func TestBuild_Scenario(t *testing.T) {
	s, err := Build(raw(0.0, "Lately", 0.5, "I", 1.0, "been", 2.5, "thinking."))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if s.Count() != 4 {
		t.Errorf("Expected 4 tokens, got %d", s.Count())
	}
	if s.LineCount() != 1 {
		t.Fatalf("Expected 1 line, got %d", s.LineCount())
	}
	if got := s.LineContaining(1).Text(); got != "Lately I been thinking." {
		t.Errorf("Unexpected line text %q", got)
	}
	if tok := s.TokenAt(3); tok.Text != "thinking." || tok.Timestamp != 2.5 {
		t.Errorf("Unexpected token %+v", tok)
	}
}

func TestBuild_NonDecreasing(t *testing.T) {
	inputs := [][]RawToken{
		raw(0.0, "a"),
		raw(0.0, "a", 0.0, "b", 0.0, "c"),
		raw(1.0, "a", 1.5, "b", 1.5, "c", 9.0, "d"),
		raw(0.25, "x", 100.0, "y"),
	}

	for _, in := range inputs {
		s, err := Build(in)
		if err != nil {
			t.Fatalf("Build(%v) failed: %v", in, err)
		}
		for i := 0; i+1 < s.Count(); i++ {
			if s.TokenAt(i).Timestamp > s.TokenAt(i+1).Timestamp {
				t.Errorf("Tokens %d and %d out of order", i, i+1)
			}
		}
	}
}

func TestBuild_EqualTimestampsKeepSourceOrder(t *testing.T) {
	s, err := Build(raw(1.0, "one", 1.0, "two", 1.0, "three"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i, want := range []string{"one", "two", "three"} {
		if got := s.TokenAt(i).Text; got != want {
			t.Errorf("Token %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestBuild_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   []RawToken
	}{
		{"empty", nil},
		{"decreasing", raw(2.0, "b", 1.0, "a")},
		{"decreasing later", raw(0.0, "a", 3.0, "b", 2.9, "c")},
		{"negative", raw(-1.0, "a")},
		{"nan", []RawToken{{Timestamp: math.NaN(), Text: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Build(tt.in)
			if s != nil {
				t.Error("Expected no store on malformed input")
			}
			var malformed *MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected MalformedInputError, got %v", err)
			}
		})
	}
}

func TestBuildSorted_ToleratesDisorder(t *testing.T) {
	s, err := BuildSorted(raw(2.0, "c", 1.0, "a", 1.0, "b"))
	if err != nil {
		t.Fatalf("BuildSorted failed: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := s.TokenAt(i).Text; got != want {
			t.Errorf("Token %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestBuild_Lines(t *testing.T) {
	in := raw(
		0.0, "Hello", 0.4, "there!", // line 0
		1.0, "Who", 1.2, "are", 1.4, "you?", // line 1
		2.0, "I", 2.2, "am.", // line 2
		3.0, "trailing", 3.5, "words", // line 3, closed by end of input
	)

	s, err := Build(in)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if s.LineCount() != 4 {
		t.Fatalf("Expected 4 lines, got %d", s.LineCount())
	}

	// concatenating the lines gives back every token exactly once
	next := 0
	for li, line := range s.Lines() {
		if len(line.Tokens) == 0 {
			t.Fatalf("Line %d is empty", li)
		}
		if line.First != next {
			t.Errorf("Line %d starts at %d, expected %d", li, line.First, next)
		}
		for j, tok := range line.Tokens {
			if tok != s.TokenAt(line.First+j) {
				t.Errorf("Line %d token %d mismatch", li, j)
			}
			if s.LineIndexOf(line.First+j) != li {
				t.Errorf("Token %d mapped to line %d, expected %d", line.First+j, s.LineIndexOf(line.First+j), li)
			}
		}
		next = line.Last() + 1
	}
	if next != s.Count() {
		t.Errorf("Lines cover %d tokens, store has %d", next, s.Count())
	}

	if got := s.LineContaining(4).Text(); got != "Who are you?" {
		t.Errorf("Unexpected line text %q", got)
	}
}

func TestBuild_LineEndFlag(t *testing.T) {
	in := []RawToken{
		{Timestamp: 0, Text: "no punctuation here", LineEnd: true},
		{Timestamp: 2, Text: "second line", LineEnd: true},
	}
	s, err := Build(in)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.LineCount() != 2 {
		t.Errorf("Expected 2 lines, got %d", s.LineCount())
	}

	back := s.Raw()
	if !back[0].LineEnd || !back[1].LineEnd {
		t.Errorf("Expected line ends to survive Raw(), got %+v", back)
	}
}
