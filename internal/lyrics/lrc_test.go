package lyrics

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestParseLRC_WordPerLine(t *testing.T) {
	input := `[ar:OneRepublic]
[ti:Counting Stars]
[al:Native]
[length:257]

[00:00.00]Lately
[00:00.50]I
[00:01.00]been
[00:02.50]thinking.
not a lyric line
[00:03.00]
[00:04.00]Baby
`
	doc, err := ParseLRCString(input)
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}

	if doc.Meta.Artist != "OneRepublic" || doc.Meta.Title != "Counting Stars" || doc.Meta.Album != "Native" {
		t.Errorf("Unexpected meta %+v", doc.Meta)
	}
	if doc.Meta.Length != 257 {
		t.Errorf("Expected length 257, got %v", doc.Meta.Length)
	}

	want := []RawToken{
		{Timestamp: 0, Text: "Lately"},
		{Timestamp: 0.5, Text: "I"},
		{Timestamp: 1, Text: "been"},
		{Timestamp: 2.5, Text: "thinking."},
		{Timestamp: 4, Text: "Baby"},
	}
	if len(doc.Tokens) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %+v", len(want), len(doc.Tokens), doc.Tokens)
	}
	for i := range want {
		if doc.Tokens[i] != want[i] {
			t.Errorf("Token %d: expected %+v, got %+v", i, want[i], doc.Tokens[i])
		}
	}

	s, err := Build(doc.Tokens)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.LineCount() != 2 {
		t.Errorf("Expected 2 lines, got %d", s.LineCount())
	}
}

func TestParseLRC_InlineStamps(t *testing.T) {
	input := "[00:01.20] Lately [00:01.70] I [00:02.10] been \n" +
		"[00:05.00]<00:05.00>thinking <00:05.40>about <00:06.00>you\n"

	doc, err := ParseLRCString(input)
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}

	if len(doc.Tokens) != 6 {
		t.Fatalf("Expected 6 tokens, got %d: %+v", len(doc.Tokens), doc.Tokens)
	}
	if doc.Tokens[1].Text != "I" || doc.Tokens[1].Timestamp != 1.7 {
		t.Errorf("Unexpected token %+v", doc.Tokens[1])
	}
	if !doc.Tokens[2].LineEnd || !doc.Tokens[5].LineEnd {
		t.Error("Expected the last word of each source line to end a line")
	}
	if doc.Tokens[3].LineEnd {
		t.Error("Did not expect a line end mid line")
	}
	if doc.Tokens[3].Text != "thinking" || doc.Tokens[3].Timestamp != 5 {
		t.Errorf("Unexpected token %+v", doc.Tokens[3])
	}
}

func TestParseLRC_LineLevelAndRepeats(t *testing.T) {
	input := `[00:10.00]First line of the verse
[00:20.00][00:40.00]Chorus goes here
[00:30.00]Oh
`
	doc, err := ParseLRCString(input)
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}

	if len(doc.Tokens) != 4 {
		t.Fatalf("Expected 4 tokens, got %d", len(doc.Tokens))
	}
	wantOrder := []string{"First line of the verse", "Chorus goes here", "Oh", "Chorus goes here"}
	for i, want := range wantOrder {
		if doc.Tokens[i].Text != want {
			t.Errorf("Token %d: expected %q, got %q", i, want, doc.Tokens[i].Text)
		}
		if !doc.Tokens[i].LineEnd {
			t.Errorf("Token %d should end a line in a line level file", i)
		}
	}
}

func TestParseLRC_Offset(t *testing.T) {
	doc, err := ParseLRCString("[offset:500]\n[00:00.20]a\n[00:02.00]b\n")
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}
	if doc.Tokens[0].Timestamp != 0 {
		t.Errorf("Expected clamped timestamp 0, got %v", doc.Tokens[0].Timestamp)
	}
	if math.Abs(doc.Tokens[1].Timestamp-1.5) > 1e-9 {
		t.Errorf("Expected 1.5, got %v", doc.Tokens[1].Timestamp)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00.00", 0, false},
		{"01:02.50", 62.5, false},
		{"1:00:00", 3600, false},
		{"3:45", 225, false},
		{"", 0, true},
		{"12", 0, true},
		{"aa:bb", 0, true},
		{"-1:00", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[float64]string{
		0:      "00:00.00",
		2.5:    "00:02.50",
		61.299: "01:01.30",
		600.05: "10:00.05",
		-3:     "00:00.00",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatLRC_ReadsBack(t *testing.T) {
	s, err := Build(raw(0.0, "Lately", 0.5, "I", 1.0, "been", 2.5, "thinking.", 4.0, "Baby", 4.5, "I"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	meta := Meta{Title: "Counting Stars", Artist: "OneRepublic", Length: 257}
	if err := FormatLRC(&buf, meta, s); err != nil {
		t.Fatalf("FormatLRC failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "[ti:Counting Stars]") || !strings.Contains(out, "[length:257]") {
		t.Errorf("Missing id tags in output:\n%s", out)
	}
	if !strings.Contains(out, "[00:00.00]Lately [00:00.50]I [00:01.00]been [00:02.50]thinking.\n") {
		t.Errorf("Unexpected line layout:\n%s", out)
	}

	doc, err := ParseLRC(&buf)
	if err != nil {
		t.Fatalf("ParseLRC failed: %v", err)
	}
	back, err := Build(doc.Tokens)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if back.Count() != s.Count() || back.LineCount() != s.LineCount() {
		t.Errorf("Expected %d tokens in %d lines, got %d in %d",
			s.Count(), s.LineCount(), back.Count(), back.LineCount())
	}
}
