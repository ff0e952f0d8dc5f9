package lyrics

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Meta holds the LRC id tags we care about.
type Meta struct {
	Title  string
	Artist string
	Album  string
	Length float64
	// Offset in seconds, from the [offset:] tag. Already applied to the
	// tokens of a parsed Document.
	Offset float64
}

// Document is a parsed LRC file.
type Document struct {
	Meta   Meta
	Tokens []RawToken
}

type segment struct {
	at   float64
	text string
}

// ParseLRC reads word-per-line LRC, classic line LRC, enhanced LRC with
// inline <mm:ss.xx> word stamps and square-bracket inline stamps. Lines it
// cannot understand are skipped. Tokens come back stably sorted.
func ParseLRC(r io.Reader) (*Document, error) {
	doc := &Document{}
	lineLevel := false

	// index of tokens produced from single segment lines, these become
	// whole-line tokens when the file turns out to be line level
	var single []int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" || !strings.HasPrefix(trimmed, "[") {
			continue
		}

		if parseIDTag(trimmed, &doc.Meta) {
			continue
		}

		stamps, rest := splitLeadingStamps(trimmed)
		if len(stamps) == 0 {
			continue
		}

		segments := splitInline(stamps[0], rest)
		switch {
		case len(segments) == 0:
			continue

		case len(segments) == 1:
			text := segments[0].text
			if len(strings.Fields(text)) > 1 {
				lineLevel = true
			}
			// repeated stamps: "[00:12.00][01:40.00]chorus"
			for _, at := range stamps {
				single = append(single, len(doc.Tokens))
				doc.Tokens = append(doc.Tokens, RawToken{Timestamp: at, Text: text})
			}

		default:
			for i, seg := range segments {
				doc.Tokens = append(doc.Tokens, RawToken{
					Timestamp: seg.at,
					Text:      seg.text,
					LineEnd:   i == len(segments)-1,
				})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lrc: %w", err)
	}

	if lineLevel {
		for _, idx := range single {
			doc.Tokens[idx].LineEnd = true
		}
	}

	if doc.Meta.Offset != 0 {
		for i := range doc.Tokens {
			doc.Tokens[i].Timestamp = math.Max(0, doc.Tokens[i].Timestamp-doc.Meta.Offset)
		}
	}

	slices.SortStableFunc(doc.Tokens, func(a, b RawToken) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	return doc, nil
}

// ParseLRCString is a convenience wrapper for lyrics held in memory.
func ParseLRCString(raw string) (*Document, error) {
	return ParseLRC(strings.NewReader(raw))
}

func parseIDTag(line string, meta *Meta) bool {
	if !strings.HasSuffix(line, "]") {
		return false
	}
	key, value, ok := strings.Cut(line[1:len(line)-1], ":")
	if !ok || key == "" {
		return false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}

	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "ti":
		meta.Title = value
	case "ar":
		meta.Artist = value
	case "al":
		meta.Album = value
	case "length":
		if secs, err := ParseTimestamp(value); err == nil {
			meta.Length = secs
		} else if secs, err := strconv.ParseFloat(value, 64); err == nil {
			meta.Length = secs
		}
	case "offset":
		// lrc offsets are milliseconds, positive means lyrics come sooner
		if ms, err := strconv.ParseFloat(value, 64); err == nil {
			meta.Offset = ms / 1000
		}
	}
	return true
}

func splitLeadingStamps(line string) ([]float64, string) {
	var stamps []float64
	rest := line
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end <= 1 {
			break
		}
		at, err := ParseTimestamp(rest[1:end])
		if err != nil {
			break
		}
		stamps = append(stamps, at)
		rest = rest[end+1:]
	}
	return stamps, rest
}

// splitInline cuts text at every inline stamp, either <mm:ss.xx> or
// [mm:ss.xx], attributing each piece to the stamp before it.
func splitInline(start float64, text string) []segment {
	var segments []segment
	current := segment{at: start}
	var buf strings.Builder

	flush := func() {
		current.text = strings.TrimSpace(buf.String())
		if current.text != "" {
			segments = append(segments, current)
		}
		buf.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '<' || c == '[' {
			closer := byte('>')
			if c == '[' {
				closer = ']'
			}
			end := strings.IndexByte(text[i+1:], closer)
			if end > 0 {
				if at, err := ParseTimestamp(text[i+1 : i+1+end]); err == nil {
					flush()
					current = segment{at: at}
					i += end + 1
					continue
				}
			}
		}
		buf.WriteByte(c)
	}
	flush()

	return segments
}

// ParseTimestamp accepts mm:ss, mm:ss.xx and hh:mm:ss.xx.
func ParseTimestamp(raw string) (float64, error) {
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse time %q: %w", raw, err)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid time value %q", raw)
		}
		values[i] = v
	}

	var total float64
	for _, v := range values {
		total = total*60 + v
	}
	return total, nil
}

// FormatTimestamp renders seconds as mm:ss.xx, rounding to hundredths.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int64(math.Round(seconds * 100))
	minutes := centis / 6000
	secs := (centis / 100) % 60
	hundredths := centis % 100
	return fmt.Sprintf("%02d:%02d.%02d", minutes, secs, hundredths)
}

// FormatLRC writes one LRC line per store line with an inline stamp before
// every word, so ParseLRC reads the same tokens and line breaks back.
func FormatLRC(w io.Writer, meta Meta, store *Store) error {
	bw := bufio.NewWriter(w)

	tags := []struct {
		key   string
		value string
	}{
		{"ar", meta.Artist},
		{"ti", meta.Title},
		{"al", meta.Album},
	}
	for _, tag := range tags {
		if tag.value != "" {
			fmt.Fprintf(bw, "[%s:%s]\n", tag.key, tag.value)
		}
	}
	if meta.Length > 0 {
		fmt.Fprintf(bw, "[length:%d]\n", int(meta.Length))
	}
	bw.WriteString("\n")

	for _, line := range store.Lines() {
		for i, tok := range line.Tokens {
			if i > 0 {
				bw.WriteString(" ")
			}
			fmt.Fprintf(bw, "[%s]%s", FormatTimestamp(tok.Timestamp), strings.TrimSpace(tok.Text))
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}
