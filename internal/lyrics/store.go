package lyrics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Token is a single timed lyric unit, usually one word.
type Token struct {
	Timestamp float64
	Text      string
}

// RawToken is what a lyric source hands to Build. LineEnd lets a source
// that knows its own line breaks close a line without punctuation.
type RawToken struct {
	Timestamp float64
	Text      string
	LineEnd   bool
}

// Line is a contiguous run of tokens inside a Store.
type Line struct {
	Index  int
	First  int
	Tokens []Token
}

func (l Line) Last() int {
	return l.First + len(l.Tokens) - 1
}

func (l Line) Contains(tokenIndex int) bool {
	return tokenIndex >= l.First && tokenIndex <= l.Last()
}

func (l Line) Start() float64 {
	if len(l.Tokens) == 0 {
		return 0
	}
	return l.Tokens[0].Timestamp
}

func (l Line) Text() string {
	words := make([]string, 0, len(l.Tokens))
	for _, tok := range l.Tokens {
		words = append(words, strings.TrimSpace(tok.Text))
	}
	return strings.Join(words, " ")
}

// MalformedInputError is returned by Build when the token sequence cannot
// be synchronized against. No store is produced.
type MalformedInputError struct {
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Index < 0 {
		return "malformed lyrics: " + e.Reason
	}
	return fmt.Sprintf("malformed lyrics at token %d: %s", e.Index, e.Reason)
}

// Store is an immutable, time ordered token sequence grouped into lines.
type Store struct {
	tokens []Token
	lines  []Line
	lineOf []int
}

// Build validates raw and groups it into lines. Timestamps must be finite,
// non-negative and non-decreasing.
func Build(raw []RawToken) (*Store, error) {
	if len(raw) == 0 {
		return nil, &MalformedInputError{Index: -1, Reason: "no tokens"}
	}

	tokens := make([]Token, len(raw))
	for i, r := range raw {
		if math.IsNaN(r.Timestamp) || math.IsInf(r.Timestamp, 0) {
			return nil, &MalformedInputError{Index: i, Reason: "timestamp is not finite"}
		}
		if r.Timestamp < 0 {
			return nil, &MalformedInputError{Index: i, Reason: fmt.Sprintf("negative timestamp %.3f", r.Timestamp)}
		}
		if i > 0 && r.Timestamp < raw[i-1].Timestamp {
			return nil, &MalformedInputError{
				Index:  i,
				Reason: fmt.Sprintf("timestamp %.3f before previous %.3f", r.Timestamp, raw[i-1].Timestamp),
			}
		}
		tokens[i] = Token{Timestamp: r.Timestamp, Text: r.Text}
	}

	s := &Store{
		tokens: tokens,
		lineOf: make([]int, len(tokens)),
	}

	first := 0
	for i, r := range raw {
		if !r.LineEnd && !endsSentence(r.Text) && i != len(raw)-1 {
			continue
		}
		idx := len(s.lines)
		s.lines = append(s.lines, Line{
			Index:  idx,
			First:  first,
			Tokens: tokens[first : i+1 : i+1],
		})
		for j := first; j <= i; j++ {
			s.lineOf[j] = idx
		}
		first = i + 1
	}

	return s, nil
}

// BuildSorted is the tolerant variant of Build: it stable sorts a copy of
// raw by timestamp before building.
func BuildSorted(raw []RawToken) (*Store, error) {
	sorted := slices.Clone(raw)
	slices.SortStableFunc(sorted, func(a, b RawToken) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return Build(sorted)
}

func endsSentence(text string) bool {
	text = strings.TrimRight(text, " \t")
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func (s *Store) Count() int { return len(s.tokens) }

func (s *Store) LineCount() int { return len(s.lines) }

func (s *Store) TokenAt(i int) Token { return s.tokens[i] }

func (s *Store) LineAt(i int) Line { return s.lines[i] }

func (s *Store) LineIndexOf(tokenIndex int) int { return s.lineOf[tokenIndex] }

func (s *Store) LineContaining(tokenIndex int) Line {
	return s.lines[s.lineOf[tokenIndex]]
}

// Lines returns a copy of the line headers. The token slices inside are
// shared with the store and must not be modified.
func (s *Store) Lines() []Line { return slices.Clone(s.lines) }

// Raw converts the store back into source tokens, marking line ends.
func (s *Store) Raw() []RawToken {
	raw := make([]RawToken, len(s.tokens))
	for i, tok := range s.tokens {
		raw[i] = RawToken{Timestamp: tok.Timestamp, Text: tok.Text}
	}
	for _, line := range s.lines {
		raw[line.Last()].LineEnd = true
	}
	return raw
}
