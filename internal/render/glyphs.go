package render

import "unicode"

// blockGlyphs are 5x5 bitmaps, one byte per row, high bit on the left.
var blockGlyphs = map[rune][5]uint8{
	'A': {0b01110, 0b10001, 0b11111, 0b10001, 0b10001},
	'B': {0b11110, 0b10001, 0b11110, 0b10001, 0b11110},
	'C': {0b01111, 0b10000, 0b10000, 0b10000, 0b01111},
	'D': {0b11110, 0b10001, 0b10001, 0b10001, 0b11110},
	'E': {0b11111, 0b10000, 0b11110, 0b10000, 0b11111},
	'F': {0b11111, 0b10000, 0b11110, 0b10000, 0b10000},
	'G': {0b01111, 0b10000, 0b10011, 0b10001, 0b01110},
	'H': {0b10001, 0b10001, 0b11111, 0b10001, 0b10001},
	'I': {0b11111, 0b00100, 0b00100, 0b00100, 0b11111},
	'J': {0b00111, 0b00001, 0b00001, 0b10001, 0b01110},
	'K': {0b10001, 0b10010, 0b11100, 0b10010, 0b10001},
	'L': {0b10000, 0b10000, 0b10000, 0b10000, 0b11111},
	'M': {0b10001, 0b11011, 0b10101, 0b10001, 0b10001},
	'N': {0b10001, 0b11001, 0b10101, 0b10011, 0b10001},
	'O': {0b01110, 0b10001, 0b10001, 0b10001, 0b01110},
	'P': {0b11110, 0b10001, 0b11110, 0b10000, 0b10000},
	'Q': {0b01110, 0b10001, 0b10101, 0b10010, 0b01101},
	'R': {0b11110, 0b10001, 0b11110, 0b10010, 0b10001},
	'S': {0b01111, 0b10000, 0b01110, 0b00001, 0b11110},
	'T': {0b11111, 0b00100, 0b00100, 0b00100, 0b00100},
	'U': {0b10001, 0b10001, 0b10001, 0b10001, 0b01110},
	'V': {0b10001, 0b10001, 0b10001, 0b01010, 0b00100},
	'W': {0b10001, 0b10001, 0b10101, 0b11011, 0b10001},
	'X': {0b10001, 0b01010, 0b00100, 0b01010, 0b10001},
	'Y': {0b10001, 0b01010, 0b00100, 0b00100, 0b00100},
	'Z': {0b11111, 0b00010, 0b00100, 0b01000, 0b11111},

	'a': {0b00000, 0b01110, 0b00001, 0b01111, 0b01111},
	'b': {0b10000, 0b10000, 0b11110, 0b10001, 0b11110},
	'c': {0b00000, 0b01110, 0b10000, 0b10000, 0b01110},
	'd': {0b00001, 0b00001, 0b01111, 0b10001, 0b01111},
	'e': {0b01110, 0b10001, 0b11111, 0b10000, 0b01110},
	'f': {0b00110, 0b01000, 0b11110, 0b01000, 0b01000},
	'g': {0b01111, 0b10001, 0b01111, 0b00001, 0b01110},
	'h': {0b10000, 0b10000, 0b11110, 0b10001, 0b10001},
	'i': {0b00100, 0b00000, 0b00100, 0b00100, 0b00100},
	'j': {0b00010, 0b00000, 0b00010, 0b00010, 0b01100},
	'k': {0b10000, 0b10010, 0b11100, 0b10010, 0b10001},
	'l': {0b01100, 0b00100, 0b00100, 0b00100, 0b01110},
	'm': {0b00000, 0b11010, 0b10101, 0b10101, 0b10001},
	'n': {0b00000, 0b11110, 0b10001, 0b10001, 0b10001},
	'o': {0b00000, 0b01110, 0b10001, 0b10001, 0b01110},
	'p': {0b00000, 0b11110, 0b10001, 0b11110, 0b10000},
	'q': {0b00000, 0b01111, 0b10001, 0b01111, 0b00001},
	'r': {0b00000, 0b10110, 0b11000, 0b10000, 0b10000},
	's': {0b00000, 0b01110, 0b11000, 0b00110, 0b11100},
	't': {0b01000, 0b11110, 0b01000, 0b01000, 0b00110},
	'u': {0b00000, 0b10001, 0b10001, 0b10001, 0b01110},
	'v': {0b00000, 0b10001, 0b10001, 0b01010, 0b00100},
	'w': {0b00000, 0b10001, 0b10101, 0b10101, 0b01010},
	'x': {0b00000, 0b10001, 0b01010, 0b01010, 0b10001},
	'y': {0b00000, 0b10001, 0b01111, 0b00001, 0b01110},
	'z': {0b00000, 0b11111, 0b00110, 0b01100, 0b11111},

	'0': {0b01110, 0b10011, 0b10101, 0b11001, 0b01110},
	'1': {0b00100, 0b01100, 0b00100, 0b00100, 0b01110},
	'2': {0b01110, 0b10001, 0b00110, 0b01000, 0b11111},
	'3': {0b11110, 0b00001, 0b00110, 0b00001, 0b11110},
	'4': {0b10001, 0b10001, 0b11111, 0b00001, 0b00001},
	'5': {0b11111, 0b10000, 0b11110, 0b00001, 0b11110},
	'6': {0b01110, 0b10000, 0b11110, 0b10001, 0b01110},
	'7': {0b11111, 0b00001, 0b00010, 0b00100, 0b00100},
	'8': {0b01110, 0b10001, 0b01110, 0b10001, 0b01110},
	'9': {0b01110, 0b10001, 0b01111, 0b00001, 0b01110},

	' ':  {0b00000, 0b00000, 0b00000, 0b00000, 0b00000},
	'.':  {0b00000, 0b00000, 0b00000, 0b00000, 0b00100},
	',':  {0b00000, 0b00000, 0b00000, 0b00100, 0b01000},
	'!':  {0b00100, 0b00100, 0b00100, 0b00000, 0b00100},
	'?':  {0b01110, 0b10001, 0b00110, 0b00000, 0b00100},
	'\'': {0b00100, 0b00100, 0b00000, 0b00000, 0b00000},
	'"':  {0b01010, 0b01010, 0b00000, 0b00000, 0b00000},
	'-':  {0b00000, 0b00000, 0b11111, 0b00000, 0b00000},
	':':  {0b00000, 0b00100, 0b00000, 0b00100, 0b00000},
	';':  {0b00000, 0b00100, 0b00000, 0b00100, 0b01000},
	'(':  {0b00010, 0b00100, 0b00100, 0b00100, 0b00010},
	')':  {0b01000, 0b00100, 0b00100, 0b00100, 0b01000},
	'·':  {0b00000, 0b00000, 0b00100, 0b00000, 0b00000},

	// german letters
	'Ä': {0b01010, 0b01110, 0b10001, 0b11111, 0b10001},
	'Ö': {0b01010, 0b01110, 0b10001, 0b10001, 0b01110},
	'Ü': {0b01010, 0b10001, 0b10001, 0b10001, 0b01110},
	'ä': {0b01010, 0b01110, 0b00001, 0b01111, 0b01111},
	'ö': {0b01010, 0b00000, 0b01110, 0b10001, 0b01110},
	'ü': {0b01010, 0b00000, 0b10001, 0b10001, 0b01110},
	'ß': {0b01110, 0b10001, 0b11110, 0b10001, 0b11110},

	// polish letters
	'Ą': {0b01110, 0b10001, 0b11111, 0b10001, 0b10011},
	'Ć': {0b00010, 0b01111, 0b10000, 0b10000, 0b01111},
	'Ę': {0b11111, 0b10000, 0b11110, 0b10000, 0b11011},
	'Ł': {0b10000, 0b10000, 0b11100, 0b10000, 0b11111},
	'Ń': {0b00100, 0b10001, 0b11001, 0b10101, 0b10011},
	'Ó': {0b00100, 0b01110, 0b10001, 0b10001, 0b01110},
	'Ś': {0b00010, 0b01111, 0b10000, 0b01110, 0b11110},
	'Ź': {0b00010, 0b11111, 0b00010, 0b01000, 0b11111},
	'Ż': {0b00100, 0b11111, 0b00010, 0b01000, 0b11111},
	'ą': {0b00000, 0b01110, 0b00001, 0b01111, 0b01011},
	'ć': {0b00010, 0b01110, 0b10000, 0b10000, 0b01110},
	'ę': {0b01110, 0b10001, 0b11111, 0b10000, 0b01011},
	'ł': {0b01100, 0b00100, 0b01110, 0b00100, 0b01110},
	'ń': {0b00100, 0b00000, 0b11110, 0b10001, 0b10001},
	'ó': {0b00100, 0b00000, 0b01110, 0b10001, 0b01110},
	'ś': {0b00010, 0b00000, 0b01110, 0b11000, 0b01110},
	'ź': {0b00010, 0b00000, 0b11111, 0b00110, 0b11111},
	'ż': {0b00100, 0b00000, 0b11111, 0b00110, 0b11111},

	// french letters
	'À': {0b01000, 0b01110, 0b10001, 0b11111, 0b10001},
	'Â': {0b00100, 0b01110, 0b10001, 0b11111, 0b10001},
	'Ç': {0b01110, 0b10000, 0b10000, 0b01110, 0b00100},
	'È': {0b01000, 0b11111, 0b10000, 0b11110, 0b11111},
	'É': {0b00010, 0b11111, 0b10000, 0b11110, 0b11111},
	'Ê': {0b00100, 0b11111, 0b10000, 0b11110, 0b11111},
	'Ë': {0b01010, 0b11111, 0b10000, 0b11110, 0b11111},
	'Î': {0b00100, 0b01010, 0b00100, 0b00100, 0b11111},
	'Ï': {0b01010, 0b11111, 0b00100, 0b00100, 0b11111},
	'Ô': {0b00100, 0b01110, 0b10001, 0b10001, 0b01110},
	'Ù': {0b01000, 0b10001, 0b10001, 0b10001, 0b01110},
	'Û': {0b00100, 0b10001, 0b10001, 0b10001, 0b01110},
	'Ÿ': {0b01010, 0b10001, 0b01010, 0b00100, 0b00100},
	'Œ': {0b01111, 0b10101, 0b10111, 0b10101, 0b01111},
	'à': {0b01000, 0b01110, 0b00001, 0b01111, 0b01111},
	'â': {0b00100, 0b01110, 0b00001, 0b01111, 0b01111},
	'ç': {0b00000, 0b01110, 0b10000, 0b01110, 0b00100},
	'è': {0b01000, 0b01110, 0b11111, 0b10000, 0b01110},
	'é': {0b00010, 0b01110, 0b11111, 0b10000, 0b01110},
	'ê': {0b00100, 0b01110, 0b11111, 0b10000, 0b01110},
	'ë': {0b01010, 0b01110, 0b11111, 0b10000, 0b01110},
	'î': {0b00100, 0b01010, 0b00100, 0b00100, 0b00100},
	'ï': {0b01010, 0b00000, 0b00100, 0b00100, 0b00100},
	'ô': {0b00100, 0b00000, 0b01110, 0b10001, 0b01110},
	'ù': {0b01000, 0b00000, 0b10001, 0b10001, 0b01110},
	'û': {0b00100, 0b01010, 0b10001, 0b10001, 0b01110},
	'ÿ': {0b01010, 0b10001, 0b01111, 0b00001, 0b01110},
	'œ': {0b00000, 0b01111, 0b10101, 0b10100, 0b01111},
}

const (
	glyphWidth  = 5
	glyphHeight = 5
	glyphGap    = 1
	// glyph rows are packed two per cell with half blocks
	blockRows = (glyphHeight + 1) / 2
)

func glyphFor(r rune) [glyphHeight]uint8 {
	if g, ok := blockGlyphs[r]; ok {
		return g
	}
	if g, ok := blockGlyphs[unicode.ToUpper(r)]; ok {
		return g
	}
	return blockGlyphs[' ']
}

// blockCells returns the width in cells of text drawn in block glyphs.
func blockCells(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n*(glyphWidth+glyphGap) - glyphGap
}

// blockRasterize renders text as blockRows strings of half block runes,
// each blockCells(text) runes long.
func blockRasterize(text string) [blockRows][]rune {
	var out [blockRows][]rune
	runes := []rune(text)
	for i, r := range runes {
		g := glyphFor(r)
		for termRow := 0; termRow < blockRows; termRow++ {
			top := termRow * 2
			bottom := top + 1
			for col := 0; col < glyphWidth; col++ {
				shift := glyphWidth - 1 - col
				topOn := (g[top]>>shift)&1 == 1
				bottomOn := bottom < glyphHeight && (g[bottom]>>shift)&1 == 1
				switch {
				case topOn && bottomOn:
					out[termRow] = append(out[termRow], '█')
				case topOn:
					out[termRow] = append(out[termRow], '▀')
				case bottomOn:
					out[termRow] = append(out[termRow], '▄')
				default:
					out[termRow] = append(out[termRow], ' ')
				}
			}
			if i < len(runes)-1 {
				out[termRow] = append(out[termRow], ' ')
			}
		}
	}
	return out
}
