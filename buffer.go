package flexconf

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// buffer holds the full document as a validated UTF-8 string plus a
// precomputed line-start index, so diagnostics never re-scan the input.
// Corresponds to spec.md §4.1, Source Buffer.
type buffer struct {
	src           string
	runes         []rune
	lineStartRune []int // rune index where each line (0-indexed) begins
}

// newBuffer validates the input as UTF-8, then strips an optional BOM.
// Validation runs on the raw bytes because the x/text UTF-8 decoder
// replaces ill-formed sequences with U+FFFD instead of reporting them.
// BOM handling goes through golang.org/x/text/encoding/unicode rather than
// a hand-rolled three-byte prefix check, the same library db47h-lex and
// zombiezen-go-commonmark reach for when a scanner needs to be BOM-aware.
func newBuffer(data []byte) (*buffer, error) {
	if !utf8.Valid(data) {
		return nil, &Error{Kind: EncodingError, Message: "invalid UTF-8 input"}
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	stripped, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, &Error{Kind: EncodingError, Message: "invalid UTF-8 input", OrigError: err}
	}

	src := string(stripped)
	runes := []rune(src)

	b := &buffer{src: src, runes: runes}
	b.indexLines()
	return b, nil
}

func (b *buffer) indexLines() {
	b.lineStartRune = []int{0}
	for i, r := range b.runes {
		if r == '\n' {
			b.lineStartRune = append(b.lineStartRune, i+1)
		}
	}
}

func (b *buffer) len() int { return len(b.runes) }

func (b *buffer) at(runeOffset int) rune {
	if runeOffset < 0 || runeOffset >= len(b.runes) {
		return -1
	}
	return b.runes[runeOffset]
}

// lineCol converts a 0-indexed rune offset into a 1-indexed (line, column)
// pair, counting code points as required by spec.md §4.1.
func (b *buffer) lineCol(runeOffset int) (line, col int) {
	// binary search over lineStartRune for the last start <= runeOffset
	lo, hi := 0, len(b.lineStartRune)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lineStartRune[mid] <= runeOffset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line = lo + 1
	col = runeOffset - b.lineStartRune[lo] + 1
	return
}

func (b *buffer) lineText(line int) string {
	if line < 1 || line > len(b.lineStartRune) {
		return ""
	}
	start := b.lineStartRune[line-1]
	end := len(b.runes)
	if line < len(b.lineStartRune) {
		end = b.lineStartRune[line] - 1 // exclude trailing newline
		if end < start {
			end = start
		}
	}
	return string(b.runes[start:end])
}

// snippet renders the source line containing span, followed by a caret
// line aligned under span.Column spanning span.Length columns (minimum
// one caret). See SPEC_FULL.md "Snippet rendering detail".
func (b *buffer) snippet(span Span) string {
	line := b.lineText(span.Line)
	width := span.Length
	if width < 1 {
		width = 1
	}
	carets := make([]rune, 0, span.Column-1+width)
	for i := 1; i < span.Column; i++ {
		carets = append(carets, ' ')
	}
	for i := 0; i < width; i++ {
		carets = append(carets, '^')
	}
	return line + "\n" + string(carets)
}
