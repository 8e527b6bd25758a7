package flexconf

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DocumentMode is decided once per document and never changes afterward
// (spec.md §3, §4.3).
type DocumentMode int

const (
	ModeIndentation DocumentMode = iota
	ModeBracket
)

func (m DocumentMode) String() string {
	if m == ModeBracket {
		return "Bracket"
	}
	return "Indentation"
}

// lexer is a tokenizer over a buffer, generalized from pongo2's
// lexer.go: a rune cursor (peekRune/peekRuneAt/nextRune/matchWord) and
// the same emit token-boundary bookkeeping, now parameterized by a
// LexerConfig (spec.md §9, pragma-driven dynamic tokenization) and
// branching into two coexisting grammars instead of pongo2's one.
type lexer struct {
	buf    *buffer
	cfg    LexerConfig
	mode   DocumentMode
	pos    int
	tokens []*Token

	// indentStack is an explicit slice-based stack, not recursion, per
	// spec.md §9 and grounded on jcorbin-soc's scandown.BlockStack.
	indentStack []int
	baseUnit    int
}

// lexDocument runs the Pragma Preprocessor, freezes the LexerConfig,
// detects the Document Mode, and tokenizes the remainder.
func lexDocument(b *buffer) ([]*Token, LexerConfig, DocumentMode, error) {
	cfg, offset, err := preprocessPragmas(b)
	if err != nil {
		return nil, cfg, ModeIndentation, withSnippet(err, b)
	}

	mode := detectMode(b, cfg, offset)

	lx := &lexer{
		buf:         b,
		cfg:         cfg,
		mode:        mode,
		pos:         offset,
		indentStack: []int{0},
	}

	var lexErr error
	if mode == ModeBracket {
		lexErr = lx.runBracket()
	} else {
		lexErr = lx.runIndentation()
	}
	if lexErr != nil {
		return nil, cfg, mode, withSnippet(lexErr, b)
	}
	return lx.tokens, cfg, mode, nil
}

// detectMode skips insignificant prefix (whitespace and comments, per
// spec.md §4.3) to find the first data code point and checks it against
// the (already pragma-frozen) block_open delimiter.
func detectMode(b *buffer, cfg LexerConfig, offset int) DocumentMode {
	pos := offset
	for pos < b.len() {
		r := b.at(pos)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			pos++
		case r == cfg.LineComment:
			for pos < b.len() && b.at(pos) != '\n' {
				pos++
			}
		default:
			if r == cfg.BlockOpen {
				return ModeBracket
			}
			return ModeIndentation
		}
	}
	return ModeIndentation
}

// --- cursor primitives, grounded on pongo2's next/backup/peek/accept ---

func (lx *lexer) peekRune() rune { return lx.buf.at(lx.pos) }

func (lx *lexer) peekRuneAt(offset int) rune { return lx.buf.at(lx.pos + offset) }

func (lx *lexer) nextRune() rune {
	r := lx.buf.at(lx.pos)
	if r != -1 {
		lx.pos++
	}
	return r
}

func (lx *lexer) spanFrom(start int) Span {
	line, col := lx.buf.lineCol(start)
	length := lx.pos - start
	if length < 0 {
		length = 0
	}
	return Span{Line: line, Column: col, Offset: start, Length: length}
}

func (lx *lexer) emit(kind TokenKind, raw string, val interface{}, start int) {
	lx.tokens = append(lx.tokens, &Token{Kind: kind, Raw: raw, Val: val, Span: lx.spanFrom(start)})
}

func (lx *lexer) errorAt(kind ErrorKind, start, length int, msg string) error {
	line, col := lx.buf.lineCol(start)
	if length < 1 {
		length = 1
	}
	return &Error{Kind: kind, Message: msg, Span: Span{Line: line, Column: col, Offset: start, Length: length}}
}

// matchWord consumes the given ASCII word if it appears at the current
// position, leaving the cursor unchanged otherwise.
func (lx *lexer) matchWord(word string) bool {
	runes := []rune(word)
	if lx.pos+len(runes) > lx.buf.len() {
		return false
	}
	for i, w := range runes {
		if lx.buf.at(lx.pos+i) != w {
			return false
		}
	}
	lx.pos += len(runes)
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == '.' || r == '-'
}

// --- bracket mode (spec.md §4.3 "Bracket-mode token stream", §4.5) ---

func (lx *lexer) runBracket() error {
	for {
		lx.skipBracketInsignificant()
		r := lx.peekRune()
		if r == -1 {
			lx.emit(TokenEOF, "", nil, lx.pos)
			return nil
		}
		start := lx.pos
		switch {
		case r == lx.cfg.BlockOpen:
			lx.nextRune()
			lx.emit(TokenBlockOpen, string(r), nil, start)
		case r == lx.cfg.BlockClose:
			lx.nextRune()
			lx.emit(TokenBlockClose, string(r), nil, start)
		case r == lx.cfg.BracketItemSep:
			lx.nextRune()
			lx.emit(TokenItemSep, string(r), nil, start)
		case r == lx.cfg.KVSep:
			lx.nextRune()
			lx.emit(TokenKVSep, string(r), nil, start)
		case r == '"' || r == '\'':
			if err := lx.lexString(); err != nil {
				return err
			}
		case r == '`':
			if err := lx.lexBacktickKey(); err != nil {
				return err
			}
		case isIdentStart(r):
			lx.lexIdentifier()
		case isDigit(r) || r == '+' || r == '-':
			if err := lx.lexNumber(); err != nil {
				return err
			}
		default:
			return lx.errorAt(SyntaxError, start, 1, fmt.Sprintf("unexpected character %q", r))
		}
	}
}

func (lx *lexer) skipBracketInsignificant() {
	for {
		r := lx.peekRune()
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			lx.nextRune()
		case r == lx.cfg.LineComment:
			lx.skipLineComment()
		default:
			return
		}
	}
}

// --- indentation mode (spec.md §4.3 "Indentation-mode token stream") ---

func (lx *lexer) runIndentation() error {
	for lx.pos < lx.buf.len() {
		lineStart := lx.pos

		width, err := lx.measureIndent()
		if err != nil {
			return err
		}

		r := lx.peekRune()
		if r == -1 || r == '\n' || r == lx.cfg.LineComment {
			if r == lx.cfg.LineComment {
				lx.skipLineComment()
			}
			hadNL := false
			if lx.peekRune() == '\n' {
				lx.nextRune()
				hadNL = true
			}
			if lx.shouldEmitBlankSeparator() {
				lx.emit(TokenNewline, "", nil, lx.pos)
			}
			if !hadNL && lx.peekRune() == -1 {
				break
			}
			continue
		}

		if err := lx.applyIndent(width, lineStart); err != nil {
			return err
		}

		if err := lx.lexLineTokens(); err != nil {
			return err
		}

		lx.emit(TokenNewline, "", nil, lx.pos)
		if lx.peekRune() == '\n' {
			lx.nextRune()
		}
	}

	for len(lx.indentStack) > 1 {
		lx.indentStack = lx.indentStack[:len(lx.indentStack)-1]
		lx.emit(TokenDedent, "", nil, lx.pos)
	}
	lx.emit(TokenEOF, "", nil, lx.pos)
	return nil
}

// measureIndent consumes the leading space run of the current line and
// returns its width. Tabs in indentation position are a hard error per
// spec.md §4.3.
func (lx *lexer) measureIndent() (int, error) {
	start := lx.pos
	width := 0
	for {
		r := lx.peekRune()
		if r == ' ' {
			lx.nextRune()
			width++
			continue
		}
		if r == '\t' {
			return 0, lx.errorAt(IndentationError, start, lx.pos-start+1, "tab not allowed in indentation")
		}
		break
	}
	return width, nil
}

// applyIndent pushes or pops the indent stack to match width, per the
// state machine in spec.md §4.7.
func (lx *lexer) applyIndent(width, lineStart int) error {
	top := lx.indentStack[len(lx.indentStack)-1]
	switch {
	case width > top:
		delta := width - top
		if lx.baseUnit == 0 {
			lx.baseUnit = delta
		} else if delta%lx.baseUnit != 0 {
			return lx.errorAt(IndentationError, lineStart, width, "indent width is not a multiple of the base indent unit")
		}
		lx.indentStack = append(lx.indentStack, width)
		lx.emit(TokenIndent, "", width, lineStart)
	case width < top:
		for len(lx.indentStack) > 0 && lx.indentStack[len(lx.indentStack)-1] > width {
			lx.indentStack = lx.indentStack[:len(lx.indentStack)-1]
			lx.emit(TokenDedent, "", nil, lineStart)
		}
		if len(lx.indentStack) == 0 || lx.indentStack[len(lx.indentStack)-1] != width {
			return lx.errorAt(IndentationError, lineStart, width, "unindent does not match any outer indentation level")
		}
	}
	return nil
}

// shouldEmitBlankSeparator decides whether the blank/comment-only line
// just consumed produces a NEWLINE token. A blank line only matters to
// the parser when it separates two same-level items (the anonymous-map
// boundary inside a list, spec.md §4.4 bullet 3 / §8 scenario S3); blank
// lines leading the document, or sitting just before an INDENT or DEDENT,
// are structurally inert and emit nothing (spec.md §4.3).
func (lx *lexer) shouldEmitBlankSeparator() bool {
	if len(lx.tokens) == 0 {
		return false
	}
	top := lx.indentStack[len(lx.indentStack)-1]
	width, ok := lx.peekNextContentWidth()
	return ok && width == top
}

// peekNextContentWidth looks past any further blank/comment-only lines
// (without consuming lx.pos) to report the indent width of the next real
// content line, or false if none remains before EOF.
func (lx *lexer) peekNextContentWidth() (int, bool) {
	pos := lx.pos
	for pos < lx.buf.len() {
		width := 0
		for pos < lx.buf.len() && lx.buf.at(pos) == ' ' {
			pos++
			width++
		}
		r := lx.buf.at(pos)
		switch {
		case r == -1:
			return 0, false
		case r == '\n':
			pos++
			continue
		case r == lx.cfg.LineComment:
			for pos < lx.buf.len() && lx.buf.at(pos) != '\n' {
				pos++
			}
			continue
		default:
			return width, true
		}
	}
	return 0, false
}

func (lx *lexer) skipLineComment() {
	for {
		r := lx.peekRune()
		if r == -1 || r == '\n' {
			return
		}
		lx.nextRune()
	}
}

// lexLineTokens scans the data tokens of one logical line (which may,
// via a triple-quoted string, span several physical lines) up to but
// not including the terminating newline.
func (lx *lexer) lexLineTokens() error {
	for {
		r := lx.peekRune()
		switch {
		case r == ' ' || r == '\t':
			lx.nextRune()
			continue
		case r == -1 || r == '\n':
			return nil
		case r == lx.cfg.LineComment:
			lx.skipLineComment()
			continue
		}

		start := lx.pos
		switch {
		case r == lx.cfg.BlockOpen || r == lx.cfg.BlockClose:
			return lx.errorAt(ModeMismatchError, start, 1, "bracket syntax is not permitted in indentation mode")
		case r == lx.cfg.KVSep:
			lx.nextRune()
			lx.emit(TokenKVSep, string(r), nil, start)
		case r == '"' || r == '\'':
			if err := lx.lexString(); err != nil {
				return err
			}
		case r == '`':
			if err := lx.lexBacktickKey(); err != nil {
				return err
			}
		case isIdentStart(r):
			lx.lexIdentifier()
		case isDigit(r) || r == '+' || r == '-':
			if err := lx.lexNumber(); err != nil {
				return err
			}
		default:
			return lx.errorAt(SyntaxError, start, 1, fmt.Sprintf("unexpected character %q", r))
		}
	}
}

// --- shared literal decoders ---

func (lx *lexer) lexIdentifier() {
	start := lx.pos
	lx.nextRune()
	for isIdentCont(lx.peekRune()) {
		lx.nextRune()
	}
	word := string(lx.buf.runes[start:lx.pos])
	switch word {
	case "true":
		lx.emit(TokenBool, word, true, start)
	case "false":
		lx.emit(TokenBool, word, false, start)
	case "null":
		lx.emit(TokenNull, word, nil, start)
	case "nan":
		lx.emit(TokenFloat, word, math.NaN(), start)
	default:
		lx.emit(TokenIdent, word, word, start)
	}
}

func (lx *lexer) lexBacktickKey() error {
	start := lx.pos
	lx.nextRune() // opening backtick
	var sb strings.Builder
	for {
		r := lx.peekRune()
		switch {
		case r == -1:
			return lx.errorAt(SyntaxError, start, lx.pos-start, "unterminated backtick-quoted key")
		case r == '`':
			lx.nextRune()
			lx.emit(TokenIdent, string(lx.buf.runes[start:lx.pos]), sb.String(), start)
			return nil
		case r == '\\' && lx.peekRuneAt(1) == '`':
			lx.nextRune()
			lx.nextRune()
			sb.WriteRune('`')
		default:
			sb.WriteRune(lx.nextRune())
		}
	}
}

// lexString handles all four literal forms from spec.md §4.3: basic
// "...", literal '...', and their triple-quoted multiline variants.
// Escape processing only applies to the basic (double-quoted) forms.
func (lx *lexer) lexString() error {
	start := lx.pos
	quote := lx.nextRune()
	basic := quote == '"'

	triple := false
	if lx.peekRune() == quote && lx.peekRuneAt(1) == quote {
		lx.nextRune()
		lx.nextRune()
		triple = true
	}

	if triple && lx.peekRune() == '\n' {
		lx.nextRune()
	}

	var sb strings.Builder
	for {
		r := lx.peekRune()
		switch {
		case r == -1:
			return lx.errorAt(SyntaxError, start, lx.pos-start, "unterminated string literal")
		case r == quote:
			if triple {
				if lx.peekRuneAt(1) == quote && lx.peekRuneAt(2) == quote {
					lx.nextRune()
					lx.nextRune()
					lx.nextRune()
					lx.emit(TokenString, string(lx.buf.runes[start:lx.pos]), sb.String(), start)
					return nil
				}
				sb.WriteRune(lx.nextRune())
				continue
			}
			lx.nextRune()
			lx.emit(TokenString, string(lx.buf.runes[start:lx.pos]), sb.String(), start)
			return nil
		case !triple && r == '\n':
			return lx.errorAt(SyntaxError, start, lx.pos-start, "newline in string literal not allowed")
		case basic && r == '\\':
			lx.nextRune()
			esc, err := lx.decodeEscape(start)
			if err != nil {
				return err
			}
			sb.WriteString(esc)
		default:
			sb.WriteRune(lx.nextRune())
		}
	}
}

func (lx *lexer) decodeEscape(tokStart int) (string, error) {
	r := lx.nextRune()
	switch r {
	case '"':
		return "\"", nil
	case '\\':
		return "\\", nil
	case 'b':
		return "\b", nil
	case 'f':
		return "\f", nil
	case 'n':
		return "\n", nil
	case 'r':
		return "\r", nil
	case 't':
		return "\t", nil
	case 'u':
		return lx.decodeUnicodeEscape(tokStart, 4)
	case 'U':
		return lx.decodeUnicodeEscape(tokStart, 8)
	default:
		return "", lx.errorAt(SyntaxError, tokStart, lx.pos-tokStart, fmt.Sprintf("invalid escape sequence: \\%c", r))
	}
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (lx *lexer) decodeUnicodeEscape(tokStart, n int) (string, error) {
	digits := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		r := lx.nextRune()
		if !isHexDigit(r) {
			return "", lx.errorAt(SyntaxError, tokStart, lx.pos-tokStart, "invalid unicode escape")
		}
		digits = append(digits, r)
	}
	v, err := strconv.ParseInt(string(digits), 16, 32)
	if err != nil {
		return "", lx.errorAt(SyntaxError, tokStart, lx.pos-tokStart, "invalid unicode escape")
	}
	return string(rune(v)), nil
}

// --- numbers (spec.md §4.3) ---

func numberToken(n *big.Int) interface{} {
	if n.IsInt64() {
		return n.Int64()
	}
	return n
}

func (lx *lexer) lexNumber() error {
	start := lx.pos
	neg := false
	if r := lx.peekRune(); r == '+' || r == '-' {
		lx.nextRune()
		neg = r == '-'
	}

	if lx.matchWord("inf") {
		if isIdentCont(lx.peekRune()) {
			return lx.errorAt(NumberError, start, lx.pos-start+1, "malformed number literal")
		}
		f := math.Inf(1)
		if neg {
			f = math.Inf(-1)
		}
		lx.emit(TokenFloat, string(lx.buf.runes[start:lx.pos]), f, start)
		return nil
	}

	if lx.peekRune() == '0' {
		switch lx.peekRuneAt(1) {
		case 'x', 'X':
			return lx.lexRadixInt(start, neg, 16, "0123456789abcdefABCDEF")
		case 'o', 'O':
			return lx.lexRadixInt(start, neg, 8, "01234567")
		case 'b', 'B':
			return lx.lexRadixInt(start, neg, 2, "01")
		}
	}

	return lx.lexDecimalOrFloat(start, neg)
}

func (lx *lexer) lexRadixInt(start int, neg bool, base int, digitSet string) error {
	lx.nextRune() // '0'
	lx.nextRune() // x/o/b
	digits, err := lx.consumeDigitRun(digitSet, start)
	if err != nil {
		return err
	}
	if digits == "" {
		return lx.errorAt(NumberError, start, lx.pos-start, "malformed number literal: expected digits")
	}
	if isIdentCont(lx.peekRune()) {
		return lx.errorAt(NumberError, start, lx.pos-start+1, "malformed number literal")
	}
	raw := string(lx.buf.runes[start:lx.pos])
	n := new(big.Int)
	if _, ok := n.SetString(digits, base); !ok {
		return lx.errorAt(NumberError, start, lx.pos-start, "malformed number literal")
	}
	if neg {
		n.Neg(n)
	}
	lx.emit(TokenInt, raw, numberToken(n), start)
	return nil
}

func (lx *lexer) lexDecimalOrFloat(start int, neg bool) error {
	intPart, err := lx.consumeDecimalIntPart(start)
	if err != nil {
		return err
	}

	isFloat := false
	var fracPart, expPart string

	if lx.peekRune() == '.' && isDigit(lx.peekRuneAt(1)) {
		lx.nextRune()
		fracPart, err = lx.consumeDigitRun("0123456789", start)
		if err != nil {
			return err
		}
		isFloat = true
	}

	if r := lx.peekRune(); r == 'e' || r == 'E' {
		save := lx.pos
		lx.nextRune()
		sign := ""
		if r2 := lx.peekRune(); r2 == '+' || r2 == '-' {
			sign = string(r2)
			lx.nextRune()
		}
		if isDigit(lx.peekRune()) {
			digits, err := lx.consumeDigitRun("0123456789", start)
			if err != nil {
				return err
			}
			expPart = sign + digits
			isFloat = true
		} else {
			lx.pos = save
		}
	}

	if isIdentCont(lx.peekRune()) {
		return lx.errorAt(NumberError, start, lx.pos-start+1, "malformed number literal")
	}

	raw := string(lx.buf.runes[start:lx.pos])

	if isFloat {
		text := intPart
		if fracPart != "" {
			text += "." + fracPart
		}
		if expPart != "" {
			text += "e" + expPart
		}
		if neg {
			text = "-" + text
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return lx.errorAt(NumberError, start, lx.pos-start, "malformed number literal")
		}
		lx.emit(TokenFloat, raw, f, start)
		return nil
	}

	n := new(big.Int)
	if _, ok := n.SetString(intPart, 10); !ok {
		return lx.errorAt(NumberError, start, lx.pos-start, "malformed number literal")
	}
	if neg {
		n.Neg(n)
	}
	lx.emit(TokenInt, raw, numberToken(n), start)
	return nil
}

func (lx *lexer) consumeDecimalIntPart(start int) (string, error) {
	r := lx.peekRune()
	if r == '0' {
		lx.nextRune()
		if isDigit(lx.peekRune()) {
			return "", lx.errorAt(NumberError, start, lx.pos-start+1, "malformed number literal: leading zero")
		}
		return "0", nil
	}
	if !isDigit(r) {
		return "", lx.errorAt(NumberError, start, 1, "malformed number literal")
	}
	return lx.consumeDigitRun("0123456789", start)
}

// consumeDigitRun consumes a run of characters from allowed, permitting
// single separating underscores that are never leading, trailing, or
// adjacent (spec.md §4.3).
func (lx *lexer) consumeDigitRun(allowed string, tokenStart int) (string, error) {
	var sb strings.Builder
	any := false
	lastWasUnderscore := false
	for {
		r := lx.peekRune()
		if strings.ContainsRune(allowed, r) {
			lx.nextRune()
			sb.WriteRune(r)
			any = true
			lastWasUnderscore = false
			continue
		}
		if r == '_' {
			if !any || lastWasUnderscore {
				return "", lx.errorAt(NumberError, tokenStart, lx.pos-tokenStart+1, "malformed number literal: misplaced underscore")
			}
			lx.nextRune()
			lastWasUnderscore = true
			continue
		}
		break
	}
	if lastWasUnderscore {
		return "", lx.errorAt(NumberError, tokenStart, lx.pos-tokenStart, "malformed number literal: trailing underscore")
	}
	return sb.String(), nil
}
