package flexconf

import (
	"fmt"
	"math/big"
)

// Parser is a token-cursor recursive-descent parser, kept close to
// pongo2/parser.go's shape: a peekable cursor with Current/PeekType/
// PeekTypeN/Match/Consume and at most a couple tokens of look-ahead, no
// backtracking.
// This file carries the Indentation-mode grammar (spec.md §4.4);
// parser_bracket.go carries the Bracket-mode grammar over the same
// cursor type.
type Parser struct {
	tokens []*Token
	idx    int
}

func newParser(tokens []*Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) Current() *Token {
	return p.Get(p.idx)
}

func (p *Parser) Get(i int) *Token {
	if i < 0 {
		i = 0
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF sentinel, always the last token
	}
	return p.tokens[i]
}

func (p *Parser) PeekType() TokenKind { return p.Current().Kind }

func (p *Parser) PeekTypeN(shift int) TokenKind { return p.Get(p.idx + shift).Kind }

func (p *Parser) Consume() *Token {
	t := p.Current()
	if p.idx < len(p.tokens)-1 {
		p.idx++
	}
	return t
}

func (p *Parser) Match(kind TokenKind) (*Token, bool) {
	if p.PeekType() == kind {
		return p.Consume(), true
	}
	return nil, false
}

func (p *Parser) Expect(kind TokenKind) (*Token, error) {
	if t, ok := p.Match(kind); ok {
		return t, nil
	}
	return nil, p.errorHere(SyntaxError, fmt.Sprintf("expected %s, found %s", kind, p.PeekType()))
}

func (p *Parser) errorHere(kind ErrorKind, msg string) error {
	return &Error{Kind: kind, Message: msg, Span: p.Current().Span}
}

func (p *Parser) atKeyedEntry() bool {
	return p.PeekType() == TokenIdent && p.PeekTypeN(1) == TokenKVSep
}

func (p *Parser) atBlockEnd() bool {
	k := p.PeekType()
	return k == TokenDedent || k == TokenEOF
}

// parseIndentationDocument parses the whole token stream produced in
// Indentation mode (spec.md §4.4) and confirms nothing but EOF remains.
func parseIndentationDocument(tokens []*Token) (Value, error) {
	p := newParser(tokens)
	val, err := p.parseIndentBlock()
	if err != nil {
		return Value{}, err
	}
	if p.PeekType() != TokenEOF {
		return Value{}, p.errorHere(SyntaxError, "unexpected trailing content")
	}
	return val, nil
}

// parseIndentBlock parses one block's worth of entries up to (not
// including) the DEDENT/EOF that closes it, deciding its shape from the
// first entry (spec.md §4.4 bullet 1):
//
//   - Keyed, if the first entry looks like "key KV_SEP ...". A keyed
//     block may itself contain several blank-line-separated segments; a
//     single segment yields a Map, multiple segments yield a Seq of Maps
//     (spec.md §4.4 bullet 3 / §8 scenario S3 — see DESIGN.md Open
//     Question 5 for exactly how the boundary is detected).
//   - Positional otherwise: a flat Seq of scalar values.
func (p *Parser) parseIndentBlock() (Value, error) {
	if p.atBlockEnd() {
		return MapOf(NewMap()), nil
	}

	if p.atKeyedEntry() {
		var segments []*Map
		for {
			m, err := p.parseKeyedSegment()
			if err != nil {
				return Value{}, err
			}
			segments = append(segments, m)
			if !p.consumeSegmentBoundary() {
				break
			}
		}
		if len(segments) == 1 {
			return MapOf(segments[0]), nil
		}
		items := make([]Value, len(segments))
		for i, m := range segments {
			items[i] = MapOf(m)
		}
		return SeqOf(items), nil
	}

	items, err := p.parsePositionalItems()
	if err != nil {
		return Value{}, err
	}
	return SeqOf(items), nil
}

// parseKeyedSegment parses a maximal run of "key KV_SEP value" entries
// at the current level, stopping at a segment-boundary NEWLINE, a
// DEDENT/EOF, or a non-keyed token (which is a mixed-shape error per
// spec.md §4.4 bullet 4).
func (p *Parser) parseKeyedSegment() (*Map, error) {
	m := NewMap()
	for {
		if !p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "expected a keyed entry")
		}
		keyTok := p.Consume()
		p.Consume() // KV_SEP

		val, err := p.parseIndentValue()
		if err != nil {
			return nil, err
		}

		key := keyTok.Val.(string)
		if !m.Set(key, val) {
			return nil, &Error{Kind: KeyError, Message: "duplicate key: " + key, Span: keyTok.Span}
		}

		if p.PeekType() == TokenNewline || p.atBlockEnd() {
			return m, nil
		}
		if !p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "mixing an anonymous-map element with a keyed entry at the same indent level")
		}
	}
}

// parseIndentValue parses the value half of a "key KV_SEP value" entry
// and consumes through its own line terminator: either the inline
// NEWLINE following a scalar, or the NEWLINE INDENT <block> DEDENT
// sequence introducing a nested container (spec.md §4.4 bullet 2).
func (p *Parser) parseIndentValue() (Value, error) {
	if p.PeekType() == TokenNewline {
		p.Consume()
		if _, err := p.Expect(TokenIndent); err != nil {
			return Value{}, p.errorHere(SyntaxError, "expected an indented block")
		}
		val, err := p.parseIndentBlock()
		if err != nil {
			return Value{}, err
		}
		if _, err := p.Expect(TokenDedent); err != nil {
			return Value{}, err
		}
		return val, nil
	}

	val, err := p.parseScalarValue()
	if err != nil {
		return Value{}, err
	}
	if _, err := p.Expect(TokenNewline); err != nil {
		return Value{}, err
	}
	return val, nil
}

// parsePositionalItems parses a flat run of scalar lines (spec.md §4.4
// bullet 3's scalar-element case). Blank-line separators between scalar
// items are absorbed without semantic effect.
func (p *Parser) parsePositionalItems() ([]Value, error) {
	var items []Value
	for {
		if p.atBlockEnd() {
			break
		}
		if p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "mixing a keyed entry into a positional list")
		}

		val, err := p.parseScalarValue()
		if err != nil {
			return nil, err
		}
		items = append(items, val)

		if _, err := p.Expect(TokenNewline); err != nil {
			return nil, err
		}
		for p.PeekType() == TokenNewline {
			p.Consume()
		}
		if p.atBlockEnd() {
			break
		}
	}
	return items, nil
}

// consumeSegmentBoundary consumes a run of one or more consecutive
// NEWLINE tokens (the blank-line marker left by the lexer) and reports
// whether another segment follows.
func (p *Parser) consumeSegmentBoundary() bool {
	consumed := false
	for p.PeekType() == TokenNewline {
		p.Consume()
		consumed = true
	}
	return consumed && !p.atBlockEnd()
}

func (p *Parser) parseScalarValue() (Value, error) {
	t := p.Current()
	switch t.Kind {
	case TokenString:
		p.Consume()
		return Str(t.Val.(string)), nil
	case TokenInt:
		p.Consume()
		return intValueFromToken(t), nil
	case TokenFloat:
		p.Consume()
		return Float(t.Val.(float64)), nil
	case TokenBool:
		p.Consume()
		return Bool(t.Val.(bool)), nil
	case TokenNull:
		p.Consume()
		return Null(), nil
	default:
		return Value{}, p.errorHere(SyntaxError, fmt.Sprintf("unexpected token %s", t.Kind))
	}
}

func intValueFromToken(t *Token) Value {
	switch n := t.Val.(type) {
	case int64:
		return Int(n)
	case *big.Int:
		return BigInt(n)
	default:
		return Int(0)
	}
}
