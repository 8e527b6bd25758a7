package flexconf

// This file carries the Bracket-mode grammar (spec.md §4.5) over the
// same Parser cursor defined in parser.go, the way pongo2/parser.go
// reuses one Parser for both {{ }} and {% %} token regions.

func parseBracketDocument(tokens []*Token) (Value, error) {
	p := newParser(tokens)
	val, err := p.parseBracketValue()
	if err != nil {
		return Value{}, err
	}
	if p.PeekType() != TokenEOF {
		return Value{}, p.errorHere(SyntaxError, "unexpected trailing content")
	}
	return val, nil
}

func (p *Parser) parseBracketValue() (Value, error) {
	if p.PeekType() == TokenBlockOpen {
		return p.parseBracketBlock()
	}
	return p.parseScalarValue()
}

// parseBracketBlock decides Keyed vs Positional shape from two tokens of
// look-ahead past the opening brace: an identifier followed by KV_SEP
// means Keyed (spec.md §4.5).
func (p *Parser) parseBracketBlock() (Value, error) {
	if _, err := p.Expect(TokenBlockOpen); err != nil {
		return Value{}, err
	}

	if p.PeekType() == TokenBlockClose {
		p.Consume()
		return MapOf(NewMap()), nil
	}

	if p.atKeyedEntry() {
		m, err := p.parseBracketKeyedEntries()
		if err != nil {
			return Value{}, err
		}
		if _, err := p.expectBlockClose(); err != nil {
			return Value{}, err
		}
		return MapOf(m), nil
	}

	items, err := p.parseBracketPositionalItems()
	if err != nil {
		return Value{}, err
	}
	if _, err := p.expectBlockClose(); err != nil {
		return Value{}, err
	}
	return SeqOf(items), nil
}

func (p *Parser) expectBlockClose() (*Token, error) {
	if p.PeekType() == TokenEOF {
		return nil, p.errorHere(SyntaxError, "unmatched brace: expected '}'")
	}
	return p.Expect(TokenBlockClose)
}

func (p *Parser) parseBracketKeyedEntries() (*Map, error) {
	m := NewMap()
	for {
		if !p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "expected a keyed entry")
		}
		keyTok := p.Consume()
		p.Consume() // KV_SEP

		val, err := p.parseBracketValue()
		if err != nil {
			return nil, err
		}

		key := keyTok.Val.(string)
		if !m.Set(key, val) {
			return nil, &Error{Kind: KeyError, Message: "duplicate key: " + key, Span: keyTok.Span}
		}

		if p.PeekType() != TokenItemSep {
			return m, nil
		}
		p.Consume()
		if p.PeekType() == TokenBlockClose {
			return m, nil // trailing separator permitted
		}
		if !p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "mixing a positional element into a keyed block")
		}
	}
}

func (p *Parser) parseBracketPositionalItems() ([]Value, error) {
	var items []Value
	for {
		if p.atKeyedEntry() {
			return nil, p.errorHere(SyntaxError, "mixing a keyed entry into a positional block")
		}
		val, err := p.parseBracketValue()
		if err != nil {
			return nil, err
		}
		items = append(items, val)

		if p.PeekType() != TokenItemSep {
			return items, nil
		}
		p.Consume()
		if p.PeekType() == TokenBlockClose {
			return items, nil // trailing separator permitted
		}
	}
}
