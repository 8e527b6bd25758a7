package flexconf

import "io"

// Version identifies this implementation of the FlexConf grammar.
const Version = "v1"

// ParseText runs the full five-stage pipeline (spec.md §2) over data:
// Source Buffer, Pragma Preprocessor, Lexer, Parser, Container Builder.
func ParseText(data []byte) (Value, error) {
	b, err := newBuffer(data)
	if err != nil {
		return Value{}, err
	}

	tokens, _, mode, err := lexDocument(b)
	if err != nil {
		return Value{}, err
	}

	var val Value
	if mode == ModeBracket {
		val, err = parseBracketDocument(tokens)
	} else {
		val, err = parseIndentationDocument(tokens)
	}
	if err != nil {
		return Value{}, withSnippet(err, b)
	}
	return val, nil
}

// ParseStream reads r to completion and parses the result, mirroring
// pongo2/template_loader.go's read-then-parse pattern.
func ParseStream(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, &Error{Kind: EncodingError, Message: "failed to read input", OrigError: err}
	}
	return ParseText(data)
}

// Must panics if err is non-nil, for callers (tests, init-time config
// loading) that already know the input is well-formed. Mirrors
// pongo2.Must.
func Must(v Value, err error) Value {
	if err != nil {
		panic(err)
	}
	return v
}
