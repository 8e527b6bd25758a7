package flexconf

import "strings"

// LexerConfig holds the delimiter/separator set a document is lexed with
// (spec.md §3, §4.2). It is mutable only while the Pragma Preprocessor
// runs; ParseText freezes it before the first data token is produced.
type LexerConfig struct {
	BlockOpen      rune
	BlockClose     rune
	KVSep          rune
	BracketItemSep rune
	LineComment    rune
	PragmaPrefix   string
}

// DefaultLexerConfig returns the configuration every document starts
// with, per spec.md §3's enumerated defaults.
func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		BlockOpen:      '{',
		BlockClose:     '}',
		KVSep:          ':',
		BracketItemSep: ',',
		LineComment:    '#',
		PragmaPrefix:   "#?>",
	}
}

// reservedDelimiters lists code points a pragma-assigned delimiter must
// never collide with: the comment marker, both quote kinds, and the
// backtick used for quoted keys (spec.md §4.2).
const reservedDelimiters = "#\"'`\\"

// preprocessPragmas scans the leading comment/blank-line prefix of src for
// `#?>` directives and returns the resulting LexerConfig plus the rune
// offset where pragma scanning stopped (the first non-comment,
// non-blank line). Grounded on pongo2's directive-dispatch style in
// parser.go's WrapUntilTag: a small table of recognized verbs, each one
// mutating shared state, rather than a general-purpose grammar.
func preprocessPragmas(b *buffer) (LexerConfig, int, error) {
	cfg := DefaultLexerConfig()
	offset := 0

	for offset < b.len() {
		lineStart := offset
		lineEnd := offset
		for lineEnd < b.len() && b.at(lineEnd) != '\n' {
			lineEnd++
		}
		line := string(b.runes[lineStart:lineEnd])
		trimmed := strings.TrimSpace(line)

		advance := func() {
			offset = lineEnd
			if offset < b.len() {
				offset++ // consume the newline
			}
		}

		switch {
		case trimmed == "":
			advance()
			continue
		case strings.HasPrefix(trimmed, cfg.PragmaPrefix):
			directive := strings.TrimSpace(strings.TrimPrefix(trimmed, cfg.PragmaPrefix))
			if err := applyPragma(&cfg, directive, lineNumberAt(b, lineStart)); err != nil {
				return cfg, offset, err
			}
			advance()
			continue
		case strings.HasPrefix(trimmed, string(cfg.LineComment)):
			advance()
			continue
		default:
			return cfg, offset, nil
		}
	}

	return cfg, offset, nil
}

func lineNumberAt(b *buffer, runeOffset int) int {
	line, _ := b.lineCol(runeOffset)
	return line
}

// applyPragma dispatches one already-unwrapped directive body (the text
// after "#?>") to the recognized verb table (spec.md §4.2).
func applyPragma(cfg *LexerConfig, directive string, line int) error {
	verb, args, err := splitPragma(directive, line)
	if err != nil {
		return err
	}

	switch verb {
	case "SET":
		if len(args) < 1 {
			return pragmaErr(line, "SET requires a target name")
		}
		return applySetPragma(cfg, args[0], args[1:], line)
	default:
		return pragmaErr(line, "unknown pragma directive: "+verb)
	}
}

func applySetPragma(cfg *LexerConfig, target string, args []string, line int) error {
	switch target {
	case "BLOCKIDENTIFIER", "BLOCKIDENTIFER": // spec.md's own worked example (§8 S6) misspells this
		if len(args) != 2 {
			return pragmaErr(line, "SET BLOCKIDENTIFIER requires two arguments")
		}
		open, err := singleRuneArg(args[0], line)
		if err != nil {
			return err
		}
		close, err := singleRuneArg(args[1], line)
		if err != nil {
			return err
		}
		if err := checkDelimiterCollision(*cfg, open, line); err != nil {
			return err
		}
		if err := checkDelimiterCollision(*cfg, close, line); err != nil {
			return err
		}
		cfg.BlockOpen = open
		cfg.BlockClose = close
		return nil
	case "KVSEP":
		if len(args) != 1 {
			return pragmaErr(line, "SET KVSEP requires one argument")
		}
		c, err := singleRuneArg(args[0], line)
		if err != nil {
			return err
		}
		if err := checkDelimiterCollision(*cfg, c, line); err != nil {
			return err
		}
		cfg.KVSep = c
		return nil
	case "SPLITER": // spec.md's own spelling, kept verbatim (§4.2 note)
		if len(args) != 1 {
			return pragmaErr(line, "SET SPLITER requires one argument")
		}
		c, err := singleRuneArg(args[0], line)
		if err != nil {
			return err
		}
		if err := checkDelimiterCollision(*cfg, c, line); err != nil {
			return err
		}
		cfg.BracketItemSep = c
		return nil
	default:
		return pragmaErr(line, "unknown SET target: "+target)
	}
}

// splitPragma tokenizes "<VERB> <TARGET> <ARG>(\s+<ARG>)*": the field
// right after the verb may be a bare target name (SET's BLOCKIDENTIFIER,
// KVSEP, SPLITER) and is passed through as args[0]; every other ARG is a
// single-quoted single-character literal, per spec.md §6's pragma
// grammar.
func splitPragma(directive string, line int) (verb string, args []string, err error) {
	fields := splitPragmaFields(directive)
	if len(fields) == 0 {
		return "", nil, pragmaErr(line, "empty pragma")
	}
	verb = fields[0]
	for i, f := range fields[1:] {
		if i == 0 && f[0] != '\'' {
			args = append(args, f) // bare target name
			continue
		}
		if len(f) < 2 || f[0] != '\'' || f[len(f)-1] != '\'' {
			return "", nil, pragmaErr(line, "pragma arguments must be single-quoted: "+f)
		}
		args = append(args, f[1:len(f)-1])
	}
	return verb, args, nil
}

func splitPragmaFields(s string) []string {
	return strings.Fields(s)
}

func singleRuneArg(s string, line int) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, pragmaErr(line, "delimiter must be a single code point: '"+s+"'")
	}
	return runes[0], nil
}

func checkDelimiterCollision(cfg LexerConfig, c rune, line int) error {
	if strings.ContainsRune(reservedDelimiters, c) {
		return pragmaErr(line, "delimiter collides with a reserved character: "+string(c))
	}
	return nil
}

func pragmaErr(line int, msg string) error {
	return &Error{Kind: PragmaError, Message: msg, Span: Span{Line: line, Column: 1, Length: 1}}
}
