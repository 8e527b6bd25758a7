package flexconf

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []*Token {
	t.Helper()
	b := mustBuffer(t, src)
	tokens, _, _, err := lexDocument(b)
	require.NoError(t, err)
	return tokens
}

func kinds(tokens []*Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestDetectModeIndentation(t *testing.T) {
	b := mustBuffer(t, "a: 1\n")
	cfg := DefaultLexerConfig()
	assert.Equal(t, ModeIndentation, detectMode(b, cfg, 0))
}

func TestDetectModeBracket(t *testing.T) {
	b := mustBuffer(t, "  \n# a leading comment\n{ a: 1 }\n")
	cfg := DefaultLexerConfig()
	assert.Equal(t, ModeBracket, detectMode(b, cfg, 0))
}

func TestIndentationSimpleMap(t *testing.T) {
	tokens := lexAll(t, "server:\n    host: 1\n")
	got := kinds(tokens)
	want := []TokenKind{
		TokenIdent, TokenKVSep, TokenNewline,
		TokenIndent,
		TokenIdent, TokenKVSep, TokenInt, TokenNewline,
		TokenDedent, TokenEOF,
	}
	assert.Equal(t, want, got)
}

func TestIndentationTabRejected(t *testing.T) {
	b := mustBuffer(t, "a:\n\thost: 1\n")
	_, _, _, err := lexDocument(b)
	require.Error(t, err)
	assert.Equal(t, IndentationError, err.(*Error).Kind)
}

func TestIndentationNonMultipleOfBaseUnit(t *testing.T) {
	src := "a:\n    x: 1\nb:\n  y: 2\n"
	b := mustBuffer(t, src)
	_, _, _, err := lexDocument(b)
	require.Error(t, err)
	assert.Equal(t, IndentationError, err.(*Error).Kind)
}

func TestIndentationUnindentMustMatchOuterLevel(t *testing.T) {
	src := "a:\n        x: 1\n    y: 2\n"
	b := mustBuffer(t, src)
	_, _, _, err := lexDocument(b)
	require.Error(t, err)
	assert.Equal(t, IndentationError, err.(*Error).Kind)
}

func TestBlankLineSeparatesSameLevelSegments(t *testing.T) {
	src := "protocols:\n    name: \"http\"\n    port: 8080\n\n    name: \"https\"\n    port: 443\n"
	tokens := lexAll(t, src)

	newlineRun := 0
	maxRun := 0
	for _, tok := range tokens {
		if tok.Kind == TokenNewline {
			newlineRun++
			if newlineRun > maxRun {
				maxRun = newlineRun
			}
		} else {
			newlineRun = 0
		}
	}
	assert.Equal(t, 2, maxRun, "the blank line between segments must surface as two consecutive NEWLINEs")
}

func TestLeadingBlankLinesEmitNothing(t *testing.T) {
	tokens := lexAll(t, "\n\na: 1\n")
	assert.Equal(t, TokenIdent, tokens[0].Kind)
}

func TestBlankLineBeforeDedentEmitsNothing(t *testing.T) {
	src := "a:\n    x: 1\n\nb: 2\n"
	tokens := lexAll(t, src)
	got := kinds(tokens)
	want := []TokenKind{
		TokenIdent, TokenKVSep, TokenNewline,
		TokenIndent,
		TokenIdent, TokenKVSep, TokenInt, TokenNewline,
		TokenDedent,
		TokenIdent, TokenKVSep, TokenInt, TokenNewline,
		TokenEOF,
	}
	assert.Equal(t, want, got)
}

func TestBracketModeTokens(t *testing.T) {
	tokens := lexAll(t, "{ a: 1, b: 2 }")
	got := kinds(tokens)
	want := []TokenKind{
		TokenBlockOpen,
		TokenIdent, TokenKVSep, TokenInt, TokenItemSep,
		TokenIdent, TokenKVSep, TokenInt,
		TokenBlockClose, TokenEOF,
	}
	assert.Equal(t, want, got)
}

func TestBracketModeRejectsBlockOpenInsideIndentation(t *testing.T) {
	b := mustBuffer(t, "a: 1\n{b: 2}\n")
	_, _, _, err := lexDocument(b)
	require.Error(t, err)
	assert.Equal(t, ModeMismatchError, err.(*Error).Kind)
}

func TestStringLiteralForms(t *testing.T) {
	tokens := lexAll(t, "a: \"line\\nbreak\"\nb: 'literal\\n'\nc: \"\"\"\nmulti\nline\"\"\"\nd: '''raw\\n'''\n")

	var strs []string
	for _, tok := range tokens {
		if tok.Kind == TokenString {
			strs = append(strs, tok.Val.(string))
		}
	}
	require.Len(t, strs, 4)
	assert.Equal(t, "line\nbreak", strs[0], "basic strings decode escapes")
	assert.Equal(t, "literal\\n", strs[1], "literal strings are verbatim")
	assert.Equal(t, "multi\nline", strs[2], "the newline right after the opening triple-quote is discarded")
	assert.Equal(t, "raw\\n", strs[3], "triple literal strings are also verbatim")
}

func TestUnicodeEscapes(t *testing.T) {
	tokens := lexAll(t, "a: \"\\u00e9\\U0001F600\"\n")
	str := tokens[2].Val.(string)
	assert.Equal(t, "é\U0001F600", str)
}

func TestBacktickKey(t *testing.T) {
	tokens := lexAll(t, "`weird key`: 1\n")
	assert.Equal(t, "weird key", tokens[0].Val.(string))
}

func TestNumberDecimalInt(t *testing.T) {
	tokens := lexAll(t, "a: 42\n")
	assert.Equal(t, int64(42), tokens[2].Val.(int64))
}

func TestNumberRejectsLeadingZero(t *testing.T) {
	b := mustBuffer(t, "a: 007\n")
	_, _, _, err := lexDocument(b)
	require.Error(t, err)
	assert.Equal(t, NumberError, err.(*Error).Kind)
}

func TestNumberFloatRequiresFractionOrExponent(t *testing.T) {
	tokens := lexAll(t, "a: 1.5\nb: 2e10\nc: 3.0e-2\n")
	assert.Equal(t, 1.5, tokens[2].Val.(float64))
	assert.Equal(t, 2e10, tokens[6].Val.(float64))
	assert.Equal(t, 3.0e-2, tokens[10].Val.(float64))
}

func TestNumberHexOctalBinary(t *testing.T) {
	tokens := lexAll(t, "a: 0xFF\nb: 0o17\nc: 0b101\n")
	assert.Equal(t, int64(255), tokens[2].Val.(int64))
	assert.Equal(t, int64(15), tokens[6].Val.(int64))
	assert.Equal(t, int64(5), tokens[10].Val.(int64))
}

func TestNumberUnderscoreSeparators(t *testing.T) {
	tokens := lexAll(t, "a: 1_000_000\n")
	assert.Equal(t, int64(1000000), tokens[2].Val.(int64))
}

func TestNumberRejectsMisplacedUnderscore(t *testing.T) {
	for _, src := range []string{"a: 1_\n", "a: 1__0\n", "a: 0x_1\n"} {
		b := mustBuffer(t, src)
		_, _, _, err := lexDocument(b)
		require.Error(t, err, "expected an error for %q", src)
		assert.Equal(t, NumberError, err.(*Error).Kind)
	}
}

func TestNumberSpecialFloats(t *testing.T) {
	tokens := lexAll(t, "a: +inf\nb: -inf\nc: nan\n")
	assert.True(t, math.IsInf(tokens[2].Val.(float64), 1))
	assert.True(t, math.IsInf(tokens[6].Val.(float64), -1))
	assert.True(t, math.IsNaN(tokens[10].Val.(float64)))
}

func TestNumberOverflowPromotesToBigInt(t *testing.T) {
	tokens := lexAll(t, "a: 99999999999999999999999999999999\n")
	n, ok := tokens[2].Val.(*big.Int)
	require.True(t, ok, "an out-of-int64-range literal must promote to *big.Int")
	assert.Equal(t, "99999999999999999999999999999999", n.String())
}

func TestBooleanAndNullKeywords(t *testing.T) {
	tokens := lexAll(t, "a: true\nb: false\nc: null\n")
	assert.Equal(t, true, tokens[2].Val)
	assert.Equal(t, false, tokens[6].Val)
	assert.Equal(t, TokenNull, tokens[10].Kind)
}
