package flexconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBracket(t *testing.T, src string) Value {
	t.Helper()
	b := mustBuffer(t, src)
	tokens, _, mode, err := lexDocument(b)
	require.NoError(t, err)
	require.Equal(t, ModeBracket, mode)
	val, err := parseBracketDocument(tokens)
	require.NoError(t, err)
	return val
}

func TestParseBracketEmptyBlockIsEmptyMap(t *testing.T) {
	v := parseBracket(t, "{}")
	require.True(t, v.IsMap())
	assert.Equal(t, 0, v.Map().Len())
}

func TestParseBracketKeyedBlock(t *testing.T) {
	v := parseBracket(t, "{ a: 1, b: 2 }")
	assert.Equal(t, []string{"a", "b"}, v.Map().Keys())
}

func TestParseBracketTrailingSeparatorPermitted(t *testing.T) {
	v := parseBracket(t, "{ a: 1, b: 2, }")
	assert.Equal(t, []string{"a", "b"}, v.Map().Keys())
}

func TestParseBracketPositionalBlock(t *testing.T) {
	v := parseBracket(t, `{ "a", "b", "c" }`)
	require.True(t, v.IsSeq())
	require.Len(t, v.Seq(), 3)
}

func TestParseBracketListOfMaps(t *testing.T) {
	// spec.md §8 scenario S2.
	v := parseBracket(t, `{ protocols: { { name: "http", port: 8080 }, { name: "https", port: 443 } } }`)
	protocols, ok := v.Map().Get("protocols")
	require.True(t, ok)
	require.True(t, protocols.IsSeq())
	require.Len(t, protocols.Seq(), 2)

	first := protocols.Seq()[0].Map()
	name, _ := first.Get("name")
	assert.Equal(t, "http", name.Str())
}

func TestParseBracketDuplicateKey(t *testing.T) {
	// spec.md §8 scenario S5.
	b := mustBuffer(t, "{a: 1, a: 2}")
	tokens, _, _, err := lexDocument(b)
	require.NoError(t, err)
	_, err = parseBracketDocument(tokens)
	require.Error(t, err)
	assert.Equal(t, KeyError, err.(*Error).Kind)
}

func TestParseBracketMixedShapeErrors(t *testing.T) {
	b := mustBuffer(t, `{ "a", b: 2 }`)
	tokens, _, _, err := lexDocument(b)
	require.NoError(t, err)
	_, err = parseBracketDocument(tokens)
	require.Error(t, err)
	assert.Equal(t, SyntaxError, err.(*Error).Kind)
}

func TestParseBracketUnmatchedBraceErrors(t *testing.T) {
	b := mustBuffer(t, "{ a: 1")
	tokens, _, _, err := lexDocument(b)
	require.NoError(t, err)
	_, err = parseBracketDocument(tokens)
	require.Error(t, err)
	assert.Equal(t, SyntaxError, err.(*Error).Kind)
}

func TestBracketWhitespaceIdempotence(t *testing.T) {
	// spec.md §8 "Idempotence of whitespace (bracket mode)".
	compact := parseBracket(t, `{a:1,b:2}`)
	spaced := parseBracket(t, "{\n  a : 1 ,\n  b : 2\n}\n")
	assert.True(t, compact.Equal(spaced))
}
