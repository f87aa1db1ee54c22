package trim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenCountsKnownText(t *testing.T) {
	tok, err := NewTiktoken(DefaultEncoding)
	require.NoError(t, err)

	assert.Equal(t, 2, tok.Count("hello world"))
	assert.Equal(t, 0, tok.Count(""))
}

func TestTiktokenDefaultEncoding(t *testing.T) {
	def, err := NewTiktoken("")
	require.NoError(t, err)
	named, err := NewTiktoken(DefaultEncoding)
	require.NoError(t, err)

	text := "Tokens are counted with the same ranks."
	assert.Equal(t, named.Count(text), def.Count(text))
}

func TestTiktokenUnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("no_such_encoding")
	assert.Error(t, err)
}

func TestTokensWithTiktokenEndsWithinBudget(t *testing.T) {
	tok, err := NewTiktoken("")
	require.NoError(t, err)

	text := strings.Repeat("Rivers carve canyons over millions of years. ", 400)
	require.Greater(t, tok.Count(text), 1000)

	head := Tokens(text, 1000, tok, DropTail)
	assert.LessOrEqual(t, tok.Count(head), 1000)
	assert.True(t, strings.HasPrefix(text, head))

	tail := Tokens(text, 1000, tok, DropHead)
	assert.LessOrEqual(t, tok.Count(tail), 1000)
	assert.True(t, strings.HasSuffix(text, tail))

	assert.Equal(t, head, Tokens(head, 1000, tok, DropTail))
}
