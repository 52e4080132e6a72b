package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer_Tokenize_WithStemming(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("running dogs are playing")
	assert.Equal(t, []string{"run", "dog", "play"}, tokens)
}

func TestTokenizer_Tokenize_WithoutStemming(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("running dogs are playing")
	assert.Equal(t, []string{"running", "dogs", "playing"}, tokens)
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("How do I track my order?")
	assert.Equal(t, []string{"track", "order"}, tokens)
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	for _, token := range tok.Tokenize("a I go to x") {
		assert.GreaterOrEqual(t, len(token), 2)
	}
}

func TestTokenizer_Apostrophes(t *testing.T) {
	tok := NewTokenizer(false)

	assert.Equal(t, []string{"dont", "work"}, tok.Tokenize("don't work"))
	assert.Equal(t, []string{"cant", "login"}, tok.Tokenize("can’t login"))
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(true)

	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("   ?!  "))
}

func TestTokenSetAndJaccard(t *testing.T) {
	tok := NewTokenizer(true)

	a := tok.TokenSet("How do I return an item?")
	b := tok.TokenSet("How can I return items?")
	c := tok.TokenSet("What payment methods are accepted?")

	require.Len(t, a, 2)
	assert.InDelta(t, 1.0, Jaccard(a, b), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(a, c), 1e-9)
	assert.InDelta(t, 1.0, Jaccard(nil, nil), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(a, nil), 1e-9)
}

func TestStem(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"returns", "return"},
		{"returned", "return"},
		{"returning", "return"},
		{"shipping", "ship"},
		{"shipped", "ship"},
		{"deliveries", "delivery"},
		{"charge", "charg"},
		{"charged", "charg"},
		{"address", "address"},
		{"status", "status"},
		{"processing", "process"},
		{"installed", "install"},
		{"need", "need"},
		{"tv", "tv"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Stem(tt.input), "Stem(%q)", tt.input)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 2},
		{"order #12345, please", 3},
		{"CamelCase", 1},
		{"123numbers456", 1},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		assert.Len(t, words, tt.expected, "splitWords(%q) = %v", tt.input, words)
	}
}
