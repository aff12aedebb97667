package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"
)

func newParser(maxSuggestions int) *Gemini {
	return &Gemini{maxSuggestions: maxSuggestions}
}

func TestParseSuggestionsJSONArray(t *testing.T) {
	g := newParser(2)

	got := g.parseSuggestions(`["Sounds good!", "See you then"]`)
	assert.Equal(t, []string{"Sounds good!", "See you then"}, got)
}

func TestParseSuggestionsStripsMarkdownFence(t *testing.T) {
	g := newParser(2)

	got := g.parseSuggestions("```json\n[\"Yes please\", \"Maybe later\"]\n```")
	assert.Equal(t, []string{"Yes please", "Maybe later"}, got)
}

func TestParseSuggestionsLineSplitFallback(t *testing.T) {
	g := newParser(2)

	got := g.parseSuggestions("\"On my way\"\n\"Running late\"")
	assert.Equal(t, []string{"On my way", "Running late"}, got)
}

func TestParseSuggestionsCapsCount(t *testing.T) {
	g := newParser(2)

	got := g.parseSuggestions(`["one", "two", "three", "four"]`)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestParseSuggestionsDropsOverlongAndBlank(t *testing.T) {
	g := newParser(3)

	long := strings.Repeat("x", 51)
	got := g.parseSuggestions(`["` + long + `", "", "short"]`)
	assert.Equal(t, []string{"short"}, got)
}

func TestParseSuggestionsFallbackPair(t *testing.T) {
	g := newParser(2)

	for _, text := range []string{"", "   ", "\n\n"} {
		got := g.parseSuggestions(text)
		assert.Equal(t, fallbackSuggestions, got)
	}
}

func TestCollectText(t *testing.T) {
	require.Equal(t, "", collectText(nil))
	require.Equal(t, "", collectText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: "hello "}, nil, {Text: "world"}},
			},
		}},
	}
	require.Equal(t, "hello world", collectText(resp))
}
