package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAnnotatedTokensStripsAndRecordsSpans(t *testing.T) {
	tokens := []RawToken{
		{Text: `<ne class="PER">`}, {Text: "Angela"}, {Text: "Merkel"}, {Text: "</ne>"},
		{Text: "met"},
		{Text: `<ne class="PER">`}, {Text: "Obama"}, {Text: "</ne>"},
		{Text: "."},
	}

	real, spans, err := ParseAnnotatedTokens(tokens)
	require.NoError(t, err)
	require.Equal(t, []string{"Angela", "Merkel", "met", "Obama", "."}, textsOf(real))
	require.Equal(t, []Span{{Start: 0, End: 2, Class: "PER"}, {Start: 3, End: 4, Class: "PER"}}, spans)
}

func TestParseAnnotatedTokensUnclosedIsMalformed(t *testing.T) {
	tokens := []RawToken{{Text: `<ne class="PER">`}, {Text: "Obama"}}
	_, _, err := ParseAnnotatedTokens(tokens)
	require.Error(t, err)
}

func TestParseAnnotatedTokensUnopenedCloseIsMalformed(t *testing.T) {
	tokens := []RawToken{{Text: "Obama"}, {Text: "</ne>"}}
	_, _, err := ParseAnnotatedTokens(tokens)
	require.Error(t, err)
}

func TestSplitSentencesAbsorbsAdjacentClosingQuote(t *testing.T) {
	// He said "Go." Then he left.
	tokens := []RawToken{
		{Text: "He", Offset: 0, Length: 2},
		{Text: "said", Offset: 3, Length: 4},
		{Text: `"`, Offset: 8, Length: 1},
		{Text: "Go", Offset: 9, Length: 2},
		{Text: ".", Offset: 11, Length: 1},
		{Text: `"`, Offset: 12, Length: 1},
		{Text: "Then", Offset: 14, Length: 4},
		{Text: "he", Offset: 19, Length: 2},
		{Text: "left", Offset: 22, Length: 4},
		{Text: ".", Offset: 26, Length: 1},
	}
	sentences := SplitSentences(tokens)
	require.Len(t, sentences, 2)
	require.Equal(t, []string{"He", "said", `"`, "Go", ".", `"`}, textsOf(sentences[0]))
	require.Equal(t, []string{"Then", "he", "left", "."}, textsOf(sentences[1]))
}

func TestSplitSentencesNoAdjacentQuoteNotAbsorbed(t *testing.T) {
	tokens := []RawToken{
		{Text: "Go", Offset: 0, Length: 2},
		{Text: ".", Offset: 2, Length: 1},
		{Text: `"`, Offset: 5, Length: 1}, // not adjacent: a gap after the period
	}
	sentences := SplitSentences(tokens)
	require.Len(t, sentences, 2)
	require.Equal(t, []string{"Go", "."}, textsOf(sentences[0]))
	require.Equal(t, []string{`"`}, textsOf(sentences[1]))
}

func textsOf(tokens []RawToken) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}
