package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"lcrf/pkg/lcrferr"
)

// RawToken is one token delivered by an external tokenizer: its text, a
// token-class tag, and its byte offset and length in the source text.
// Pseudo-tokens for NE annotation (<ne class="X">, </ne>) are recognized
// and stripped by ParseAnnotatedTokens before the rest of the pipeline
// ever sees a RawToken.
type RawToken struct {
	Text   string
	Class  string
	Offset int
	Length int
}

var neOpenRe = regexp.MustCompile(`^<ne class=\\?"([A-Za-z]+)"\\?>$`)

const neClose = "</ne>"

// ParseAnnotatedTokens strips <ne class="X">...</ne> pseudo-tokens from a
// running-text token stream and returns the remaining real tokens
// together with the spans they delineate, indexed into the returned
// token slice. Nesting is not supported: a second open tag before a
// matching close tag is malformed input.
func ParseAnnotatedTokens(tokens []RawToken) (real []RawToken, spans []Span, err error) {
	var open *Span
	for _, tok := range tokens {
		if m := neOpenRe.FindStringSubmatch(tok.Text); m != nil {
			if open != nil {
				return nil, nil, fmt.Errorf("%w: nested <ne> annotation before closing tag", lcrferr.ErrMalformedInput)
			}
			open = &Span{Start: len(real), Class: m[1]}
			continue
		}
		if tok.Text == neClose {
			if open == nil {
				return nil, nil, fmt.Errorf("%w: </ne> with no matching open tag", lcrferr.ErrMalformedInput)
			}
			open.End = len(real)
			spans = append(spans, *open)
			open = nil
			continue
		}
		real = append(real, tok)
	}
	if open != nil {
		return nil, nil, fmt.Errorf("%w: unclosed <ne class=%q> annotation", lcrferr.ErrMalformedInput, open.Class)
	}
	return real, spans, nil
}

var closingQuotes = map[string]bool{
	`"`: true, `'`: true, "”": true, "’": true, "»": true,
}

// SplitSentences breaks a flat token stream into sentences on a token
// ending in '.', '?' or '!'. When the very next token is a closing quote
// immediately adjacent in byte offset (no intervening whitespace), it is
// absorbed into the same sentence before the split, since the sentence
// boundary belongs after the quote, not before it.
func SplitSentences(tokens []RawToken) [][]RawToken {
	var sentences [][]RawToken
	var cur []RawToken

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		cur = append(cur, tok)
		if !endsSentence(tok.Text) {
			continue
		}
		if i+1 < len(tokens) {
			next := tokens[i+1]
			if closingQuotes[next.Text] && next.Offset == tok.Offset+tok.Length {
				cur = append(cur, next)
				i++
			}
		}
		sentences = append(sentences, cur)
		cur = nil
	}
	if len(cur) > 0 {
		sentences = append(sentences, cur)
	}
	return sentences
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!")
}
