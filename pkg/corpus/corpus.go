// Package corpus reads tab-separated training/test data into translated
// (id-interned) training pairs, and provides the shuffled-order
// iteration training needs.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"lcrf/pkg/crf"
	"lcrf/pkg/lcrferr"
	"lcrf/pkg/stringmap"
)

// Token is one position of an untranslated training sequence: its text
// plus the already-extracted attribute strings for that position.
type Token struct {
	Text       string
	Attributes []string
}

// Pair is one untranslated (x, y) training example.
type Pair struct {
	Tokens []Token
	Labels []string
}

// TranslatedPair is a Pair with all strings interned to ids. x and y are
// always the same length.
type TranslatedPair struct {
	Tokens []crf.TokenAttributes
	Labels []crf.LabelID
}

// Corpus holds a set of translated training pairs plus the label and
// attribute vocabularies used to translate them, and supports shuffled
// iteration via an index-permutation vector rather than physically
// reordering the underlying pairs (so RandomOrder/OriginalOrder switches
// are O(n), not O(n * sequence length)).
type Corpus struct {
	pairs      []TranslatedPair
	order      []int
	maxLen     int
	tokenCount int

	labels     *stringmap.Mapper
	attributes *stringmap.Mapper

	featureCounts map[crf.AttributeID]int
}

// New creates an empty corpus, reserving <BOS> as label 0.
func New() *Corpus {
	c := &Corpus{
		labels:        stringmap.New(),
		attributes:    stringmap.New(),
		featureCounts: make(map[crf.AttributeID]int),
	}
	c.labels.AddNext("<BOS>")
	return c
}

// Labels returns the corpus's label vocabulary.
func (c *Corpus) Labels() *stringmap.Mapper { return c.labels }

// Attributes returns the corpus's attribute vocabulary.
func (c *Corpus) Attributes() *stringmap.Mapper { return c.attributes }

// Size returns the number of training pairs.
func (c *Corpus) Size() int { return len(c.pairs) }

// MaxInputLength returns the length of the longest sequence.
func (c *Corpus) MaxInputLength() int { return c.maxLen }

// TokenCount returns the total number of tokens across all sequences.
func (c *Corpus) TokenCount() int { return c.tokenCount }

// At returns the translated pair at the given position in the corpus's
// current iteration order (see ResetOrder). Until ResetOrder has built a
// permutation covering every pair, that order is the original one.
func (c *Corpus) At(i int) TranslatedPair {
	if len(c.order) != len(c.pairs) {
		return c.pairs[i]
	}
	return c.pairs[c.order[i]]
}

// Order controls how ResetOrder arranges iteration.
type Order int

const (
	// OriginalOrder iterates pairs in the order they were added.
	OriginalOrder Order = iota
	// RandomOrder iterates pairs in a permutation drawn from the
	// supplied random source.
	RandomOrder
)

// ResetOrder rebuilds the iteration-order permutation. A seeded
// *rand.Rand is required for RandomOrder so that runs are reproducible
// given the same seed, mirroring the teacher's DataSet.Rand field rather
// than reaching for the global math/rand source.
func (c *Corpus) ResetOrder(order Order, rng *rand.Rand) {
	if c.order == nil || len(c.order) != len(c.pairs) {
		c.order = make([]int, len(c.pairs))
	}
	switch order {
	case OriginalOrder:
		for i := range c.order {
			c.order[i] = i
		}
	case RandomOrder:
		perm := rng.Perm(len(c.pairs))
		copy(c.order, perm)
	}
}

// Add appends an untranslated pair, interning its tokens' attributes and
// its labels. Returns an error if x and y have different lengths.
func (c *Corpus) Add(p Pair) error {
	if len(p.Tokens) != len(p.Labels) {
		return fmt.Errorf("%w: input has %d tokens but %d labels", lcrferr.ErrMalformedInput, len(p.Tokens), len(p.Labels))
	}
	tp := TranslatedPair{
		Tokens: make([]crf.TokenAttributes, len(p.Tokens)),
		Labels: make([]crf.LabelID, len(p.Labels)),
	}
	for i, tok := range p.Tokens {
		attrIDs := make([]crf.AttributeID, len(tok.Attributes))
		for j, a := range tok.Attributes {
			attrIDs[j] = c.mapAttr(a)
		}
		tp.Tokens[i] = crf.TokenAttributes{Attributes: attrIDs}
		tp.Labels[i] = c.mapLabel(p.Labels[i])
	}
	c.pairs = append(c.pairs, tp)
	if len(tp.Tokens) > c.maxLen {
		c.maxLen = len(tp.Tokens)
	}
	c.tokenCount += len(tp.Tokens)
	return nil
}

func (c *Corpus) mapLabel(l string) crf.LabelID {
	id := c.labels.AddNext(l)
	return crf.LabelID(id)
}

func (c *Corpus) mapAttr(a string) crf.AttributeID {
	id := c.attributes.IDOf(a)
	if id == stringmap.NotFound {
		id = c.attributes.AddNext(a)
		c.featureCounts[crf.AttributeID(id)] = 0
	}
	c.featureCounts[crf.AttributeID(id)]++
	return crf.AttributeID(id)
}

// Prune removes attributes observed fewer than threshold times across
// the whole corpus, as an experimental size-reduction option (the
// original's CRFTranslatedTrainingCorpus::prune). Returns the number of
// (token, attribute) occurrences removed.
func (c *Corpus) Prune(threshold int) int {
	removed := 0
	for i := range c.pairs {
		toks := c.pairs[i].Tokens
		for j := range toks {
			kept := toks[j].Attributes[:0]
			for _, a := range toks[j].Attributes {
				if c.featureCounts[a] < threshold {
					removed++
					continue
				}
				kept = append(kept, a)
			}
			toks[j].Attributes = kept
		}
	}
	return removed
}

// Read parses a tab-separated corpus stream: each non-empty line is
// "token<TAB>label<TAB>attr1<TAB>attr2...", a blank line terminates a
// sequence, and a trailing \r (Windows line endings) is stripped before
// splitting. This mirrors CRFTrainingCorpus::read exactly, including the
// silent tolerance for malformed lines with fewer than two columns
// (distinguishing them, unlike the original, via a returned count so
// callers can surface a warning instead of writing to stderr directly).
func (c *Corpus) Read(r io.Reader) (skippedLines int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var curTokens []Token
	var curLabels []string

	flush := func() error {
		if len(curTokens) == 0 {
			return nil
		}
		err := c.Add(Pair{Tokens: curTokens, Labels: curLabels})
		curTokens = nil
		curLabels = nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			if err := flush(); err != nil {
				return skippedLines, err
			}
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			skippedLines++
			continue
		}
		curLabels = append(curLabels, fields[1])
		curTokens = append(curTokens, Token{Text: fields[0], Attributes: fields[2:]})
	}
	if err := scanner.Err(); err != nil {
		return skippedLines, err
	}
	if err := flush(); err != nil {
		return skippedLines, err
	}
	return skippedLines, nil
}
