package crf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testPairs is a minimal in-package stand-in for a translated corpus, so
// BuildInitialModel can be exercised without importing the corpus
// package (which itself imports crf).
type testPair struct {
	tokens []TokenAttributes
	labels []LabelID
}

func pairAtFunc(pairs []testPair) func(int) ([]TokenAttributes, []LabelID) {
	return func(i int) ([]TokenAttributes, []LabelID) {
		return pairs[i].tokens, pairs[i].labels
	}
}

func TestBuildInitialModelFirstOrder(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>"}, nil)
	per := LabelID(lm.AddNext("PER"))
	other := LabelID(lm.AddNext("OTHER"))
	wAlice := AttributeID(am.AddNext("w=alice"))
	wSaid := AttributeID(am.AddNext("w=said"))

	pairs := []testPair{
		{
			tokens: []TokenAttributes{{Attributes: []AttributeID{wAlice}}, {Attributes: []AttributeID{wSaid}}},
			labels: []LabelID{per, other},
		},
	}

	m := BuildInitialModel(lm, am, len(pairs), pairAtFunc(pairs), 1, false)

	require.Equal(t, 1, m.TransitionsCount())
	require.NotEqual(t, NoParameter, m.TransitionParamIndex(per, other))
	require.NotEqual(t, NoParameter, m.GetParamIndexForAttrAtLabel(wAlice, per))
	require.NotEqual(t, NoParameter, m.GetParamIndexForAttrAtLabel(wSaid, other))
	require.Equal(t, m.TransitionsCount()+m.FeaturesCount(), m.ParametersCount())
}

func TestBuildInitialModelHigherOrderNoBackoff(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>"}, nil)
	per := LabelID(lm.AddNext("PER"))
	other := LabelID(lm.AddNext("OTHER"))
	w := AttributeID(am.AddNext("w=x"))

	pairs := []testPair{
		{
			tokens: []TokenAttributes{{Attributes: []AttributeID{w}}, {Attributes: []AttributeID{w}}, {Attributes: nil}},
			labels: []LabelID{per, other, per},
		},
	}

	m := BuildInitialModel(lm, am, len(pairs), pairAtFunc(pairs), 2, false)

	// Three positions each grow or wrap the running state exactly once,
	// so three transitions are added: (<BOS>)->(<BOS>,PER) growing, then
	// (<BOS>,PER)->(PER,OTHER) and (PER,OTHER)->(OTHER,PER) wrapping.
	require.Equal(t, 3, m.TransitionsCount())
	require.Equal(t, m.TransitionsCount()+m.FeaturesCount(), m.ParametersCount())

	d := NewDecoder(m)
	out, _ := d.BestSequence(pairs[0].tokens)
	require.Len(t, out, 3)
}

func TestBuildInitialModelHigherOrderBackoffAddsExtraTransitions(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>"}, nil)
	per := LabelID(lm.AddNext("PER"))
	other := LabelID(lm.AddNext("OTHER"))
	w := AttributeID(am.AddNext("w=x"))

	pairs := []testPair{
		{
			tokens: []TokenAttributes{{Attributes: []AttributeID{w}}, {Attributes: []AttributeID{w}}, {Attributes: nil}},
			labels: []LabelID{per, other, per},
		},
	}

	plain := BuildInitialModel(lm, am, len(pairs), pairAtFunc(pairs), 2, false)
	withBackoff := BuildInitialModel(lm, am, len(pairs), pairAtFunc(pairs), 2, true)

	require.Greater(t, withBackoff.TransitionsCount(), plain.TransitionsCount())
}
