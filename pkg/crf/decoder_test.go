package crf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lcrf/pkg/stringmap"
)

func newTestVocab(labels, attrs []string) (*stringmap.Mapper, *stringmap.Mapper) {
	lm := stringmap.New()
	for _, l := range labels {
		lm.AddNext(l)
	}
	am := stringmap.New()
	for _, a := range attrs {
		am.AddNext(a)
	}
	return lm, am
}

// TestFirstOrderViterbiOptimality builds a tiny hand-weighted model where
// the optimal path is knowable by inspection: two labels, a transition
// bonus for repeating OTHER, and an emission that strongly favors PER at
// position 0. The decoder must find PER at position 0 even though that
// forgoes the OTHER->OTHER bonus, since the emission gain dominates.
func TestFirstOrderViterbiOptimality(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>", "OTHER", "PER"}, []string{"w=alice", "w=said"})
	m := NewModel(1, lm, am)

	other := LabelID(lm.IDOf("OTHER"))
	per := LabelID(lm.IDOf("PER"))

	idx, _ := m.AddFirstOrderTransition(other, other)
	m.Parameters()[idx] = 0.5
	idx, _ = m.AddFirstOrderTransition(other, per)
	m.Parameters()[idx] = 0.0
	idx, _ = m.AddFirstOrderTransition(per, other)
	m.Parameters()[idx] = 0.0

	wAlice := AttributeID(am.IDOf("w=alice"))
	wSaid := AttributeID(am.IDOf("w=said"))

	idx = m.AddAttrForLabel(per, wAlice)
	m.Parameters()[idx] = 5.0
	idx = m.AddAttrForLabel(other, wAlice)
	m.Parameters()[idx] = 0.0
	idx = m.AddAttrForLabel(other, wSaid)
	m.Parameters()[idx] = 1.0
	idx = m.AddAttrForLabel(per, wSaid)
	m.Parameters()[idx] = 0.0

	d := NewDecoder(m)
	input := []TokenAttributes{
		{Attributes: []AttributeID{wAlice}},
		{Attributes: []AttributeID{wSaid}},
	}
	output, score := d.BestSequence(input)

	require.Equal(t, []LabelID{per, other}, output)
	require.Greater(t, float64(score), 0.0)
}

func TestFirstOrderDeterministic(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>", "A", "B"}, []string{"x"})
	m := NewModel(1, lm, am)
	a := LabelID(lm.IDOf("A"))
	b := LabelID(lm.IDOf("B"))
	m.AddFirstOrderTransition(a, b)
	m.AddFirstOrderTransition(b, a)
	x := AttributeID(am.IDOf("x"))
	m.AddAttrForLabel(a, x)

	d := NewDecoder(m)
	input := []TokenAttributes{{Attributes: []AttributeID{x}}, {Attributes: []AttributeID{x}}}

	out1, score1 := d.BestSequence(input)
	out2, score2 := d.BestSequence(input)
	require.Equal(t, out1, out2)
	require.Equal(t, score1, score2)
}

func TestHigherOrderDecodingRunsToCompletion(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>", "OTHER", "PER"}, []string{"w=x"})
	m := NewModel(2, lm, am)

	bos := NewHigherOrderState(2, BOSLabel)
	other := bos.IncreaseHistory(LabelID(lm.IDOf("OTHER")))
	per := bos.IncreaseHistory(LabelID(lm.IDOf("PER")))
	otherOther := other.Wrap(LabelID(lm.IDOf("OTHER")))
	otherPer := other.Wrap(LabelID(lm.IDOf("PER")))

	m.AddHigherOrderTransition(bos, other)
	m.AddHigherOrderTransition(bos, per)
	m.AddHigherOrderTransition(other, otherOther)
	m.AddHigherOrderTransition(other, otherPer)
	m.AddHigherOrderTransition(per, otherOther)

	x := AttributeID(am.IDOf("w=x"))
	m.AddAttrForLabel(LabelID(lm.IDOf("PER")), x)

	d := NewDecoder(m)
	input := []TokenAttributes{{Attributes: []AttributeID{x}}, {Attributes: []AttributeID{x}}}
	output, _ := d.BestSequence(input)
	require.Len(t, output, 2)
}
