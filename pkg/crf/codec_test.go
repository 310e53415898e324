package crf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type seekBuffer struct {
	bytes.Buffer
	pos int64
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = offset
	case 2:
		s.pos = int64(s.Len())
	}
	return s.pos, nil
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	b := s.Bytes()
	if int(s.pos)+len(p) > len(b) {
		s.Buffer.Write(make([]byte, int(s.pos)+len(p)-len(b)))
	}
	copy(s.Bytes()[s.pos:], p)
	s.pos += int64(len(p))
	return len(p), nil
}

func buildSampleFirstOrderModel() *Model {
	lm, am := newTestVocab([]string{"<BOS>", "OTHER", "PER"}, []string{"w=alice", "w=said"})
	m := NewModel(1, lm, am)
	other := LabelID(lm.IDOf("OTHER"))
	per := LabelID(lm.IDOf("PER"))
	idx, _ := m.AddFirstOrderTransition(other, per)
	m.Parameters()[idx] = 1.5
	idx, _ = m.AddFirstOrderTransition(per, other)
	m.Parameters()[idx] = -0.5

	wAlice := AttributeID(am.IDOf("w=alice"))
	wSaid := AttributeID(am.IDOf("w=said"))
	idx = m.AddAttrForLabel(per, wAlice)
	m.Parameters()[idx] = 3.25
	idx = m.AddAttrForLabel(other, wAlice)
	m.Parameters()[idx] = 0.1
	idx = m.AddAttrForLabel(other, wSaid)
	m.Parameters()[idx] = 0.2
	m.Finalise()
	return m
}

func TestModelBinaryRoundTrip(t *testing.T) {
	m := buildSampleFirstOrderModel()

	buf := &seekBuffer{}
	_, err := m.WriteTo(buf)
	require.NoError(t, err)

	loaded, err := ReadModel(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, m.Order(), loaded.Order())
	require.Equal(t, m.LabelsCount(), loaded.LabelsCount())
	require.Equal(t, m.AttributesCount(), loaded.AttributesCount())
	require.Equal(t, m.ParametersCount(), loaded.ParametersCount())

	other := LabelID(m.Labels().IDOf("OTHER"))
	per := LabelID(m.Labels().IDOf("PER"))
	require.Equal(t, m.TransitionWeight(other, per), loaded.TransitionWeight(other, per))

	wAlice := AttributeID(m.Attributes().IDOf("w=alice"))
	require.Equal(t, m.GetWeightForAttrAtLabel(wAlice, per), loaded.GetWeightForAttrAtLabel(wAlice, per))
}

func TestReadMetadataWithoutFullLoad(t *testing.T) {
	m := buildSampleFirstOrderModel()
	buf := &seekBuffer{}
	_, err := m.WriteTo(buf)
	require.NoError(t, err)

	md, err := ReadMetadata(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 1, md.Order)
	require.Equal(t, m.LabelsCount(), md.NumLabels)
	require.Equal(t, m.ParametersCount(), md.NumParameters)
}

func TestReadModelRejectsBadMagic(t *testing.T) {
	_, err := ReadModel(bytes.NewReader([]byte("not a model file")))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIncompatibleModel)
}

// TestModelBinaryRoundTripHigherOrder exercises a shape that a
// first-order model never produces: a state that is only ever a
// transition destination, never a source. (<BOS>)->(<BOS>,PER) grows
// once, then (<BOS>,PER)->(PER,OTHER)->(OTHER,PER) wraps twice, leaving
// (OTHER,PER) as a sink with no outgoing transitions of its own.
func TestModelBinaryRoundTripHigherOrder(t *testing.T) {
	lm, am := newTestVocab([]string{"<BOS>"}, nil)
	per := LabelID(lm.AddNext("PER"))
	other := LabelID(lm.AddNext("OTHER"))
	w := AttributeID(am.AddNext("w=x"))

	tokens := []TokenAttributes{{Attributes: []AttributeID{w}}, {Attributes: []AttributeID{w}}, {Attributes: nil}}
	pairs := []testPair{{tokens: tokens, labels: []LabelID{per, other, per}}}

	m := BuildInitialModel(lm, am, len(pairs), pairAtFunc(pairs), 2, false)
	require.Equal(t, 4, m.StatesCount())
	require.Equal(t, 3, m.TransitionsCount())

	buf := &seekBuffer{}
	_, err := m.WriteTo(buf)
	require.NoError(t, err)

	loaded, err := ReadModel(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, m.Order(), loaded.Order())
	require.Equal(t, m.StatesCount(), loaded.StatesCount())
	require.Equal(t, m.TransitionsCount(), loaded.TransitionsCount())
	require.Equal(t, m.AttributesCount(), loaded.AttributesCount())
	require.Equal(t, m.ParametersCount(), loaded.ParametersCount())

	d := NewDecoder(loaded)
	out, _ := d.BestSequence(tokens)
	require.Len(t, out, 3)
}
