package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"lcrf/pkg/crf"
	"lcrf/pkg/features"
	"lcrf/pkg/stringmap"
)

// buildTinyModel builds a first-order model whose only non-zero weight
// is 5.0 on W[0]=Obama for PER, so a lone "Obama" token decodes as PER.
func buildTinyModel() *crf.Model {
	labels := stringmap.New()
	attrs := stringmap.New()
	labels.AddNext("<BOS>")
	per := labels.AddNext("PER")
	other := labels.AddNext("OTHER")
	attrs.AddNext("W[0]=Obama")

	m := crf.NewModel(1, labels, attrs)
	m.AddFirstOrderTransition(crf.LabelID(0), crf.LabelID(per))
	m.AddFirstOrderTransition(crf.LabelID(0), crf.LabelID(other))
	idx := m.AddAttrForLabel(crf.LabelID(per), crf.AttributeID(0))
	m.Finalise()
	weights := m.Parameters()
	weights[idx] = 5.0
	m.SetParameters(weights)
	return m
}

func TestApplyPredictsFromAttributeWeights(t *testing.T) {
	m := buildTinyModel()
	decoder := crf.NewDecoder(m)
	extractor := features.New(features.Options{Word: true})

	seq := []ColumnRecord{{Token: "Obama"}}
	var buf bytes.Buffer
	out := NewColumnOutputter(&buf)
	require.NoError(t, out.Begin())
	require.NoError(t, Apply(m, decoder, extractor, seq, out))
	require.NoError(t, out.End())
	require.Equal(t, "Obama\tPER\n\n", buf.String())
}

func TestApplyAllEmitsGoldWhenLabelsPresent(t *testing.T) {
	m := buildTinyModel()
	decoder := crf.NewDecoder(m)
	extractor := features.New(features.Options{Word: true})

	sequences := [][]ColumnRecord{{{Token: "Obama", Label: "PER"}}}
	var buf bytes.Buffer
	out := NewColumnOutputter(&buf)
	require.NoError(t, ApplyAll(m, decoder, extractor, sequences, out))
	require.Equal(t, "Obama\tPER\tPER\n\n", buf.String())
}
