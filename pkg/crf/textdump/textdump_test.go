package textdump

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"lcrf/pkg/crf"
	"lcrf/pkg/stringmap"
)

func buildModel() *crf.Model {
	lm := stringmap.New()
	lm.AddNext("<BOS>")
	lm.AddNext("OTHER")
	lm.AddNext("PER")
	am := stringmap.New()
	am.AddNext("w[0]=Alice")

	m := crf.NewModel(1, lm, am)
	other := crf.LabelID(lm.IDOf("OTHER"))
	per := crf.LabelID(lm.IDOf("PER"))
	idx, _ := m.AddFirstOrderTransition(other, per)
	m.Parameters()[idx] = 0.482204

	wAlice := crf.AttributeID(am.IDOf("w[0]=Alice"))
	idx = m.AddAttrForLabel(per, wAlice)
	m.Parameters()[idx] = 3.25
	m.Finalise()
	return m
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	m := buildModel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	require.Contains(t, buf.String(), "TRANSITIONS = {")
	require.Contains(t, buf.String(), "OTHER --> PER")

	loaded, err := Read(&buf)
	require.NoError(t, err)

	other := crf.LabelID(m.Labels().IDOf("OTHER"))
	per := crf.LabelID(m.Labels().IDOf("PER"))
	require.InDelta(t, float64(m.TransitionWeight(other, per)), float64(loaded.TransitionWeight(other, per)), 1e-9)

	wAlice := crf.AttributeID(m.Attributes().IDOf("w[0]=Alice"))
	require.InDelta(t, float64(m.GetWeightForAttrAtLabel(wAlice, per)),
		float64(loaded.GetWeightForAttrAtLabel(wAlice, per)), 1e-9)
}

func TestWritePanicsOnHigherOrder(t *testing.T) {
	lm := stringmap.New()
	lm.AddNext("<BOS>")
	am := stringmap.New()
	m := crf.NewModel(2, lm, am)

	require.Panics(t, func() {
		_ = Write(&bytes.Buffer{}, m)
	})
}
