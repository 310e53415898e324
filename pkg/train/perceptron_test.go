package train

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"lcrf/pkg/corpus"
	"lcrf/pkg/crf"
)

func buildToyCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c := corpus.New()
	// "Alice arrived" => PER OTHER; "Bob left" => PER OTHER; the word
	// identity attribute should let the perceptron learn to separate
	// PER from OTHER after a handful of epochs.
	require.NoError(t, c.Add(corpus.Pair{
		Tokens: []corpus.Token{{Text: "Alice", Attributes: []string{"w=Alice"}}, {Text: "arrived", Attributes: []string{"w=arrived"}}},
		Labels: []string{"PER", "OTHER"},
	}))
	require.NoError(t, c.Add(corpus.Pair{
		Tokens: []corpus.Token{{Text: "Bob", Attributes: []string{"w=Bob"}}, {Text: "left", Attributes: []string{"w=left"}}},
		Labels: []string{"PER", "OTHER"},
	}))
	return c
}

func buildInitialFirstOrderModel(c *corpus.Corpus) *crf.Model {
	m := crf.NewModel(1, c.Labels(), c.Attributes())
	for i := 0; i < c.Size(); i++ {
		pair := c.At(i)
		prev := crf.LabelID(0)
		for j, label := range pair.Labels {
			if j > 0 {
				m.AddFirstOrderTransition(prev, label)
			}
			for _, a := range pair.Tokens[j].Attributes {
				m.AddAttrForLabel(label, a)
			}
			prev = label
		}
	}
	m.Finalise()
	return m
}

func TestTrainByIterationsReducesLoss(t *testing.T) {
	c := buildToyCorpus(t)
	m := buildInitialFirstOrderModel(c)
	trainer := New(m, c)

	rng := rand.New(rand.NewSource(7))
	trainer.TrainByIterations(20, rng)

	d := crf.NewDecoder(m)
	for i := 0; i < c.Size(); i++ {
		pair := c.At(i)
		predicted, _ := d.BestSequence(pair.Tokens)
		require.Equal(t, pair.Labels, predicted)
	}
}

func TestTrainByThresholdStopsEarly(t *testing.T) {
	c := buildToyCorpus(t)
	m := buildInitialFirstOrderModel(c)
	trainer := New(m, c)

	rng := rand.New(rand.NewSource(3))
	trainer.TrainByThreshold(0.0, rng)

	d := crf.NewDecoder(m)
	for i := 0; i < c.Size(); i++ {
		pair := c.At(i)
		predicted, _ := d.BestSequence(pair.Tokens)
		require.Equal(t, pair.Labels, predicted)
	}
}

func TestParamUpdaterAveragingMatchesNaiveSum(t *testing.T) {
	u := newParamUpdater(2)
	u.update(0, 0, 1.0)
	u.update(0, 2, 1.0)
	u.update(1, 1, 2.0)

	avg := u.average(4)
	// Parameter 0: value 1 at step0, stays 1 through steps 1, then
	// becomes 2 at step 2, stays 2 through step 3 => sum = 1+1+2+2 = 6, /4 = 1.5
	require.InDelta(t, 1.5, float64(avg[0]), 1e-9)
	// Parameter 1: 0 at steps 0, then 2 from step 1 onward => sum = 0+2+2+2=6, /4=1.5
	require.InDelta(t, 1.5, float64(avg[1]), 1e-9)
}

func TestHigherOrderTrainingRunsToCompletion(t *testing.T) {
	c := corpus.New()
	require.NoError(t, c.Add(corpus.Pair{
		Tokens: []corpus.Token{{Text: "Alice", Attributes: []string{"w=Alice"}}, {Text: "arrived", Attributes: []string{"w=arrived"}}},
		Labels: []string{"PER", "OTHER"},
	}))

	// Build an initial higher-order model matching the corpus's
	// vocabulary, constructing states BOS->PER->OTHER.
	m2 := crf.NewModel(2, c.Labels(), c.Attributes())
	pair := c.At(0)
	bos := crf.NewHigherOrderState(2, crf.BOSLabel)
	from := bos
	for j, label := range pair.Labels {
		to := from
		if to.HistoryLength() < to.Order() {
			to = to.IncreaseHistory(label)
		} else {
			to = to.Wrap(label)
		}
		m2.AddHigherOrderTransition(from, to)
		for _, a := range pair.Tokens[j].Attributes {
			m2.AddAttrForLabel(label, a)
		}
		from = to
	}
	m2.Finalise()

	trainer := New(m2, c)
	rng := rand.New(rand.NewSource(1))
	require.NotPanics(t, func() {
		trainer.TrainByIterations(3, rng)
	})
}
