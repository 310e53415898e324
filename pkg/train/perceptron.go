// Package train implements the averaged structured perceptron training
// algorithm for linear-chain CRF models (Collins 2002).
package train

import (
	"math/rand"

	"github.com/rs/zerolog/log"

	"lcrf/pkg/corpus"
	"lcrf/pkg/crf"
)

const (
	amplifyValue        = 0.2
	dampingValue        = -amplifyValue
	transitionMultiplier = 2.0
)

// paramUpdater implements the lazy-averaging update rule: each
// parameter tracks the time step it was last touched and its value at
// that step, so the running sum used for averaging can be brought up
// to date with a single multiplication instead of adding the whole
// parameter vector after every training example.
type paramUpdater struct {
	params      []crf.Weight
	summed      []crf.Weight
	lastValue   []crf.Weight
	lastUpdate  []uint32
}

func newParamUpdater(n int) *paramUpdater {
	return &paramUpdater{
		params:     make([]crf.Weight, n),
		summed:     make([]crf.Weight, n),
		lastValue:  make([]crf.Weight, n),
		lastUpdate: make([]uint32, n),
	}
}

func (u *paramUpdater) update(p crf.ParameterIndex, step uint32, w crf.Weight) {
	if p == crf.NoParameter {
		return
	}
	i := int(p)
	u.params[i] += w
	if step == u.lastUpdate[i] {
		u.summed[i] += w
	} else {
		n := crf.Weight(step - u.lastUpdate[i] - 1)
		u.summed[i] += u.params[i] + n*u.lastValue[i]
		u.lastUpdate[i] = step
	}
	u.lastValue[i] = u.params[i]
}

// average performs the pending updates omitted by the lazy scheme and
// divides every summed parameter by d = iterations * corpus size.
func (u *paramUpdater) average(d uint32) []crf.Weight {
	out := make([]crf.Weight, len(u.summed))
	for p := range u.summed {
		s := u.summed[p]
		if d != u.lastUpdate[p] {
			n := crf.Weight(d - u.lastUpdate[p] - 1)
			s += n * u.lastValue[p]
		}
		out[p] = s / crf.Weight(d)
	}
	return out
}

// PerceptronTrainer trains a crf.Model's parameters from a corpus.Corpus
// using the averaged perceptron update rule.
type PerceptronTrainer struct {
	model   *crf.Model
	decoder *crf.Decoder
	corpus  *corpus.Corpus
}

// New creates a trainer for model over c. The decoder's reusable
// matrices start empty and grow on demand as longer sequences arrive.
func New(model *crf.Model, c *corpus.Corpus) *PerceptronTrainer {
	d := crf.NewDecoder(model)
	return &PerceptronTrainer{model: model, decoder: d, corpus: c}
}

// TrainByIterations runs exactly numIterations epochs over the corpus,
// reshuffling the iteration order after each one.
func (t *PerceptronTrainer) TrainByIterations(numIterations int, rng *rand.Rand) {
	t.train(numIterations, 0, false, rng)
}

// TrainByThreshold runs up to 10000 epochs, stopping early once the
// epoch's total loss (the sum over pairs of the fraction of mislabeled
// positions) falls to or below threshold.
func (t *PerceptronTrainer) TrainByThreshold(threshold float64, rng *rand.Rand) {
	t.train(10000, threshold, true, rng)
}

func (t *PerceptronTrainer) train(numIterations int, threshold float64, useThreshold bool, rng *rand.Rand) {
	log.Info().Int("iterations", numIterations).Msg("estimating model parameters")

	upd := newParamUpdater(t.model.ParametersCount())

	var step uint32
	iterationsRun := 0
	for epoch := 0; epoch < numIterations; epoch++ {
		var loss float64
		for i := 0; i < t.corpus.Size(); i++ {
			pair := t.corpus.At(i)
			predicted, _ := t.decoder.BestSequence(pair.Tokens)

			numDiffs := 0
			if !sequencesEqual(pair.Labels, predicted) {
				if t.model.Order() == 1 {
					numDiffs = t.firstOrderUpdate(pair, predicted, upd, step)
				} else {
					numDiffs = t.higherOrderUpdate(pair, predicted, upd, step)
				}
			}
			step++
			loss += float64(numDiffs) / float64(len(pair.Labels))
		}

		log.Info().Int("epoch", epoch+1).Float64("loss", loss).Msg("training epoch complete")
		iterationsRun++

		t.corpus.ResetOrder(corpus.RandomOrder, rng)
		if useThreshold && loss <= threshold {
			break
		}
	}

	d := uint32(iterationsRun * t.corpus.Size())
	if d == 0 {
		return
	}
	t.model.SetParameters(upd.average(d))
}

func sequencesEqual(a, b []crf.LabelID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// firstOrderUpdate applies the Collins update rule for a first-order
// model: every position where gold and predicted labels differ gets its
// state features amplified (gold) and damped (predicted), along with
// the transitions leading into that position; positions where the
// labels agree but the preceding labels differ still get their
// transition parameters updated.
func (t *PerceptronTrainer) firstOrderUpdate(pair corpus.TranslatedPair, predicted []crf.LabelID, upd *paramUpdater, step uint32) int {
	numDiffs := 0
	prevY, prevZ := crf.LabelID(NoLabel), crf.LabelID(NoLabel)

	for j, gold := range pair.Labels {
		z := predicted[j]
		if gold != z {
			t.updateStateFeatures(pair.Tokens[j], gold, upd, step, amplifyValue)
			t.updateStateFeatures(pair.Tokens[j], z, upd, step, dampingValue)

			if j > 0 {
				upd.update(t.model.TransitionParamIndex(prevY, gold), step, amplifyValue*transitionMultiplier)
				upd.update(t.model.TransitionParamIndex(prevZ, z), step, dampingValue*transitionMultiplier)
			}
			numDiffs++
		} else if prevY != prevZ {
			upd.update(t.model.TransitionParamIndex(prevY, gold), step, amplifyValue*transitionMultiplier)
			upd.update(t.model.TransitionParamIndex(prevZ, z), step, dampingValue*transitionMultiplier)
		}
		prevY, prevZ = gold, z
	}
	return numDiffs
}

// higherOrderUpdate applies the analogous rule for order K >= 2: state
// features update exactly as in the first-order case; transitions are
// updated by walking both the gold and predicted paths through the same
// state-construction steps the decoder itself uses (IncreaseHistory
// until full order is reached, then Wrap), so the "from" state at each
// position is exactly the state the decoder would have reached after
// the same prefix -- naturally zero-padded with <BOS> at the start of a
// sequence, since both running states are seeded with (<BOS>).
// Transitions are only touched at a position that differs, or that
// falls within K positions following a prior difference, since earlier
// positions' transitions are unaffected by a later disagreement.
func (t *PerceptronTrainer) higherOrderUpdate(pair corpus.TranslatedPair, predicted []crf.LabelID, upd *paramUpdater, step uint32) int {
	numDiffs := 0
	order := t.model.Order()
	lastDiff := -order - 1

	runningY := crf.NewHigherOrderState(order, crf.BOSLabel)
	runningZ := crf.NewHigherOrderState(order, crf.BOSLabel)

	for j, gold := range pair.Labels {
		z := predicted[j]
		if gold != z {
			t.updateStateFeatures(pair.Tokens[j], gold, upd, step, amplifyValue)
			t.updateStateFeatures(pair.Tokens[j], z, upd, step, dampingValue)
			lastDiff = j
			numDiffs++
		}

		if gold != z || j <= lastDiff+order {
			t.updateTransition(runningY, gold, upd, step, amplifyValue)
			t.updateTransition(runningZ, z, upd, step, dampingValue)
		}

		runningY = extendState(runningY, gold)
		runningZ = extendState(runningZ, z)
	}
	return numDiffs
}

// extendState appends label to a running history state, growing it
// while below full order and wrapping (dropping the oldest label)
// once it reaches capacity.
func extendState(s crf.HigherOrderState, label crf.LabelID) crf.HigherOrderState {
	if s.HistoryLength() < s.Order() {
		return s.IncreaseHistory(label)
	}
	return s.Wrap(label)
}

func (t *PerceptronTrainer) updateTransition(from crf.HigherOrderState, label crf.LabelID, upd *paramUpdater, step uint32, w crf.Weight) {
	fromID := t.model.GetCRFStateID(from)
	toID := t.model.GetCRFStateID(extendState(from, label))
	idx := t.model.TransitionParamIndex(crf.LabelID(fromID), crf.LabelID(toID))
	upd.update(idx, step, w)
}

func (t *PerceptronTrainer) updateStateFeatures(tok crf.TokenAttributes, label crf.LabelID, upd *paramUpdater, step uint32, w crf.Weight) {
	for _, a := range tok.Attributes {
		idx := t.model.GetParamIndexForAttrAtLabel(a, label)
		if idx != crf.NoParameter {
			upd.update(idx, step, w)
		}
	}
}

// NoLabel mirrors crf.NoLabel for readability at call sites in this
// file without importing it under a different name.
const NoLabel = crf.NoLabel
