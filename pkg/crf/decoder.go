package crf

import "math"

// minimumWeight stands in for the original's -max(double): low enough
// that any real score beats it, used to mark trellis cells that have
// not been reached yet.
const minimumWeight = Weight(-math.MaxFloat64)

// Decoder runs Viterbi decoding against a fixed Model, reusing its
// trellis, backpointer, and precomputed-weight matrices across calls so
// that tagging many sequences in a row (the common case: a whole corpus
// at apply time) does not reallocate per sequence. Grounded in shape on
// a reusable backtrack-matrix-plus-likelihoods Viterbi implementation;
// adapted from multiplicative HMM-likelihood semantics to additive
// log-domain CRF semantics, and extended with the higher-order
// state-tuple recursion the original CRFDecoder.hpp implements.
type Decoder struct {
	model *Model

	trellis            [][]Weight
	backPointers       [][]int
	precomputedWeights [][]Weight
}

// NewDecoder creates a decoder bound to model.
func NewDecoder(model *Model) *Decoder {
	return &Decoder{model: model}
}

// TokenAttributes is one position of a translated input sequence: the
// attribute ids observed for that token. The token string itself is not
// needed for decoding (only for feature extraction, which happened
// upstream), matching the original's WordWithAttributeIDs tuple.
type TokenAttributes struct {
	Attributes []AttributeID
}

// BestSequence computes the highest scoring label sequence for input and
// returns it along with its score. An empty input yields an empty
// output and score 0.
func (d *Decoder) BestSequence(input []TokenAttributes) ([]LabelID, Weight) {
	if len(input) == 0 {
		return nil, 0
	}
	d.prepareMatrices(len(input))
	d.precomputeWeights(input)
	if d.model.Order() == 1 {
		return d.firstOrderBestSequence(input)
	}
	return d.higherOrderBestSequence(input)
}

func (d *Decoder) prepareMatrices(n int) {
	states := d.model.StatesCount()
	labels := d.model.LabelsCount()

	if n > len(d.trellis) {
		grownTrellis := make([][]Weight, n)
		grownBP := make([][]int, n)
		grownPW := make([][]Weight, n)
		copy(grownTrellis, d.trellis)
		copy(grownBP, d.backPointers)
		copy(grownPW, d.precomputedWeights)
		for i := len(d.trellis); i < n; i++ {
			grownTrellis[i] = make([]Weight, states)
			grownBP[i] = make([]int, states)
			grownPW[i] = make([]Weight, labels)
		}
		d.trellis = grownTrellis
		d.backPointers = grownBP
		d.precomputedWeights = grownPW
	}

	for i := 0; i < n; i++ {
		row := d.trellis[i]
		if len(row) < states {
			row = make([]Weight, states)
			d.trellis[i] = row
		}
		for j := range row {
			row[j] = minimumWeight
		}
		bp := d.backPointers[i]
		if len(bp) < states {
			bp = make([]int, states)
			d.backPointers[i] = bp
		}
		for j := range bp {
			bp[j] = 0
		}
		pw := d.precomputedWeights[i]
		if len(pw) < labels {
			pw = make([]Weight, labels)
			d.precomputedWeights[i] = pw
		}
		for j := range pw {
			pw[j] = 0
		}
	}
}

// precomputeWeights builds, for each position, the score contributed by
// the position's observed attributes to each label: sum over attributes
// a at position t of weight(label, a). Transition weights are added
// separately during the trellis recursion.
func (d *Decoder) precomputeWeights(input []TokenAttributes) {
	for t, tok := range input {
		row := d.precomputedWeights[t]
		for _, a := range tok.Attributes {
			for _, lp := range d.model.GetLabelsForAttribute(a) {
				row[lp.Label] += d.model.WeightForParameter(lp.Param)
			}
		}
	}
}

func (d *Decoder) labelPsi(qj LabelID, t int) Weight {
	return d.precomputedWeights[t][qj]
}

func (d *Decoder) firstOrderBestSequence(input []TokenAttributes) ([]LabelID, Weight) {
	states := d.model.LabelsCount()

	column0 := d.trellis[0]
	for qj := 0; qj < states; qj++ {
		column0[qj] = d.labelPsi(LabelID(qj), 0)
	}

	for t := 1; t < len(input); t++ {
		prev := d.trellis[t-1]
		cur := d.trellis[t]
		bp := d.backPointers[t]
		for qj := 0; qj < states; qj++ {
			maxScore := minimumWeight
			best := 0
			for _, tr := range d.model.IngoingTransitionsOf(LabelID(qj)) {
				w := prev[tr.Label] + d.model.WeightForParameter(tr.Param)
				if w > maxScore {
					maxScore = w
					best = int(tr.Label)
				}
			}
			bp[qj] = best
			cur[qj] = maxScore + d.labelPsi(LabelID(qj), t)
		}
	}

	lastColumn := d.trellis[len(input)-1]
	score := minimumWeight
	best := -1
	for qi := 0; qi < states; qi++ {
		if lastColumn[qi] > score {
			score = lastColumn[qi]
			best = qi
		}
	}

	output := make([]LabelID, len(input))
	if best == -1 {
		return output, 0
	}
	bp := best
	for k := len(output) - 1; k >= 0; k-- {
		output[k] = LabelID(bp)
		bp = d.backPointers[k][bp]
	}
	return output, score
}

func (d *Decoder) higherOrderBestSequence(input []TokenAttributes) ([]LabelID, Weight) {
	states := d.model.StatesCount()

	start := d.model.StartState()
	trellis0 := d.trellis[0]
	bp0 := d.backPointers[0]
	for _, tr := range d.model.OutgoingTransitionsOf(start) {
		to := StateID(tr.Label)
		trellis0[to] = d.model.WeightForParameter(tr.Param)
		bp0[to] = int(start)
	}

	for t := 0; t < len(input)-1; t++ {
		cur := d.trellis[t]
		next := d.trellis[t+1]
		nextBP := d.backPointers[t+1]
		for from := 1; from < states; from++ {
			if cur[from] == minimumWeight {
				continue
			}
			fromState := d.model.GetCRFState(StateID(from))
			scoreAtFrom := cur[from] + d.labelPsi(fromState.LabelID(), t)
			for _, tr := range d.model.OutgoingTransitionsOf(StateID(from)) {
				to := StateID(tr.Label)
				w := scoreAtFrom + d.model.WeightForParameter(tr.Param)
				if w > next[to] {
					next[to] = w
					nextBP[to] = from
				}
			}
		}
	}

	lastT := len(input) - 1
	lastColumn := d.trellis[lastT]
	for q := 1; q < states; q++ {
		if lastColumn[q] != minimumWeight {
			lastColumn[q] += d.labelPsi(d.model.GetCRFState(StateID(q)).LabelID(), lastT)
		}
	}

	score := minimumWeight
	best := -1
	for qi := 0; qi < states; qi++ {
		if lastColumn[qi] > score {
			score = lastColumn[qi]
			best = qi
		}
	}

	output := make([]LabelID, len(input))
	if best == -1 {
		return output, 0
	}
	bp := best
	for k := len(output) - 1; k >= 0; k-- {
		output[k] = d.model.GetCRFState(StateID(bp)).LabelID()
		bp = d.backPointers[k][bp]
	}
	return output, score
}
