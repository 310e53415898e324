package crf

import "lcrf/pkg/stringmap"

// BuildInitialModel constructs a model of the given order from a
// translated corpus, populating its transitions and state features from
// scratch. This is the "initial model construction" pass that precedes
// perceptron training: for order 1 every observed (y[i-1], y[i])
// transition and (attr, y[i]) feature is added once; for order >= 2 the
// pass walks each sequence growing a HigherOrderState from (<BOS>)
// exactly as the decoder would, interning states and transitions along
// the way.
//
// numPairs and pairAt abstract over corpus.Corpus without introducing an
// import cycle (corpus already imports crf for TokenAttributes/LabelID).
func BuildInitialModel(labels, attributes *stringmap.Mapper, numPairs int, pairAt func(i int) ([]TokenAttributes, []LabelID), order int, backoff bool) *Model {
	m := NewModel(order, labels, attributes)

	if order == 1 {
		for i := 0; i < numPairs; i++ {
			toks, ys := pairAt(i)
			prev := BOSLabel
			for j, y := range ys {
				if j > 0 {
					m.AddFirstOrderTransition(prev, y)
				}
				for _, a := range toks[j].Attributes {
					m.AddAttrForLabel(y, a)
				}
				prev = y
			}
		}
		m.Finalise()
		return m
	}

	for i := 0; i < numPairs; i++ {
		toks, ys := pairAt(i)
		from := NewHigherOrderState(order, BOSLabel)
		for j, y := range ys {
			for _, a := range toks[j].Attributes {
				m.AddAttrForLabel(y, a)
			}
			var to HigherOrderState
			if from.HistoryLength() < from.Order() {
				to = from.IncreaseHistory(y)
			} else {
				to = from.Wrap(y)
			}
			m.addTransitionWithBackoff(from, to, backoff)
			from = to
		}
	}
	m.Finalise()
	return m
}

// addTransitionWithBackoff adds the main from->to transition and,
// when backoff is set, the lower-order fallback edges spec.md's design
// notes describe as commented out in the original and left to runtime
// configuration: transitions between every shortened suffix of from and
// the correspondingly shortened suffix of to, plus cross pairs between
// the full-length and shortened ends. This gives the decoder an edge to
// follow when the full-history transition was never observed in
// training, at the cost of extra parameters. Defaults to off (see
// DESIGN.md).
func (m *Model) addTransitionWithBackoff(from, to HigherOrderState, backoff bool) {
	m.AddHigherOrderTransition(from, to)
	if !backoff {
		return
	}
	sf, st := from, to
	for sf.HistoryLength() > 1 && st.HistoryLength() > 1 {
		sf = sf.ShortenHistory()
		st = st.ShortenHistory()
		m.AddHigherOrderTransition(sf, st) // lower -> lower
		m.AddHigherOrderTransition(sf, to) // lower -> higher
		m.AddHigherOrderTransition(from, st) // higher -> lower
	}
}
