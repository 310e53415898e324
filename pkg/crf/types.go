// Package crf implements a linear-chain conditional random field: the
// parameter representation, Viterbi decoding, and binary/text model
// codecs. Training lives in the sibling train package; feature
// extraction in the features package.
package crf

// LabelID identifies an output label (a named class: a BIO tag, a POS
// tag, and so on). Label 0 is reserved for the <BOS> sentinel.
type LabelID uint32

// AttributeID identifies an input attribute (an observation produced by
// feature extraction, e.g. "w[0]=Berlin").
type AttributeID uint32

// StateID identifies a trellis state. For a first-order model states and
// labels coincide; for a higher-order model a StateID indexes into a
// StateMapper.
type StateID uint32

// ParameterIndex indexes into a model's flat parameter vector.
type ParameterIndex uint32

// NoParameter marks the absence of a parameter for a (label, attribute)
// or (from, to) pair that has never been observed.
const NoParameter ParameterIndex = ^ParameterIndex(0)

// Weight is the type of a single parameter value.
type Weight float64

// LabelParam pairs a label (or, for transitions, a from/to state) with
// the parameter index of the feature it activates. Stored sorted by
// Label within each adjacency list, mirroring the original's sorted
// LabelIDParameterIndexPairVector, so lookups can binary search and
// merges during model construction stay O(log n).
type LabelParam struct {
	Label LabelID
	Param ParameterIndex
}
